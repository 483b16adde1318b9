package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"chatgraph-backend/internal/blob"
	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/identity"
	"chatgraph-backend/internal/jwt"
	"chatgraph-backend/internal/keyValue"
	"chatgraph-backend/internal/media"
	"chatgraph-backend/internal/memberships"
	"chatgraph-backend/internal/messaging"
	"chatgraph-backend/internal/models"
	"chatgraph-backend/internal/notify"
	"chatgraph-backend/internal/relationships"
	"chatgraph-backend/internal/snowflake"
	"chatgraph-backend/internal/threads"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	playgroundValidator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handlers is the HTTP surface over the ledgers and services. Every
// dependency is injected, nothing global.
type Handlers struct {
	sugar    *zap.SugaredLogger
	db       *sql.DB
	cfg      *models.ConfigFile
	kv       *keyValue.KV
	hub      *hub.Hub
	gen      *snowflake.Generator
	jwt      *jwt.Issuer
	users    *identity.SQLStore
	rel      *relationships.Ledger
	members  *memberships.Ledger
	threads  *threads.Service
	messages *messaging.Service
	fanout   *notify.FanOut
	media    *media.TokenIssuer
	blobs    *blob.Store
	validate *playgroundValidator.Validate
}

type Deps struct {
	Sugar    *zap.SugaredLogger
	DB       *sql.DB
	Cfg      *models.ConfigFile
	KV       *keyValue.KV
	Hub      *hub.Hub
	Gen      *snowflake.Generator
	JWT      *jwt.Issuer
	Users    *identity.SQLStore
	Rel      *relationships.Ledger
	Members  *memberships.Ledger
	Threads  *threads.Service
	Messages *messaging.Service
	FanOut   *notify.FanOut
	Media    *media.TokenIssuer
	Blobs    *blob.Store
}

func New(deps Deps) *Handlers {
	return &Handlers{
		sugar:    deps.Sugar,
		db:       deps.DB,
		cfg:      deps.Cfg,
		kv:       deps.KV,
		hub:      deps.Hub,
		gen:      deps.Gen,
		jwt:      deps.JWT,
		users:    deps.Users,
		rel:      deps.Rel,
		members:  deps.Members,
		threads:  deps.Threads,
		messages: deps.Messages,
		fanout:   deps.FanOut,
		media:    deps.Media,
		blobs:    deps.Blobs,
		validate: playgroundValidator.New(),
	}
}

// Router builds the chi router. Split from Serve so tests can mount it
// on an httptest server.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()

	if h.cfg.PrintHttpRequests {
		r.Use(middleware.Logger)
	}

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
			r.With(h.UserVerifier).Get("/newSession", h.NewSession)
			r.With(h.UserVerifier).Get("/isLoggedIn", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		})

		api.Route("/user", func(r chi.Router) {
			r.Use(h.UserVerifier)
			r.Get("/fetch", h.GetUserInfo)
			r.Get("/find", h.FindUser)
			r.Post("/update", h.UpdateUserInfo)
			r.Post("/heartbeat", h.Heartbeat)
			r.Post("/offline", h.GoOffline)
		})

		api.Route("/relationships", func(r chi.Router) {
			r.Use(h.UserVerifier)
			r.With(h.SessionVerifier).Get("/fetch", h.GetRelationships)
			r.Post("/request", h.SendFriendRequest)
			r.Post("/respond", h.RespondToRequest)
			r.Post("/cancel", h.CancelRequest)
			r.Post("/removeFriend", h.RemoveFriend)
			r.Post("/block", h.BlockUser)
			r.Post("/unblock", h.UnblockUser)
		})

		api.Route("/server", func(r chi.Router) {
			r.Use(h.UserVerifier)
			r.Post("/create", h.CreateServer)
			r.With(h.SessionVerifier).Get("/fetch", h.GetServerList)
			r.Post("/update", h.UpdateServer)
			r.Post("/delete", h.DeleteServer)
			r.Post("/join", h.JoinServer)
			r.Post("/leave", h.LeaveServer)
			r.Post("/regenerateInvite", h.RegenerateInvite)
		})

		api.Route("/members", func(r chi.Router) {
			r.Use(h.UserVerifier)
			r.With(h.SessionVerifier).Get("/fetch", h.GetMemberList)
			r.Post("/kick", h.KickMember)
			r.Post("/role", h.ChangeMemberRole)
			r.Post("/nickname", h.SetNickname)
		})

		api.Route("/channel", func(r chi.Router) {
			r.Use(h.UserVerifier)
			r.Post("/create", h.CreateChannel)
			r.Get("/fetch", h.GetChannelList)
			r.Post("/edit", h.EditChannel)
			r.Post("/delete", h.DeleteChannel)
		})

		api.Route("/message", func(r chi.Router) {
			r.Use(h.UserVerifier)
			r.Post("/create", h.CreateMessage)
			r.With(h.SessionVerifier).Get("/fetch", h.GetMessageList)
			r.Post("/edit", h.EditMessage)
			r.Post("/delete", h.DeleteMessage)
		})

		api.Route("/thread", func(r chi.Router) {
			r.Use(h.UserVerifier)
			r.Post("/open", h.OpenThread)
			r.With(h.SessionVerifier).Get("/fetch", h.GetThreadList)
			r.With(h.SessionVerifier).Get("/messages", h.GetThreadMessages)
			r.Post("/send", h.SendThreadMessage)
		})

		api.Route("/notifications", func(r chi.Router) {
			r.Use(h.UserVerifier)
			r.With(h.SessionVerifier).Get("/fetch", h.GetNotifications)
			r.Post("/drain", h.DrainNotifications)
		})

		api.With(h.UserVerifier).Get("/media/token", h.GetMediaToken)
	})

	var websocketPath string

	if h.cfg.BehindNginx {
		websocketPath = "/ws/"
	} else {
		websocketPath = "/ws"
		r.Handle("/cdn/*", http.StripPrefix("/cdn/", http.FileServer(http.Dir("./public"))))
		r.Handle("/*", http.FileServer(http.Dir("./public/static")))
	}

	r.With(h.UserVerifier).Get(websocketPath, h.HandleWebSocket)

	return r
}

// Serve blocks on the listener.
func (h *Handlers) Serve(isHttps bool) error {
	address := fmt.Sprintf("%s:%s", h.cfg.Address, h.cfg.Port)

	if isHttps {
		return http.ListenAndServeTLS(address, h.cfg.TlsCert, h.cfg.TlsKey, h.Router())
	}
	return http.ListenAndServe(address, h.Router())
}
