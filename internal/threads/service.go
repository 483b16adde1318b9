package threads

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chatgraph-backend/internal/apperrors"
	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/models"
	"chatgraph-backend/internal/privacy"
	"chatgraph-backend/internal/relationships"
	"chatgraph-backend/internal/snowflake"

	"go.uber.org/zap"
)

// Service owns direct threads: one lazily created thread per unordered
// user pair, partitioned at read time by the privacy evaluator.
type Service struct {
	db        *sql.DB
	hub       *hub.Hub
	gen       *snowflake.Generator
	rel       *relationships.Ledger
	evaluator privacy.Evaluator
	sugar     *zap.SugaredLogger
	timeout   time.Duration
}

func NewService(db *sql.DB, h *hub.Hub, gen *snowflake.Generator, rel *relationships.Ledger, evaluator privacy.Evaluator, sugar *zap.SugaredLogger, timeout time.Duration) *Service {
	return &Service{db: db, hub: h, gen: gen, rel: rel, evaluator: evaluator, sugar: sugar, timeout: timeout}
}

// View is a thread joined with the peer's user record and the partition
// it lands in for the requesting user.
type View struct {
	Thread    models.DirectThread `json:"thread"`
	Peer      models.User         `json:"peer"`
	Partition string              `json:"partition"`
}

func orderPair(userA int64, userB int64) (int64, int64) {
	if userA < userB {
		return userA, userB
	}
	return userB, userA
}

// Open returns the thread between the pair, creating it if this is the
// first contact.
func (s *Service) Open(ctx context.Context, userID int64, otherID int64) (models.DirectThread, error) {
	if userID == otherID {
		return models.DirectThread{}, apperrors.InvalidArg("cannot open a thread with yourself")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lowID, highID := orderPair(userID, otherID)

	var thread models.DirectThread
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_low_id, user_high_id, created_at FROM direct_threads WHERE user_low_id = ? AND user_high_id = ?",
		lowID, highID).
		Scan(&thread.ID, &thread.UserLowID, &thread.UserHighID, &thread.CreatedAt)
	if err == nil {
		return thread, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return models.DirectThread{}, apperrors.Normalize(err)
	}

	id, err := s.gen.Generate()
	if err != nil {
		return models.DirectThread{}, err
	}

	thread = models.DirectThread{
		ID:         id,
		UserLowID:  lowID,
		UserHighID: highID,
		CreatedAt:  snowflake.Timestamp(id),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO direct_threads (id, user_low_id, user_high_id) VALUES (?, ?, ?)",
		thread.ID, thread.UserLowID, thread.UserHighID)
	if err != nil {
		return models.DirectThread{}, apperrors.Normalize(err)
	}

	for _, memberID := range []int64{userID, otherID} {
		if emitErr := s.hub.Emit(hub.ThreadOpened, hub.ThreadsKey(memberID), thread); emitErr != nil {
			s.sugar.Error(emitErr)
		}
	}

	return thread, nil
}

// Get returns the thread by ID, Forbidden unless the caller is one of
// the pair.
func (s *Service) Get(ctx context.Context, userID int64, threadID int64) (models.DirectThread, error) {
	var thread models.DirectThread
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_low_id, user_high_id, created_at FROM direct_threads WHERE id = ?", threadID).
		Scan(&thread.ID, &thread.UserLowID, &thread.UserHighID, &thread.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DirectThread{}, apperrors.NotFound("thread not found")
	} else if err != nil {
		return models.DirectThread{}, apperrors.Normalize(err)
	}

	if thread.UserLowID != userID && thread.UserHighID != userID {
		return models.DirectThread{}, apperrors.Forbidden("you are not part of this thread")
	}

	return thread, nil
}

// Peer returns the other user of a thread.
func (s *Service) Peer(thread models.DirectThread, userID int64) int64 {
	if thread.UserLowID == userID {
		return thread.UserHighID
	}
	return thread.UserLowID
}

// List partitions the caller's threads into active conversations and
// message requests. The partition is re-derived on every fetch from the
// caller's current policy, friend set and block set, so accepting a
// friend or replying moves a thread without any stored state.
func (s *Service) List(ctx context.Context, userID int64) (active []View, requests []View, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var policy models.DirectMessagePolicy
	err = s.db.QueryRowContext(ctx, "SELECT dm_policy FROM users WHERE id = ?", userID).Scan(&policy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperrors.NotFound("user not found")
	} else if err != nil {
		return nil, nil, apperrors.Normalize(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_low_id, t.user_high_id, t.created_at,
		       u.id, u.username, u.display_name, u.picture
		FROM direct_threads t
		JOIN users u ON u.id = CASE WHEN t.user_low_id = ? THEN t.user_high_id ELSE t.user_low_id END
		WHERE t.user_low_id = ? OR t.user_high_id = ?`,
		userID, userID, userID)
	if err != nil {
		return nil, nil, apperrors.Normalize(err)
	}
	defer rows.Close()

	type row struct {
		thread models.DirectThread
		peer   models.User
	}
	threadRows := []row{}

	for rows.Next() {
		var tr row
		err := rows.Scan(&tr.thread.ID, &tr.thread.UserLowID, &tr.thread.UserHighID, &tr.thread.CreatedAt,
			&tr.peer.ID, &tr.peer.UserName, &tr.peer.DisplayName, &tr.peer.Picture)
		if err != nil {
			return nil, nil, err
		}
		threadRows = append(threadRows, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.Normalize(err)
	}

	active = []View{}
	requests = []View{}

	for _, tr := range threadRows {
		isFriend, err := s.rel.AreFriends(ctx, userID, tr.peer.ID)
		if err != nil {
			return nil, nil, err
		}

		blocked, err := s.rel.HasBlocked(ctx, userID, tr.peer.ID)
		if err != nil {
			return nil, nil, err
		}

		replied, err := s.hasReplied(ctx, tr.thread.ID, userID)
		if err != nil {
			return nil, nil, err
		}

		partition := s.evaluator.Classify(policy, isFriend, blocked, replied)

		view := View{Thread: tr.thread, Peer: tr.peer, Partition: partition.String()}

		switch partition {
		case privacy.PartitionActive:
			active = append(active, view)
		case privacy.PartitionRequests:
			requests = append(requests, view)
		case privacy.PartitionHidden:
			// suppressed for this user; the peer still sees their side
		}
	}

	return active, requests, nil
}

func (s *Service) hasReplied(ctx context.Context, threadID int64, userID int64) (bool, error) {
	var replied bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM messages WHERE thread_id = ? AND user_id = ?)", threadID, userID).Scan(&replied)
	return replied, apperrors.Normalize(err)
}
