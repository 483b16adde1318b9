package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chatgraph-backend/internal/apperrors"
	"chatgraph-backend/internal/keyValue"
	"chatgraph-backend/internal/models"

	"go.uber.org/zap"
)

// Store is the identity collaborator the ledgers consume. The default
// implementation is SQL-backed; the interface keeps the boundary explicit
// so a managed identity provider can stand in.
type Store interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
	FindUserByUsername(ctx context.Context, username string) (models.User, error)
	UpdateUser(ctx context.Context, id int64, fields UpdateFields) error
}

// UpdateFields carries the optional fields of a partial user update. Nil
// means "leave unchanged".
type UpdateFields struct {
	DisplayName  *string
	CustomStatus *string
	Picture      *string
	DMPolicy     *models.DirectMessagePolicy
}

const presenceTTL = 90 * time.Second

type SQLStore struct {
	db    *sql.DB
	kv    *keyValue.KV
	sugar *zap.SugaredLogger
}

func NewSQLStore(db *sql.DB, kv *keyValue.KV, sugar *zap.SugaredLogger) *SQLStore {
	return &SQLStore{db: db, kv: kv, sugar: sugar}
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, display_name, custom_status, picture, dm_policy FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.UserName, &user.DisplayName, &user.CustomStatus, &user.Picture, &user.DMPolicy)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperrors.NotFound("user not found")
	} else if err != nil {
		return models.User{}, err
	}

	user.Online = s.IsOnline(ctx, id)

	return user, nil
}

// FindUserByUsername is a case-sensitive exact lookup.
func (s *SQLStore) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, display_name, custom_status, picture, dm_policy FROM users WHERE username = ?", username).
		Scan(&user.ID, &user.UserName, &user.DisplayName, &user.CustomStatus, &user.Picture, &user.DMPolicy)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperrors.NotFound("user not found")
	} else if err != nil {
		return models.User{}, err
	}

	user.Online = s.IsOnline(ctx, user.ID)

	return user, nil
}

func (s *SQLStore) UpdateUser(ctx context.Context, userID int64, fields UpdateFields) error {
	if fields.DisplayName != nil {
		if _, err := s.db.ExecContext(ctx, "UPDATE users SET display_name = ? WHERE id = ?", *fields.DisplayName, userID); err != nil {
			return err
		}
	}

	if fields.CustomStatus != nil {
		if _, err := s.db.ExecContext(ctx, "UPDATE users SET custom_status = ? WHERE id = ?", *fields.CustomStatus, userID); err != nil {
			return err
		}
	}

	if fields.Picture != nil {
		if _, err := s.db.ExecContext(ctx, "UPDATE users SET picture = ? WHERE id = ?", *fields.Picture, userID); err != nil {
			return err
		}
	}

	if fields.DMPolicy != nil {
		policy := *fields.DMPolicy
		if policy != models.DMPolicyAllow && policy != models.DMPolicyRequest && policy != models.DMPolicyBlock {
			return apperrors.InvalidArg("unknown direct message policy")
		}
		if _, err := s.db.ExecContext(ctx, "UPDATE users SET dm_policy = ? WHERE id = ?", policy, userID); err != nil {
			return err
		}
	}

	return nil
}

// Heartbeat marks a user online until the presence key expires.
func (s *SQLStore) Heartbeat(ctx context.Context, userID int64) error {
	return s.kv.Set(ctx, presenceKey(userID), "y", presenceTTL)
}

func (s *SQLStore) SetOffline(ctx context.Context, userID int64) error {
	return s.kv.Delete(ctx, presenceKey(userID))
}

func (s *SQLStore) IsOnline(ctx context.Context, userID int64) bool {
	value, err := s.kv.Get(ctx, presenceKey(userID))
	if err != nil {
		s.sugar.Error(err)
		return false
	}
	return value != ""
}

func presenceKey(userID int64) string {
	return fmt.Sprintf("presence:%d", userID)
}
