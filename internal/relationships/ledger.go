package relationships

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chatgraph-backend/internal/apperrors"
	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/models"
	"chatgraph-backend/internal/snowflake"

	"go.uber.org/zap"
)

// Ledger owns friendship and block edges. Every mutation is pushed to
// both users' relationship streams before the call returns.
type Ledger struct {
	db      *sql.DB
	hub     *hub.Hub
	gen     *snowflake.Generator
	sugar   *zap.SugaredLogger
	timeout time.Duration
}

func NewLedger(db *sql.DB, h *hub.Hub, gen *snowflake.Generator, sugar *zap.SugaredLogger, timeout time.Duration) *Ledger {
	return &Ledger{db: db, hub: h, gen: gen, sugar: sugar, timeout: timeout}
}

func (l *Ledger) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, l.timeout)
}

// SendFriendRequest creates a pending friendship edge from sender to
// receiver. A block in either direction wins over the request; an edge
// already existing in any state is rejected as a duplicate. The
// unordered pair is unique at the schema level, so two requests racing
// past the existence check cannot both commit.
func (l *Ledger) SendFriendRequest(ctx context.Context, senderID int64, receiverID int64) (models.Friendship, error) {
	if senderID == receiverID {
		return models.Friendship{}, apperrors.InvalidArg("cannot send a friend request to yourself")
	}

	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	blocked, err := l.BlockedEitherWay(ctx, senderID, receiverID)
	if err != nil {
		return models.Friendship{}, err
	}
	if blocked {
		return models.Friendship{}, apperrors.ErrBlocked
	}

	exists, err := l.friendshipExists(ctx, senderID, receiverID)
	if err != nil {
		return models.Friendship{}, apperrors.Normalize(err)
	}
	if exists {
		return models.Friendship{}, apperrors.ErrAlreadyRequested
	}

	id, err := l.gen.Generate()
	if err != nil {
		return models.Friendship{}, err
	}

	friendship := models.Friendship{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Accepted:   false,
		CreatedAt:  snowflake.Timestamp(id),
	}

	pairLow, pairHigh := orderPair(senderID, receiverID)

	_, err = l.db.ExecContext(ctx,
		"INSERT INTO friendships (id, sender_id, receiver_id, pair_low, pair_high, accepted) VALUES (?, ?, ?, ?, ?, FALSE)",
		friendship.ID, friendship.SenderID, friendship.ReceiverID, pairLow, pairHigh)
	if err != nil {
		err = apperrors.Normalize(err)
		if apperrors.Is(err, apperrors.CodeAlreadyExists) {
			return models.Friendship{}, apperrors.ErrAlreadyRequested
		}
		return models.Friendship{}, err
	}

	l.emitToPair(hub.FriendRequestCreated, senderID, receiverID, friendship)

	return friendship, nil
}

// RespondToRequest accepts or rejects a pending request. Only the
// receiver may respond. A request deleted in a race surfaces NotFound.
func (l *Ledger) RespondToRequest(ctx context.Context, actorID int64, requestID int64, accept bool) error {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	var friendship models.Friendship
	err := l.db.QueryRowContext(ctx,
		"SELECT id, sender_id, receiver_id, accepted FROM friendships WHERE id = ?", requestID).
		Scan(&friendship.ID, &friendship.SenderID, &friendship.ReceiverID, &friendship.Accepted)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrRequestNotFound
	} else if err != nil {
		return apperrors.Normalize(err)
	}

	if friendship.ReceiverID != actorID {
		return apperrors.Forbidden("only the receiver can respond to a friend request")
	}
	if friendship.Accepted {
		return apperrors.ErrAlreadyFriends
	}

	if accept {
		result, err := l.db.ExecContext(ctx,
			"UPDATE friendships SET accepted = TRUE WHERE id = ? AND accepted = FALSE", requestID)
		if err != nil {
			return apperrors.Normalize(err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return apperrors.ErrRequestNotFound
		}

		friendship.Accepted = true
		l.emitToPair(hub.FriendshipAccepted, friendship.SenderID, friendship.ReceiverID, friendship)

		return nil
	}

	result, err := l.db.ExecContext(ctx, "DELETE FROM friendships WHERE id = ?", requestID)
	if err != nil {
		return apperrors.Normalize(err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperrors.ErrRequestNotFound
	}

	l.emitToPair(hub.FriendRequestRemoved, friendship.SenderID, friendship.ReceiverID, friendship)

	return nil
}

// CancelRequest withdraws a pending request the actor sent. Cancelling a
// request that no longer exists is a no-op.
func (l *Ledger) CancelRequest(ctx context.Context, actorID int64, requestID int64) error {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	var receiverID int64
	err := l.db.QueryRowContext(ctx,
		"SELECT receiver_id FROM friendships WHERE id = ? AND sender_id = ? AND accepted = FALSE", requestID, actorID).
		Scan(&receiverID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	} else if err != nil {
		return apperrors.Normalize(err)
	}

	_, err = l.db.ExecContext(ctx,
		"DELETE FROM friendships WHERE id = ? AND sender_id = ? AND accepted = FALSE", requestID, actorID)
	if err != nil {
		return apperrors.Normalize(err)
	}

	l.emitToPair(hub.FriendRequestRemoved, actorID, receiverID, requestID)

	return nil
}

// RemoveFriendship deletes whatever friendship edge exists between the
// pair. Idempotent: removing an absent edge succeeds.
func (l *Ledger) RemoveFriendship(ctx context.Context, actorID int64, otherID int64) error {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	if err := l.deleteFriendshipBetween(ctx, l.db, actorID, otherID); err != nil {
		return apperrors.Normalize(err)
	}

	l.emitToPair(hub.FriendshipRemoved, actorID, otherID, map[string]int64{
		"userA": actorID,
		"userB": otherID,
	})

	return nil
}

// Block creates a directional block edge. Blocking supersedes
// friendship: any edge between the pair, pending or accepted, is removed
// in the same transaction.
func (l *Ledger) Block(ctx context.Context, blockerID int64, blockedID int64) error {
	if blockerID == blockedID {
		return apperrors.InvalidArg("cannot block yourself")
	}

	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	exists, err := l.blockExists(ctx, blockerID, blockedID)
	if err != nil {
		return apperrors.Normalize(err)
	}
	if exists {
		return apperrors.AlreadyExists("user is already blocked")
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Normalize(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO blocks (blocker_id, blocked_id) VALUES (?, ?)", blockerID, blockedID); err != nil {
		return apperrors.Normalize(err)
	}

	if err := l.deleteFriendshipBetween(ctx, tx, blockerID, blockedID); err != nil {
		return apperrors.Normalize(err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Normalize(err)
	}

	l.emitToPair(hub.UserBlocked, blockerID, blockedID, models.Block{
		BlockerID: blockerID,
		BlockedID: blockedID,
		CreatedAt: time.Now().UTC(),
	})

	return nil
}

// Unblock removes the block edge. The prior friendship, if any, is not
// restored. Idempotent.
func (l *Ledger) Unblock(ctx context.Context, blockerID int64, blockedID int64) error {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	_, err := l.db.ExecContext(ctx,
		"DELETE FROM blocks WHERE blocker_id = ? AND blocked_id = ?", blockerID, blockedID)
	if err != nil {
		return apperrors.Normalize(err)
	}

	l.emitToPair(hub.UserUnblocked, blockerID, blockedID, map[string]int64{
		"blockerID": blockerID,
		"blockedID": blockedID,
	})

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func orderPair(userA int64, userB int64) (int64, int64) {
	if userA < userB {
		return userA, userB
	}
	return userB, userA
}

func (l *Ledger) deleteFriendshipBetween(ctx context.Context, db execer, userA int64, userB int64) error {
	_, err := db.ExecContext(ctx,
		"DELETE FROM friendships WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userA, userB, userB, userA)
	return err
}

func (l *Ledger) friendshipExists(ctx context.Context, userA int64, userB int64) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM friendships WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
		userA, userB, userB, userA).Scan(&exists)
	return exists, err
}

func (l *Ledger) blockExists(ctx context.Context, blockerID int64, blockedID int64) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", blockerID, blockedID).Scan(&exists)
	return exists, err
}

func (l *Ledger) blockExistsEitherDirection(ctx context.Context, userA int64, userB int64) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM blocks WHERE (blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?))",
		userA, userB, userB, userA).Scan(&exists)
	return exists, err
}

func (l *Ledger) emitToPair(event string, userA int64, userB int64, payload any) {
	for _, userID := range []int64{userA, userB} {
		if err := l.hub.Emit(event, hub.RelationshipsKey(userID), payload); err != nil {
			l.sugar.Error(err)
		}
	}
}
