package relationships

import (
	"context"

	"chatgraph-backend/internal/apperrors"
	"chatgraph-backend/internal/models"
)

// ListFriends returns the accepted friend set of a user, both
// orientations of the edge included.
func (l *Ledger) ListFriends(ctx context.Context, userID int64) ([]models.User, error) {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.display_name, u.picture
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.sender_id = ? THEN f.receiver_id ELSE f.sender_id END
		WHERE f.accepted = TRUE AND (f.sender_id = ? OR f.receiver_id = ?)`,
		userID, userID, userID)
	if err != nil {
		return nil, apperrors.Normalize(err)
	}
	defer rows.Close()

	friends := []models.User{}

	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.UserName, &user.DisplayName, &user.Picture); err != nil {
			return nil, err
		}
		friends = append(friends, user)
	}

	return friends, apperrors.Normalize(rows.Err())
}

// ListRequests returns pending requests involving the user, incoming
// when the user is the receiver and outgoing when the sender.
func (l *Ledger) ListRequests(ctx context.Context, userID int64) (incoming []models.Friendship, outgoing []models.Friendship, err error) {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	rows, err := l.db.QueryContext(ctx,
		"SELECT id, sender_id, receiver_id, accepted, created_at FROM friendships WHERE accepted = FALSE AND (sender_id = ? OR receiver_id = ?)",
		userID, userID)
	if err != nil {
		return nil, nil, apperrors.Normalize(err)
	}
	defer rows.Close()

	incoming = []models.Friendship{}
	outgoing = []models.Friendship{}

	for rows.Next() {
		var f models.Friendship
		if err := rows.Scan(&f.ID, &f.SenderID, &f.ReceiverID, &f.Accepted, &f.CreatedAt); err != nil {
			return nil, nil, err
		}
		if f.ReceiverID == userID {
			incoming = append(incoming, f)
		} else {
			outgoing = append(outgoing, f)
		}
	}

	return incoming, outgoing, apperrors.Normalize(rows.Err())
}

func (l *Ledger) ListBlocked(ctx context.Context, blockerID int64) ([]models.User, error) {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.display_name, u.picture
		FROM blocks b
		JOIN users u ON u.id = b.blocked_id
		WHERE b.blocker_id = ?`, blockerID)
	if err != nil {
		return nil, apperrors.Normalize(err)
	}
	defer rows.Close()

	blocked := []models.User{}

	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.UserName, &user.DisplayName, &user.Picture); err != nil {
			return nil, err
		}
		blocked = append(blocked, user)
	}

	return blocked, apperrors.Normalize(rows.Err())
}

// AreFriends reports whether an accepted friendship edge exists between
// the pair.
func (l *Ledger) AreFriends(ctx context.Context, userA int64, userB int64) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM friendships WHERE accepted = TRUE AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)))",
		userA, userB, userB, userA).Scan(&exists)
	return exists, apperrors.Normalize(err)
}

// HasBlocked reports whether blocker holds a block against blocked.
func (l *Ledger) HasBlocked(ctx context.Context, blockerID int64, blockedID int64) (bool, error) {
	exists, err := l.blockExists(ctx, blockerID, blockedID)
	return exists, apperrors.Normalize(err)
}

// BlockedEitherWay reports whether any block exists between the pair.
func (l *Ledger) BlockedEitherWay(ctx context.Context, userA int64, userB int64) (bool, error) {
	exists, err := l.blockExistsEitherDirection(ctx, userA, userB)
	return exists, apperrors.Normalize(err)
}
