package notify

import (
	"context"
	"database/sql"
	"time"

	"chatgraph-backend/internal/apperrors"
	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/models"
	"chatgraph-backend/internal/snowflake"

	"go.uber.org/zap"
)

// FanOut turns one posted message into per-recipient notification
// records. Delivery over the realtime stream is at-most-once: a failed
// push is logged and forgotten, the record itself stays until the
// recipient drains it.
type FanOut struct {
	db      *sql.DB
	hub     *hub.Hub
	gen     *snowflake.Generator
	sugar   *zap.SugaredLogger
	timeout time.Duration
}

func New(db *sql.DB, h *hub.Hub, gen *snowflake.Generator, sugar *zap.SugaredLogger, timeout time.Duration) *FanOut {
	return &FanOut{db: db, hub: h, gen: gen, sugar: sugar, timeout: timeout}
}

// ChannelMessage notifies every member of the server except the sender
// and anyone who blocked the sender.
func (f *FanOut) ChannelMessage(ctx context.Context, serverID int64, msg models.Message, senderName string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	rows, err := f.db.QueryContext(ctx, `
		SELECT m.user_id
		FROM server_members m
		WHERE m.server_id = ?
		  AND m.user_id != ?
		  AND NOT EXISTS (SELECT 1 FROM blocks b WHERE b.blocker_id = m.user_id AND b.blocked_id = ?)`,
		serverID, msg.UserID, msg.UserID)
	if err != nil {
		return apperrors.Normalize(err)
	}
	defer rows.Close()

	recipients := []int64{}
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return err
		}
		recipients = append(recipients, userID)
	}
	if err := rows.Err(); err != nil {
		return apperrors.Normalize(err)
	}

	for _, recipientID := range recipients {
		notification := models.Notification{
			RecipientID: recipientID,
			SenderID:    msg.UserID,
			SenderName:  senderName,
			ServerID:    serverID,
			ChannelID:   msg.ChannelID,
			Content:     msg.Message,
		}
		if err := f.record(ctx, &notification); err != nil {
			return err
		}
	}

	return nil
}

// DirectMessage notifies the single peer of a direct thread, unless the
// peer blocked the sender.
func (f *FanOut) DirectMessage(ctx context.Context, recipientID int64, msg models.Message, senderName string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var blocked bool
	err := f.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", recipientID, msg.UserID).Scan(&blocked)
	if err != nil {
		return apperrors.Normalize(err)
	}
	if blocked {
		return nil
	}

	notification := models.Notification{
		RecipientID: recipientID,
		SenderID:    msg.UserID,
		SenderName:  senderName,
		ThreadID:    msg.ThreadID,
		Content:     msg.Message,
	}

	return f.record(ctx, &notification)
}

func (f *FanOut) record(ctx context.Context, notification *models.Notification) error {
	id, err := f.gen.Generate()
	if err != nil {
		return err
	}
	notification.ID = id
	notification.CreatedAt = snowflake.Timestamp(id)

	_, err = f.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, sender_id, sender_name, server_id, channel_id, thread_id, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		notification.ID, notification.RecipientID, notification.SenderID, notification.SenderName,
		nullableID(notification.ServerID), nullableID(notification.ChannelID), nullableID(notification.ThreadID),
		notification.Content)
	if err != nil {
		return apperrors.Normalize(err)
	}

	// best-effort realtime push
	if err := f.hub.Emit(hub.NotificationCreated, hub.NotificationsKey(notification.RecipientID), notification); err != nil {
		f.sugar.Error(err)
	}

	return nil
}

// List returns the recipient's undrained notifications.
func (f *FanOut) List(ctx context.Context, recipientID int64) ([]models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	rows, err := f.db.QueryContext(ctx, `
		SELECT id, recipient_id, sender_id, sender_name,
		       COALESCE(server_id, 0), COALESCE(channel_id, 0), COALESCE(thread_id, 0),
		       content, created_at
		FROM notifications WHERE recipient_id = ?`, recipientID)
	if err != nil {
		return nil, apperrors.Normalize(err)
	}
	defer rows.Close()

	notifications := []models.Notification{}

	for rows.Next() {
		var n models.Notification
		err := rows.Scan(&n.ID, &n.RecipientID, &n.SenderID, &n.SenderName,
			&n.ServerID, &n.ChannelID, &n.ThreadID, &n.Content, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, apperrors.Normalize(rows.Err())
}

// Drain deletes every notification the recipient has, called once the
// client displayed them. Draining an empty queue succeeds.
func (f *FanOut) Drain(ctx context.Context, recipientID int64) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	_, err := f.db.ExecContext(ctx, "DELETE FROM notifications WHERE recipient_id = ?", recipientID)
	return apperrors.Normalize(err)
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
