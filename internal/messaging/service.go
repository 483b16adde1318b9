package messaging

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chatgraph-backend/internal/apperrors"
	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/memberships"
	"chatgraph-backend/internal/models"
	"chatgraph-backend/internal/notify"
	"chatgraph-backend/internal/snowflake"
	"chatgraph-backend/internal/threads"

	"go.uber.org/zap"
)

// Service posts, edits and deletes messages in text channels and direct
// threads. The message ID is a snowflake, so the original post time
// stays embedded in the ID across edits.
type Service struct {
	db      *sql.DB
	hub     *hub.Hub
	gen     *snowflake.Generator
	members *memberships.Ledger
	threads *threads.Service
	fanout  *notify.FanOut
	sugar   *zap.SugaredLogger
	timeout time.Duration
}

func NewService(db *sql.DB, h *hub.Hub, gen *snowflake.Generator, members *memberships.Ledger, threadSvc *threads.Service, fanout *notify.FanOut, sugar *zap.SugaredLogger, timeout time.Duration) *Service {
	return &Service{db: db, hub: h, gen: gen, members: members, threads: threadSvc, fanout: fanout, sugar: sugar, timeout: timeout}
}

// PostToChannel stores a message in a text channel and fans out
// notifications to the other members.
func (s *Service) PostToChannel(ctx context.Context, userID int64, channelID int64, content string, attachment string, attachmentSize int64) (models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	channel, err := s.members.GetChannel(ctx, channelID)
	if err != nil {
		return models.Message{}, err
	}
	if channel.Type != models.ChannelText {
		return models.Message{}, apperrors.InvalidArg("messages can only be posted to text channels")
	}

	isMember, err := s.members.IsMember(ctx, channel.ServerID, userID)
	if err != nil {
		return models.Message{}, err
	}
	if !isMember {
		return models.Message{}, apperrors.Forbidden("you are not a member of this server")
	}

	msg, err := s.insert(ctx, userID, content, attachment, attachmentSize, channelID, 0)
	if err != nil {
		return models.Message{}, err
	}

	if err := s.hub.Emit(hub.MessageCreated, hub.ChannelKey(channelID), msg); err != nil {
		s.sugar.Error(err)
	}

	if err := s.fanout.ChannelMessage(ctx, channel.ServerID, msg, msg.User.DisplayName); err != nil {
		return models.Message{}, err
	}

	return msg, nil
}

// PostToThread stores a direct message. The sender may always post;
// whether the peer sees the thread is decided at the peer's read time by
// the privacy evaluator.
func (s *Service) PostToThread(ctx context.Context, userID int64, threadID int64, content string, attachment string, attachmentSize int64) (models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	thread, err := s.threads.Get(ctx, userID, threadID)
	if err != nil {
		return models.Message{}, err
	}

	msg, err := s.insert(ctx, userID, content, attachment, attachmentSize, 0, threadID)
	if err != nil {
		return models.Message{}, err
	}

	if err := s.hub.Emit(hub.MessageCreated, hub.ThreadKey(threadID), msg); err != nil {
		s.sugar.Error(err)
	}

	peerID := s.threads.Peer(thread, userID)
	if err := s.fanout.DirectMessage(ctx, peerID, msg, msg.User.DisplayName); err != nil {
		return models.Message{}, err
	}

	return msg, nil
}

// Edit replaces the content of the caller's own message and marks it
// edited. The ID, and with it the original timestamp, never changes.
func (s *Service) Edit(ctx context.Context, userID int64, messageID int64, content string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg, err := s.get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.UserID != userID {
		return apperrors.Forbidden("you can only edit your own messages")
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE messages SET message = ?, edited = TRUE WHERE id = ?", content, messageID)
	if err != nil {
		return apperrors.Normalize(err)
	}

	msg.Message = content
	msg.Edited = true

	if err := s.hub.Emit(hub.MessageModified, s.streamKey(msg), msg); err != nil {
		s.sugar.Error(err)
	}

	return nil
}

// Delete removes the caller's own message entirely, no tombstone.
// Deleting an already-deleted message is a no-op.
func (s *Service) Delete(ctx context.Context, userID int64, messageID int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg, err := s.get(ctx, messageID)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		return nil
	} else if err != nil {
		return err
	}

	if msg.UserID != userID {
		return apperrors.Forbidden("you can only delete your own messages")
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", messageID)
	if err != nil {
		return apperrors.Normalize(err)
	}

	if err := s.hub.Emit(hub.MessageDeleted, s.streamKey(msg), messageID); err != nil {
		s.sugar.Error(err)
	}

	return nil
}

// ListChannel returns a text channel's messages joined with sender
// records, members only.
func (s *Service) ListChannel(ctx context.Context, userID int64, channelID int64) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	channel, err := s.members.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	isMember, err := s.members.IsMember(ctx, channel.ServerID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, apperrors.Forbidden("you are not a member of this server")
	}

	return s.list(ctx, "channel_id", channelID)
}

// ListThread returns a direct thread's messages, participants only.
func (s *Service) ListThread(ctx context.Context, userID int64, threadID int64) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.threads.Get(ctx, userID, threadID); err != nil {
		return nil, err
	}

	return s.list(ctx, "thread_id", threadID)
}

func (s *Service) insert(ctx context.Context, userID int64, content string, attachment string, attachmentSize int64, channelID int64, threadID int64) (models.Message, error) {
	id, err := s.gen.Generate()
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:             id,
		ChannelID:      channelID,
		ThreadID:       threadID,
		UserID:         userID,
		Message:        content,
		Attachment:     attachment,
		AttachmentSize: attachmentSize,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, channel_id, thread_id, user_id, message, attachment, attachment_size, edited)
		VALUES (?, ?, ?, ?, ?, ?, ?, FALSE)`,
		msg.ID, nullableID(channelID), nullableID(threadID), msg.UserID, msg.Message, msg.Attachment, msg.AttachmentSize)
	if err != nil {
		return models.Message{}, apperrors.Normalize(err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT display_name, picture FROM users WHERE id = ?", userID).
		Scan(&msg.User.DisplayName, &msg.User.Picture)
	if err != nil {
		return models.Message{}, apperrors.Normalize(err)
	}

	return msg, nil
}

func (s *Service) get(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(channel_id, 0), COALESCE(thread_id, 0), user_id, message, attachment, attachment_size, edited
		FROM messages WHERE id = ?`, messageID).
		Scan(&msg.ID, &msg.ChannelID, &msg.ThreadID, &msg.UserID, &msg.Message, &msg.Attachment, &msg.AttachmentSize, &msg.Edited)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, apperrors.NotFound("message not found")
	} else if err != nil {
		return models.Message{}, apperrors.Normalize(err)
	}
	return msg, nil
}

func (s *Service) list(ctx context.Context, column string, parentID int64) ([]models.Message, error) {
	query := `
		SELECT m.id, COALESCE(m.channel_id, 0), COALESCE(m.thread_id, 0), m.user_id,
		       m.message, m.attachment, m.attachment_size, m.edited,
		       u.display_name, u.picture
		FROM messages m
		JOIN users u ON m.user_id = u.id
		WHERE m.` + column + ` = ?
		ORDER BY m.id`

	rows, err := s.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, apperrors.Normalize(err)
	}
	defer rows.Close()

	messages := []models.Message{}

	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.ChannelID, &msg.ThreadID, &msg.UserID,
			&msg.Message, &msg.Attachment, &msg.AttachmentSize, &msg.Edited,
			&msg.User.DisplayName, &msg.User.Picture)
		if err != nil {
			return nil, err
		}
		msg.User.ID = msg.UserID
		messages = append(messages, msg)
	}

	return messages, apperrors.Normalize(rows.Err())
}

func (s *Service) streamKey(msg models.Message) string {
	if msg.ThreadID != 0 {
		return hub.ThreadKey(msg.ThreadID)
	}
	return hub.ChannelKey(msg.ChannelID)
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
