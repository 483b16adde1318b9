package memberships

import (
	"context"
	"database/sql"
	"errors"

	"chatgraph-backend/internal/apperrors"
	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/models"
)

// CreateChannel adds a text or voice channel. Admin or owner only.
func (l *Ledger) CreateChannel(ctx context.Context, actorID int64, serverID int64, name string, chType models.ChannelType) (models.Channel, error) {
	if chType != models.ChannelText && chType != models.ChannelVoice {
		return models.Channel{}, apperrors.InvalidArg("channel type must be text or voice")
	}
	if name == "" {
		name = "New Channel"
	}

	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	if err := l.requireAdmin(ctx, serverID, actorID); err != nil {
		return models.Channel{}, err
	}

	channelID, err := l.gen.Generate()
	if err != nil {
		return models.Channel{}, err
	}

	channel := models.Channel{
		ID:       channelID,
		ServerID: serverID,
		Name:     name,
		Type:     chType,
	}

	_, err = l.db.ExecContext(ctx,
		"INSERT INTO channels (id, server_id, name, type) VALUES (?, ?, ?, ?)",
		channel.ID, channel.ServerID, channel.Name, channel.Type)
	if err != nil {
		return models.Channel{}, apperrors.Normalize(err)
	}

	l.emitServer(hub.ChannelCreated, serverID, channel)

	return channel, nil
}

// EditChannel renames a channel. Admin or owner only.
func (l *Ledger) EditChannel(ctx context.Context, actorID int64, channelID int64, name string) error {
	if name == "" {
		return apperrors.InvalidArg("channel name can't be empty")
	}

	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	channel, err := l.GetChannel(ctx, channelID)
	if err != nil {
		return err
	}

	if err := l.requireAdmin(ctx, channel.ServerID, actorID); err != nil {
		return err
	}

	_, err = l.db.ExecContext(ctx, "UPDATE channels SET name = ? WHERE id = ?", name, channelID)
	if err != nil {
		return apperrors.Normalize(err)
	}

	channel.Name = name
	l.emitServer(hub.ChannelModified, channel.ServerID, channel)

	return nil
}

// DeleteChannel removes a channel; a text channel's messages go first so
// an interrupted delete can be retried. Deleting an already-deleted
// channel is a no-op.
func (l *Ledger) DeleteChannel(ctx context.Context, actorID int64, channelID int64) error {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	channel, err := l.GetChannel(ctx, channelID)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		return nil
	} else if err != nil {
		return err
	}

	if err := l.requireAdmin(ctx, channel.ServerID, actorID); err != nil {
		return err
	}

	if channel.Type == models.ChannelText {
		if _, err := l.db.ExecContext(ctx, "DELETE FROM messages WHERE channel_id = ?", channelID); err != nil {
			return apperrors.Normalize(err)
		}
	}

	if _, err := l.db.ExecContext(ctx, "DELETE FROM channels WHERE id = ?", channelID); err != nil {
		return apperrors.Normalize(err)
	}

	l.emitServer(hub.ChannelDeleted, channel.ServerID, channelID)

	return nil
}

func (l *Ledger) GetChannel(ctx context.Context, channelID int64) (models.Channel, error) {
	var channel models.Channel
	err := l.db.QueryRowContext(ctx,
		"SELECT id, server_id, name, type FROM channels WHERE id = ?", channelID).
		Scan(&channel.ID, &channel.ServerID, &channel.Name, &channel.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, apperrors.NotFound("channel not found")
	} else if err != nil {
		return models.Channel{}, apperrors.Normalize(err)
	}
	return channel, nil
}
