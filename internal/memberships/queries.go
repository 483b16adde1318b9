package memberships

import (
	"context"
	"database/sql"
	"errors"

	"chatgraph-backend/internal/apperrors"
	"chatgraph-backend/internal/models"
)

func (l *Ledger) GetServer(ctx context.Context, serverID int64) (models.Server, error) {
	var server models.Server
	err := l.db.QueryRowContext(ctx,
		"SELECT id, owner_id, name, picture, invite_code FROM servers WHERE id = ?", serverID).
		Scan(&server.ID, &server.OwnerID, &server.Name, &server.Picture, &server.InviteCode)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Server{}, apperrors.NotFound("server not found")
	} else if err != nil {
		return models.Server{}, apperrors.Normalize(err)
	}
	return server, nil
}

// ListServers returns every server the user is a member of.
func (l *Ledger) ListServers(ctx context.Context, userID int64) ([]models.Server, error) {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, `
		SELECT s.id, s.owner_id, s.name, s.picture, s.invite_code
		FROM servers s
		JOIN server_members m ON s.id = m.server_id
		WHERE m.user_id = ?`, userID)
	if err != nil {
		return nil, apperrors.Normalize(err)
	}
	defer rows.Close()

	servers := []models.Server{}

	for rows.Next() {
		var server models.Server
		if err := rows.Scan(&server.ID, &server.OwnerID, &server.Name, &server.Picture, &server.InviteCode); err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}

	return servers, apperrors.Normalize(rows.Err())
}

// ListMembers returns the full membership of a server with the joined
// user records, the pre-joined view clients consume instead of
// re-deriving it from raw change streams.
func (l *Ledger) ListMembers(ctx context.Context, serverID int64) ([]models.Member, error) {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, `
		SELECT m.server_id, m.user_id, m.role, m.nickname, u.username, u.display_name, u.picture
		FROM server_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.server_id = ?`, serverID)
	if err != nil {
		return nil, apperrors.Normalize(err)
	}
	defer rows.Close()

	members := []models.Member{}

	for rows.Next() {
		var member models.Member
		err := rows.Scan(&member.ServerID, &member.UserID, &member.Role, &member.Nickname,
			&member.User.UserName, &member.User.DisplayName, &member.User.Picture)
		if err != nil {
			return nil, err
		}
		member.User.ID = member.UserID
		members = append(members, member)
	}

	return members, apperrors.Normalize(rows.Err())
}

func (l *Ledger) ListChannels(ctx context.Context, serverID int64) ([]models.Channel, error) {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	rows, err := l.db.QueryContext(ctx,
		"SELECT id, server_id, name, type FROM channels WHERE server_id = ?", serverID)
	if err != nil {
		return nil, apperrors.Normalize(err)
	}
	defer rows.Close()

	channels := []models.Channel{}

	for rows.Next() {
		var channel models.Channel
		if err := rows.Scan(&channel.ID, &channel.ServerID, &channel.Name, &channel.Type); err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}

	return channels, apperrors.Normalize(rows.Err())
}

// RoleOf exposes the member's role, NotFound when not a member.
func (l *Ledger) RoleOf(ctx context.Context, serverID int64, userID int64) (models.Role, error) {
	return l.roleOf(ctx, serverID, userID)
}

// IsMember reports membership without distinguishing roles.
func (l *Ledger) IsMember(ctx context.Context, serverID int64, userID int64) (bool, error) {
	_, err := l.roleOf(ctx, serverID, userID)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// SetNickname updates the member's own per-server nickname.
func (l *Ledger) SetNickname(ctx context.Context, userID int64, serverID int64, nickname string) error {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	result, err := l.db.ExecContext(ctx,
		"UPDATE server_members SET nickname = ? WHERE server_id = ? AND user_id = ?", nickname, serverID, userID)
	if err != nil {
		return apperrors.Normalize(err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperrors.NotFound("user is not a member of this server")
	}

	return nil
}
