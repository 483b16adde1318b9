package memberships

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chatgraph-backend/internal/apperrors"
	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/models"
	"chatgraph-backend/internal/snowflake"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger owns server-membership edges and the channels implied by them.
// Role rules are strictly top-down: owner > admin > member, exactly one
// owner per server, ownership not transferable.
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

// CreateServer creates the server, its owner membership and the two
// default channels in one transaction, so a partial failure never leaves
// an orphaned server behind.
func (l *Ledger) CreateServer(ctx context.Context, ownerID int64, name string, picture string) (models.Server, error) {
	if name == "" {
		name = "My server"
	}

	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	serverID, err := l.gen.Generate()
	if err != nil {
		return models.Server{}, err
	}

	server := models.Server{
		ID:         serverID,
		OwnerID:    ownerID,
		Name:       name,
		Picture:    picture,
		InviteCode: uuid.NewString(),
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Server{}, apperrors.Normalize(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO servers (id, owner_id, name, picture, invite_code) VALUES (?, ?, ?, ?, ?)",
		server.ID, server.OwnerID, server.Name, server.Picture, server.InviteCode)
	if err != nil {
		return models.Server{}, apperrors.Normalize(err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO server_members (server_id, user_id, role) VALUES (?, ?, ?)",
		server.ID, ownerID, models.RoleOwner)
	if err != nil {
		return models.Server{}, apperrors.Normalize(err)
	}

	defaults := []struct {
		name   string
		chType models.ChannelType
	}{
		{"general", models.ChannelText},
		{"General", models.ChannelVoice},
	}

	for _, def := range defaults {
		channelID, err := l.gen.Generate()
		if err != nil {
			return models.Server{}, err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO channels (id, server_id, name, type) VALUES (?, ?, ?, ?)",
			channelID, server.ID, def.name, def.chType)
		if err != nil {
			return models.Server{}, apperrors.Normalize(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Server{}, apperrors.Normalize(err)
	}

	return server, nil
}

// JoinByInvite resolves an invite code and adds the caller as a member.
// Joining a server the user already belongs to succeeds and returns the
// server, so clients can redirect instead of erroring.
func (l *Ledger) JoinByInvite(ctx context.Context, userID int64, inviteCode string) (models.Server, error) {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	var server models.Server
	err := l.db.QueryRowContext(ctx,
		"SELECT id, owner_id, name, picture, invite_code FROM servers WHERE invite_code = ?", inviteCode).
		Scan(&server.ID, &server.OwnerID, &server.Name, &server.Picture, &server.InviteCode)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Server{}, apperrors.ErrInvalidInvite
	} else if err != nil {
		return models.Server{}, apperrors.Normalize(err)
	}

	_, err = l.roleOf(ctx, server.ID, userID)
	if err == nil {
		return server, apperrors.ErrAlreadyMember
	} else if !apperrors.Is(err, apperrors.CodeNotFound) {
		return models.Server{}, err
	}

	_, err = l.db.ExecContext(ctx,
		"INSERT INTO server_members (server_id, user_id, role) VALUES (?, ?, ?)",
		server.ID, userID, models.RoleMember)
	if err != nil {
		return models.Server{}, apperrors.Normalize(err)
	}

	l.emitServer(hub.MemberJoined, server.ID, models.Member{
		ServerID: server.ID,
		UserID:   userID,
		Role:     models.RoleMember,
	})

	return server, nil
}

// ChangeRole applies the top-down role rules. expectedCurrent is the
// target's role as last seen by the caller; the update only lands if it
// still matches, otherwise CONFLICT is surfaced so a demotion cannot
// race a kick unnoticed.
func (l *Ledger) ChangeRole(ctx context.Context, actorID int64, serverID int64, targetID int64, newRole models.Role, expectedCurrent models.Role) error {
	if actorID == targetID {
		return apperrors.Forbidden("cannot change your own role")
	}
	if newRole != models.RoleAdmin && newRole != models.RoleMember {
		return apperrors.Forbidden("role can only be set to admin or member")
	}
	if !expectedCurrent.Valid() {
		return apperrors.InvalidArg("unknown role")
	}

	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	actorRole, err := l.roleOf(ctx, serverID, actorID)
	if err != nil {
		return err
	}

	targetRole, err := l.roleOf(ctx, serverID, targetID)
	if err != nil {
		return err
	}

	if targetRole == models.RoleOwner {
		return apperrors.Forbidden("the owner's role cannot be changed")
	}

	switch actorRole {
	case models.RoleOwner:
		// may set admin/member on anyone but self, already excluded
	case models.RoleAdmin:
		if targetRole != models.RoleMember {
			return apperrors.Forbidden("an admin can only change the role of a member")
		}
	default:
		return apperrors.Forbidden("only the owner or an admin can change roles")
	}

	result, err := l.db.ExecContext(ctx,
		"UPDATE server_members SET role = ? WHERE server_id = ? AND user_id = ? AND role = ?",
		newRole, serverID, targetID, expectedCurrent)
	if err != nil {
		return apperrors.Normalize(err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperrors.ErrRoleConflict
	}

	l.emitServer(hub.MemberRoleSet, serverID, models.Member{
		ServerID: serverID,
		UserID:   targetID,
		Role:     newRole,
	})

	return nil
}

// Leave removes the caller's own membership. The owner must delete the
// server instead. Leaving a server one is not in is a no-op.
func (l *Ledger) Leave(ctx context.Context, userID int64, serverID int64) error {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	role, err := l.roleOf(ctx, serverID, userID)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		return nil
	} else if err != nil {
		return err
	}

	if role == models.RoleOwner {
		return apperrors.ErrOwnerCannotLeave
	}

	_, err = l.db.ExecContext(ctx,
		"DELETE FROM server_members WHERE server_id = ? AND user_id = ?", serverID, userID)
	if err != nil {
		return apperrors.Normalize(err)
	}

	l.emitServer(hub.MemberLeft, serverID, models.Member{ServerID: serverID, UserID: userID})

	return nil
}

// Kick removes another member. The actor must strictly outrank the
// target.
func (l *Ledger) Kick(ctx context.Context, actorID int64, serverID int64, targetID int64) error {
	if actorID == targetID {
		return apperrors.Forbidden("cannot kick yourself, leave instead")
	}

	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	actorRole, err := l.roleOf(ctx, serverID, actorID)
	if err != nil {
		return err
	}

	targetRole, err := l.roleOf(ctx, serverID, targetID)
	if err != nil {
		return err
	}

	if !actorRole.Outranks(targetRole) {
		return apperrors.Forbidden("you can only kick members below your own role")
	}

	_, err = l.db.ExecContext(ctx,
		"DELETE FROM server_members WHERE server_id = ? AND user_id = ?", serverID, targetID)
	if err != nil {
		return apperrors.Normalize(err)
	}

	l.emitServer(hub.MemberKicked, serverID, models.Member{ServerID: serverID, UserID: targetID})

	return nil
}

// DeleteServer cascades messages, channels and memberships before the
// server row itself. Each step tolerates already-removed records, so an
// interrupted cascade completes on retry instead of failing.
func (l *Ledger) DeleteServer(ctx context.Context, ownerID int64, serverID int64) error {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	var storedOwnerID int64
	err := l.db.QueryRowContext(ctx, "SELECT owner_id FROM servers WHERE id = ?", serverID).Scan(&storedOwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		// already fully deleted, or a retry of an interrupted cascade
		return nil
	} else if err != nil {
		return apperrors.Normalize(err)
	}

	if storedOwnerID != ownerID {
		return apperrors.Forbidden("only the owner can delete a server")
	}

	steps := []string{
		"DELETE FROM messages WHERE channel_id IN (SELECT id FROM channels WHERE server_id = ?)",
		"DELETE FROM channels WHERE server_id = ?",
		"DELETE FROM server_members WHERE server_id = ?",
		"DELETE FROM servers WHERE id = ?",
	}

	for _, step := range steps {
		if _, err := l.db.ExecContext(ctx, step, serverID); err != nil {
			return apperrors.Normalize(err)
		}
	}

	l.emitServer(hub.ServerDeleted, serverID, serverID)

	return nil
}

// RegenerateInvite invalidates the current invite code and returns a new
// one. Admin or owner only.
func (l *Ledger) RegenerateInvite(ctx context.Context, actorID int64, serverID int64) (string, error) {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	if err := l.requireAdmin(ctx, serverID, actorID); err != nil {
		return "", err
	}

	inviteCode := uuid.NewString()

	_, err := l.db.ExecContext(ctx, "UPDATE servers SET invite_code = ? WHERE id = ?", inviteCode, serverID)
	if err != nil {
		return "", apperrors.Normalize(err)
	}

	return inviteCode, nil
}

// UpdateServer renames the server and/or replaces its icon.
func (l *Ledger) UpdateServer(ctx context.Context, actorID int64, serverID int64, name string, picture string) error {
	ctx, cancel := l.opCtx(ctx)
	defer cancel()

	if err := l.requireAdmin(ctx, serverID, actorID); err != nil {
		return err
	}

	if name != "" {
		if _, err := l.db.ExecContext(ctx, "UPDATE servers SET name = ? WHERE id = ?", name, serverID); err != nil {
			return apperrors.Normalize(err)
		}
	}

	if picture != "" {
		if _, err := l.db.ExecContext(ctx, "UPDATE servers SET picture = ? WHERE id = ?", picture, serverID); err != nil {
			return apperrors.Normalize(err)
		}
	}

	server, err := l.GetServer(ctx, serverID)
	if err != nil {
		return err
	}

	l.emitServer(hub.ServerModified, serverID, server)

	return nil
}

func (l *Ledger) requireAdmin(ctx context.Context, serverID int64, userID int64) error {
	role, err := l.roleOf(ctx, serverID, userID)
	if err != nil {
		return err
	}
	if role != models.RoleOwner && role != models.RoleAdmin {
		return apperrors.Forbidden("admin or owner role required")
	}
	return nil
}

func (l *Ledger) roleOf(ctx context.Context, serverID int64, userID int64) (models.Role, error) {
	var role models.Role
	err := l.db.QueryRowContext(ctx,
		"SELECT role FROM server_members WHERE server_id = ? AND user_id = ?", serverID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NotFound("user is not a member of this server")
	} else if err != nil {
		return "", apperrors.Normalize(err)
	}
	return role, nil
}

func (l *Ledger) emitServer(event string, serverID int64, payload any) {
	if err := l.hub.Emit(event, hub.ServerKey(serverID), payload); err != nil {
		l.sugar.Error(err)
	}
}
