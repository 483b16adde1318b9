package messaging_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"chatgraph-backend/internal/apperrors"
	"chatgraph-backend/internal/database"
	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/memberships"
	"chatgraph-backend/internal/messaging"
	"chatgraph-backend/internal/models"
	"chatgraph-backend/internal/notify"
	"chatgraph-backend/internal/privacy"
	"chatgraph-backend/internal/relationships"
	"chatgraph-backend/internal/snowflake"
	"chatgraph-backend/internal/threads"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	db       *sql.DB
	rel      *relationships.Ledger
	members  *memberships.Ledger
	threads  *threads.Service
	fanout   *notify.FanOut
	messages *messaging.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.SetupMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gen, err := snowflake.New(0)
	require.NoError(t, err)

	sugar := zap.NewNop().Sugar()
	h := hub.New(sugar, nil, true)
	timeout := 10 * time.Second

	rel := relationships.NewLedger(db, h, gen, sugar, timeout)
	members := memberships.NewLedger(db, h, gen, sugar, timeout)
	evaluator := privacy.Evaluator{BlockOverridesRequest: true}
	threadSvc := threads.NewService(db, h, gen, rel, evaluator, sugar, timeout)
	fanout := notify.New(db, h, gen, sugar, timeout)
	messages := messaging.NewService(db, h, gen, members, threadSvc, fanout, sugar, timeout)

	return &fixture{db: db, rel: rel, members: members, threads: threadSvc, fanout: fanout, messages: messages}
}

func (f *fixture) seedUser(t *testing.T, id int64) {
	t.Helper()

	_, err := f.db.Exec(
		"INSERT INTO users (id, email, username, display_name, picture, password) VALUES (?, ?, ?, ?, '', ?)",
		id, fmt.Sprintf("user%d@example.com", id), fmt.Sprintf("user%d", id), fmt.Sprintf("User %d", id), []byte("x"))
	require.NoError(t, err)
}

func (f *fixture) seedServer(t *testing.T, ownerID int64, memberIDs ...int64) (models.Server, models.Channel) {
	t.Helper()
	ctx := context.Background()

	server, err := f.members.CreateServer(ctx, ownerID, "test server", "")
	require.NoError(t, err)

	for _, memberID := range memberIDs {
		_, err := f.members.JoinByInvite(ctx, memberID, server.InviteCode)
		require.NoError(t, err)
	}

	channels, err := f.members.ListChannels(ctx, server.ID)
	require.NoError(t, err)

	for _, channel := range channels {
		if channel.Type == models.ChannelText {
			return server, channel
		}
	}

	t.Fatal("no text channel seeded")
	return models.Server{}, models.Channel{}
}

func TestChannelPostFansOutToNonSenders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		f.seedUser(t, id)
	}
	_, channel := f.seedServer(t, 1, 2, 3, 4, 5)

	_, err := f.messages.PostToChannel(ctx, 1, channel.ID, "hello everyone", "", 0)
	require.NoError(t, err)

	// exactly one notification per non-sender member
	recipients := map[int64]bool{}
	for _, userID := range []int64{1, 2, 3, 4, 5} {
		notifications, err := f.fanout.List(ctx, userID)
		require.NoError(t, err)
		for _, n := range notifications {
			assert.Equal(t, int64(1), n.SenderID)
			assert.Equal(t, "hello everyone", n.Content)
			recipients[n.RecipientID] = true
		}
	}

	assert.Len(t, recipients, 4)
	assert.False(t, recipients[1], "sender must not be notified")
}

func TestChannelFanOutSkipsBlockingMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		f.seedUser(t, id)
	}
	_, channel := f.seedServer(t, 1, 2, 3)

	require.NoError(t, f.rel.Block(ctx, 3, 1))

	_, err := f.messages.PostToChannel(ctx, 1, channel.ID, "hello", "", 0)
	require.NoError(t, err)

	notifications, err := f.fanout.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)

	notifications, err = f.fanout.List(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, notifications, "a member who blocked the sender gets no notification")
}

func TestDrainClearsNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1)
	f.seedUser(t, 2)
	_, channel := f.seedServer(t, 1, 2)

	_, err := f.messages.PostToChannel(ctx, 1, channel.ID, "hello", "", 0)
	require.NoError(t, err)

	require.NoError(t, f.fanout.Drain(ctx, 2))

	notifications, err := f.fanout.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, notifications)

	// draining an empty queue succeeds
	require.NoError(t, f.fanout.Drain(ctx, 2))
}

func TestPostToChannelRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1)
	f.seedUser(t, 2)
	_, channel := f.seedServer(t, 1)

	_, err := f.messages.PostToChannel(ctx, 2, channel.ID, "hello", "", 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestPostToVoiceChannelRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1)
	server, _ := f.seedServer(t, 1)

	channels, err := f.members.ListChannels(ctx, server.ID)
	require.NoError(t, err)

	for _, channel := range channels {
		if channel.Type == models.ChannelVoice {
			_, err := f.messages.PostToChannel(ctx, 1, channel.ID, "hello", "", 0)
			assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArgument))
		}
	}
}

func TestEditKeepsIDAndSetsEditedFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1)
	_, channel := f.seedServer(t, 1)

	msg, err := f.messages.PostToChannel(ctx, 1, channel.ID, "original", "", 0)
	require.NoError(t, err)
	assert.False(t, msg.Edited)

	require.NoError(t, f.messages.Edit(ctx, 1, msg.ID, "amended"))

	listed, err := f.messages.ListChannel(ctx, 1, channel.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	assert.Equal(t, msg.ID, listed[0].ID, "the ID, and the timestamp inside it, must not change")
	assert.Equal(t, "amended", listed[0].Message)
	assert.True(t, listed[0].Edited)
}

func TestEditRequiresAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1)
	f.seedUser(t, 2)
	_, channel := f.seedServer(t, 1, 2)

	msg, err := f.messages.PostToChannel(ctx, 1, channel.ID, "mine", "", 0)
	require.NoError(t, err)

	err = f.messages.Edit(ctx, 2, msg.ID, "hijacked")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestDeleteRemovesMessageEntirely(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1)
	_, channel := f.seedServer(t, 1)

	msg, err := f.messages.PostToChannel(ctx, 1, channel.ID, "ephemeral", "", 0)
	require.NoError(t, err)

	require.NoError(t, f.messages.Delete(ctx, 1, msg.ID))

	listed, err := f.messages.ListChannel(ctx, 1, channel.ID)
	require.NoError(t, err)
	assert.Empty(t, listed, "no residual record after delete")

	// deleting again is a no-op
	require.NoError(t, f.messages.Delete(ctx, 1, msg.ID))
}

func TestDirectMessageNotifiesPeerUnlessBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1)
	f.seedUser(t, 2)

	thread, err := f.threads.Open(ctx, 1, 2)
	require.NoError(t, err)

	_, err = f.messages.PostToThread(ctx, 1, thread.ID, "hi", "", 0)
	require.NoError(t, err)

	notifications, err := f.fanout.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, thread.ID, notifications[0].ThreadID)

	require.NoError(t, f.fanout.Drain(ctx, 2))
	require.NoError(t, f.rel.Block(ctx, 2, 1))

	// the sender can still post, the blocking peer is not notified
	_, err = f.messages.PostToThread(ctx, 1, thread.ID, "hello?", "", 0)
	require.NoError(t, err)

	notifications, err = f.fanout.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestThreadAccessRestrictedToParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1)
	f.seedUser(t, 2)
	f.seedUser(t, 3)

	thread, err := f.threads.Open(ctx, 1, 2)
	require.NoError(t, err)

	_, err = f.messages.PostToThread(ctx, 3, thread.ID, "intruder", "", 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, err = f.messages.ListThread(ctx, 3, thread.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}
