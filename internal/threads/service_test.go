package threads_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"chatgraph-backend/internal/database"
	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/models"
	"chatgraph-backend/internal/privacy"
	"chatgraph-backend/internal/relationships"
	"chatgraph-backend/internal/snowflake"
	"chatgraph-backend/internal/threads"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, blockOverridesRequest bool) (*threads.Service, *relationships.Ledger, *sql.DB) {
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
	evaluator := privacy.Evaluator{BlockOverridesRequest: blockOverridesRequest}
	svc := threads.NewService(db, h, gen, rel, evaluator, sugar, timeout)

	return svc, rel, db
}

func seedUser(t *testing.T, db *sql.DB, id int64, policy models.DirectMessagePolicy) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO users (id, email, username, display_name, picture, dm_policy, password) VALUES (?, ?, ?, ?, '', ?, ?)",
		id, fmt.Sprintf("user%d@example.com", id), fmt.Sprintf("user%d", id), fmt.Sprintf("User %d", id), policy, []byte("x"))
	require.NoError(t, err)
}

func postToThread(t *testing.T, db *sql.DB, threadID int64, userID int64, content string) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO messages (id, thread_id, user_id, message) VALUES (?, ?, ?, ?)",
		time.Now().UnixNano(), threadID, userID, content)
	require.NoError(t, err)
}

func TestOpenIsLazyAndSharedAcrossThePair(t *testing.T) {
	svc, _, db := newTestService(t, true)
	ctx := context.Background()

	seedUser(t, db, 1, models.DMPolicyAllow)
	seedUser(t, db, 2, models.DMPolicyAllow)

	first, err := svc.Open(ctx, 1, 2)
	require.NoError(t, err)

	// opening from the other side resolves the same thread
	second, err := svc.Open(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.Open(ctx, 1, 1)
	assert.Error(t, err)
}

func TestRequestPolicyPartitionsUntilReply(t *testing.T) {
	svc, _, db := newTestService(t, true)
	ctx := context.Background()

	seedUser(t, db, 1, models.DMPolicyRequest)
	seedUser(t, db, 2, models.DMPolicyAllow)

	thread, err := svc.Open(ctx, 2, 1)
	require.NoError(t, err)
	postToThread(t, db, thread.ID, 2, "hi, stranger")

	// recipient sees the thread under message requests
	active, requests, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, active)
	require.Len(t, requests, 1)
	assert.Equal(t, thread.ID, requests[0].Thread.ID)
	assert.Equal(t, "requests", requests[0].Partition)

	// the sender sees a normal conversation
	active, requests, err = svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Empty(t, requests)

	// replying promotes the thread on the next fetch
	postToThread(t, db, thread.ID, 1, "hello back")

	active, requests, err = svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, thread.ID, active[0].Thread.ID)
	assert.Empty(t, requests)
}

func TestRequestPolicyTreatsFriendsAsAllow(t *testing.T) {
	svc, rel, db := newTestService(t, true)
	ctx := context.Background()

	seedUser(t, db, 1, models.DMPolicyRequest)
	seedUser(t, db, 2, models.DMPolicyAllow)

	request, err := rel.SendFriendRequest(ctx, 2, 1)
	require.NoError(t, err)
	require.NoError(t, rel.RespondToRequest(ctx, 1, request.ID, true))

	thread, err := svc.Open(ctx, 2, 1)
	require.NoError(t, err)
	postToThread(t, db, thread.ID, 2, "hi, friend")

	active, requests, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Empty(t, requests)
}

func TestBlockPolicyHidesStrangersButNotFriends(t *testing.T) {
	svc, rel, db := newTestService(t, true)
	ctx := context.Background()

	seedUser(t, db, 1, models.DMPolicyBlock)
	seedUser(t, db, 2, models.DMPolicyAllow)
	seedUser(t, db, 3, models.DMPolicyAllow)

	stranger, err := svc.Open(ctx, 2, 1)
	require.NoError(t, err)
	postToThread(t, db, stranger.ID, 2, "you won't see this")

	request, err := rel.SendFriendRequest(ctx, 3, 1)
	require.NoError(t, err)
	require.NoError(t, rel.RespondToRequest(ctx, 1, request.ID, true))

	friendThread, err := svc.Open(ctx, 3, 1)
	require.NoError(t, err)
	postToThread(t, db, friendThread.ID, 3, "you will see this")

	active, requests, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, requests)
	require.Len(t, active, 1)
	assert.Equal(t, friendThread.ID, active[0].Thread.ID)

	// the stranger still sees their own side of the hidden thread
	active, _, err = svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestHeldBlockHidesThreadWhenOverrideEnabled(t *testing.T) {
	svc, rel, db := newTestService(t, true)
	ctx := context.Background()

	seedUser(t, db, 1, models.DMPolicyAllow)
	seedUser(t, db, 2, models.DMPolicyAllow)

	thread, err := svc.Open(ctx, 2, 1)
	require.NoError(t, err)
	postToThread(t, db, thread.ID, 2, "hello")

	require.NoError(t, rel.Block(ctx, 1, 2))

	active, requests, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Empty(t, requests)
}

func TestHeldBlockIgnoredWhenOverrideDisabled(t *testing.T) {
	svc, rel, db := newTestService(t, false)
	ctx := context.Background()

	seedUser(t, db, 1, models.DMPolicyAllow)
	seedUser(t, db, 2, models.DMPolicyAllow)

	thread, err := svc.Open(ctx, 2, 1)
	require.NoError(t, err)
	postToThread(t, db, thread.ID, 2, "hello")

	require.NoError(t, rel.Block(ctx, 1, 2))

	active, _, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
