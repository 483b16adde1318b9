package relationships_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"chatgraph-backend/internal/apperrors"
	"chatgraph-backend/internal/database"
	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/relationships"
	"chatgraph-backend/internal/snowflake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLedger(t *testing.T) (*relationships.Ledger, *sql.DB) {
	t.Helper()

	db, err := database.SetupMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gen, err := snowflake.New(0)
	require.NoError(t, err)

	sugar := zap.NewNop().Sugar()
	h := hub.New(sugar, nil, true)

	return relationships.NewLedger(db, h, gen, sugar, 10*time.Second), db
}

func seedUser(t *testing.T, db *sql.DB, id int64) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO users (id, email, username, display_name, picture, password) VALUES (?, ?, ?, ?, '', ?)",
		id, fmt.Sprintf("user%d@example.com", id), fmt.Sprintf("user%d", id), fmt.Sprintf("User %d", id), []byte("x"))
	require.NoError(t, err)
}

func TestFriendRequestLifecycle(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	seedUser(t, db, 1)
	seedUser(t, db, 2)

	request, err := ledger.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, request.Accepted)

	// receiver sees it incoming, sender outgoing
	incoming, outgoing, err := ledger.ListRequests(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, incoming, 1)
	assert.Empty(t, outgoing)

	incoming, outgoing, err = ledger.ListRequests(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, incoming)
	assert.Len(t, outgoing, 1)

	require.NoError(t, ledger.RespondToRequest(ctx, 2, request.ID, true))

	for _, userID := range []int64{1, 2} {
		friends, err := ledger.ListFriends(ctx, userID)
		require.NoError(t, err)
		require.Len(t, friends, 1)
	}

	// no pending record remains for the pair
	incoming, outgoing, err = ledger.ListRequests(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, incoming)
	assert.Empty(t, outgoing)
}

func TestSendFriendRequestRejectsDuplicates(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	seedUser(t, db, 1)
	seedUser(t, db, 2)

	_, err := ledger.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)

	// same direction
	_, err = ledger.SendFriendRequest(ctx, 1, 2)
	assert.True(t, apperrors.Is(err, apperrors.CodeAlreadyExists))

	// opposite direction counts as the same unordered pair
	_, err = ledger.SendFriendRequest(ctx, 2, 1)
	assert.True(t, apperrors.Is(err, apperrors.CodeAlreadyExists))
}

func TestSendFriendRequestToSelf(t *testing.T) {
	ledger, db := newTestLedger(t)
	seedUser(t, db, 1)

	_, err := ledger.SendFriendRequest(context.Background(), 1, 1)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArgument))
}

func TestBlockSuppressesFriendRequest(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	seedUser(t, db, 1)
	seedUser(t, db, 2)

	require.NoError(t, ledger.Block(ctx, 1, 2))

	_, err := ledger.SendFriendRequest(ctx, 2, 1)
	assert.True(t, apperrors.Is(err, apperrors.CodeBlocked))

	_, err = ledger.SendFriendRequest(ctx, 1, 2)
	assert.True(t, apperrors.Is(err, apperrors.CodeBlocked))
}

func TestBlockSupersedesFriendship(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	seedUser(t, db, 1)
	seedUser(t, db, 2)

	request, err := ledger.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, ledger.RespondToRequest(ctx, 2, request.ID, true))

	require.NoError(t, ledger.Block(ctx, 1, 2))

	friends, err := ledger.ListFriends(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, friends)

	friends, err = ledger.ListFriends(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, friends)

	// unblocking does not restore the friendship
	require.NoError(t, ledger.Unblock(ctx, 1, 2))

	friends, err = ledger.ListFriends(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestBlockCancelsPendingRequest(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	seedUser(t, db, 1)
	seedUser(t, db, 2)

	request, err := ledger.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)

	require.NoError(t, ledger.Block(ctx, 2, 1))

	err = ledger.RespondToRequest(ctx, 2, request.ID, true)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestBlockTwiceIsAlreadyExists(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	seedUser(t, db, 1)
	seedUser(t, db, 2)

	require.NoError(t, ledger.Block(ctx, 1, 2))
	err := ledger.Block(ctx, 1, 2)
	assert.True(t, apperrors.Is(err, apperrors.CodeAlreadyExists))
}

func TestRemoveFriendshipIsIdempotent(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	seedUser(t, db, 1)
	seedUser(t, db, 2)

	request, err := ledger.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, ledger.RespondToRequest(ctx, 2, request.ID, true))

	require.NoError(t, ledger.RemoveFriendship(ctx, 1, 2))
	require.NoError(t, ledger.RemoveFriendship(ctx, 1, 2))
}

func TestCancelRequestIsIdempotent(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	seedUser(t, db, 1)
	seedUser(t, db, 2)

	request, err := ledger.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)

	require.NoError(t, ledger.CancelRequest(ctx, 1, request.ID))
	require.NoError(t, ledger.CancelRequest(ctx, 1, request.ID))

	// cancelled request no longer answerable
	err = ledger.RespondToRequest(ctx, 2, request.ID, true)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestRespondRequiresReceiver(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	seedUser(t, db, 1)
	seedUser(t, db, 2)
	seedUser(t, db, 3)

	request, err := ledger.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)

	// the sender cannot accept their own request, nor can a third party
	err = ledger.RespondToRequest(ctx, 1, request.ID, true)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	err = ledger.RespondToRequest(ctx, 3, request.ID, true)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

// Two requests for the same pair racing past the existence check must
// not both commit: the second insert has to fail on the pair constraint
// regardless of which user sent it.
func TestFriendRequestPairUniqueInSchema(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	seedUser(t, db, 1)
	seedUser(t, db, 2)

	_, err := ledger.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)

	// simulate the interleaving where a reversed-orientation request
	// passed its check before the first insert committed
	_, err = db.Exec(
		"INSERT INTO friendships (id, sender_id, receiver_id, pair_low, pair_high, accepted) VALUES (?, 2, 1, 1, 2, FALSE)",
		int64(99))
	require.Error(t, err)
	assert.True(t, apperrors.Is(apperrors.Normalize(err), apperrors.CodeAlreadyExists))

	var count int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM friendships WHERE pair_low = 1 AND pair_high = 2").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestDuplicateBlockMapsToAlreadyExists(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	seedUser(t, db, 1)
	seedUser(t, db, 2)

	require.NoError(t, ledger.Block(ctx, 1, 2))

	// a raced duplicate lands on the primary key, not a raw 500
	_, err := db.Exec("INSERT INTO blocks (blocker_id, blocked_id) VALUES (1, 2)")
	require.Error(t, err)
	assert.True(t, apperrors.Is(apperrors.Normalize(err), apperrors.CodeAlreadyExists))
}
