package database_test

import (
	"testing"

	"chatgraph-backend/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opening the in-memory database must work from any test binary: the
// sqlite driver registration has to live in this package, not in main.
func TestSetupMemoryRegistersDriverAndSchema(t *testing.T) {
	db, err := database.SetupMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Ping())

	_, err = db.Exec(
		"INSERT INTO users (id, email, username, display_name, password) VALUES (1, 'a@example.com', 'alice', 'Alice', ?)",
		[]byte("x"))
	require.NoError(t, err)

	var username string
	require.NoError(t, db.QueryRow("SELECT username FROM users WHERE id = 1").Scan(&username))
	assert.Equal(t, "alice", username)
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := database.SetupMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// a message needs an existing author
	_, err = db.Exec("INSERT INTO messages (id, user_id, message) VALUES (1, 999, 'orphan')")
	assert.Error(t, err)
}
