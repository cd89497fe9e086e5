//go:build integration

package migrations

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("hasker"),
		postgres.WithUsername("hasker"),
		postgres.WithPassword("hasker"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestUpAndDown(t *testing.T) {
	dsn := startPostgres(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	require.NoError(t, Up(dsn, log))
	// Second run is a no-op.
	require.NoError(t, Up(dsn, log))

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO users (username, email, password_hash) VALUES ('alice', 'a@example.com', 'x')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO questions (author_id, title, body) VALUES (1, 't', 'b')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO answers (question_id, author_id, body, is_accepted) VALUES (1, 1, 'a1', TRUE)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO answers (question_id, author_id, body, is_accepted) VALUES (1, 1, 'a2', TRUE)`)
	assert.Error(t, err, "second accepted answer must violate the partial unique index")

	_, err = db.Exec(`INSERT INTO votes (user_id, target_type, target_id, value) VALUES (1, 'answer', 1, 2)`)
	assert.Error(t, err, "vote value outside ±1 must be rejected")

	require.NoError(t, Down(dsn))
	var exists bool
	require.NoError(t, db.QueryRow(`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'questions')`).Scan(&exists))
	assert.False(t, exists)
}
