package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const createQuizzesSQL = `
CREATE TABLE IF NOT EXISTS quizzes (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	topic_key   TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	config      JSONB NOT NULL,
	questions   JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS quizzes_topic_created_idx ON quizzes (topic_key, created_at DESC);
CREATE INDEX IF NOT EXISTS quizzes_session_idx ON quizzes (session_id);
`

// Migrations holds the archive schema, applied by `quiz-service migrate` and
// on start when Postgres is configured.
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createQuizzesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS quizzes`)
			return err
		},
	)
}
