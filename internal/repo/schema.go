package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — таблицы пакетов и результатов. Все выражения идемпотентны.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id                    uuid PRIMARY KEY,
	parent_job_id         uuid REFERENCES jobs (id),
	low_tag               text        NOT NULL,
	delete_unused_records boolean     NOT NULL DEFAULT false,
	replicate_records     boolean     NOT NULL DEFAULT false,
	bypass_tag_removal    boolean     NOT NULL DEFAULT false,
	handle_components     boolean     NOT NULL DEFAULT false,
	submitter             text,
	host_ids              text[]      NOT NULL DEFAULT '{}',
	task_count            integer     NOT NULL,
	completed_count       integer     NOT NULL DEFAULT 0,
	failed_count          integer     NOT NULL DEFAULT 0,
	status                text        NOT NULL,
	created_at            timestamptz NOT NULL,
	completed_at          timestamptz
);

CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at DESC);

CREATE TABLE IF NOT EXISTS job_results (
	job_id      uuid        NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
	task_id     text        NOT NULL,
	failed      boolean     NOT NULL,
	result      jsonb       NOT NULL,
	received_at timestamptz NOT NULL,
	PRIMARY KEY (job_id, task_id)
);
`

// Migrate создаёт таблицы, если их ещё нет.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
