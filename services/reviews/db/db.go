package db

import (
	"context"
	"database/sql"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Queries wraps the scheduling-history archive. Rows are only ever
// inserted, the history is retained for auditing.
type Queries struct {
	db *sql.DB
}

func New(database *sql.DB) *Queries {
	return &Queries{db: database}
}

type RecordScheduleParams struct {
	RunID         string
	Url           string
	JobID         string
	PreviousJobID string
	Status        string
	Message       string
	CreatedAt     int64
}

const recordSchedule = `
INSERT INTO schedule_history (run_id, url, job_id, previous_job_id, status, message, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) RecordSchedule(ctx context.Context, arg RecordScheduleParams) error {
	_, err := q.db.ExecContext(
		ctx, recordSchedule,
		arg.RunID,
		arg.Url,
		arg.JobID,
		arg.PreviousJobID,
		arg.Status,
		arg.Message,
		arg.CreatedAt,
	)
	return err
}

type ScheduleHistoryRow struct {
	RunID         string
	Url           string
	JobID         string
	PreviousJobID string
	Status        string
	Message       string
	CreatedAt     int64
}

const listScheduleHistory = `
SELECT run_id, url, job_id, previous_job_id, status, message, created_at
FROM schedule_history
WHERE url = ?
ORDER BY created_at, id
`

func (q *Queries) ListScheduleHistory(ctx context.Context, url string) ([]ScheduleHistoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listScheduleHistory, url)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduleHistoryRow
	for rows.Next() {
		var r ScheduleHistoryRow
		err := rows.Scan(
			&r.RunID,
			&r.Url,
			&r.JobID,
			&r.PreviousJobID,
			&r.Status,
			&r.Message,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
