package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reviewsync/lib/scrapers/datashake"
	"reviewsync/lib/timeutil"
	"reviewsync/services/reviews/db"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/reviews")

// Service reconciles a caller-owned job table and review table against
// the vendor: re-scheduling stale jobs as delta crawls and merging
// newly fetched reviews without duplication. Rows are processed
// strictly in table order, one request at a time.
type Service struct {
	client                *datashake.Client
	qry                   *db.Queries
	minDaysSinceLastCrawl int
	now                   func() time.Time
}

type ServiceOptions struct {
	// MinDaysSinceLastCrawl is the number of days that must pass since
	// a row's last crawl before it is re-scheduled. Defaults to 3.
	MinDaysSinceLastCrawl int
}

// NewService wires the reconciler. `database` may be nil, in which
// case scheduling attempts are not archived.
func NewService(client *datashake.Client, database *sql.DB, opts ServiceOptions) Service {
	minDays := opts.MinDaysSinceLastCrawl
	if minDays <= 0 {
		minDays = 3
	}
	var qry *db.Queries
	if database != nil {
		qry = db.New(database)
	}
	return Service{
		client:                client,
		qry:                   qry,
		minDaysSinceLastCrawl: minDays,
		now:                   time.Now,
	}
}

// ScheduleJobList schedules or refreshes every row of the job table
// and returns an updated copy with the same rows in the same order.
// Rows with a known job id are re-scheduled as a delta against it. A
// row whose call fails keeps its job id and records the failure in
// ScheduleMessage; the batch continues. Only a rejected API key aborts
// the batch.
func (s Service) ScheduleJobList(ctx context.Context, jobs JobTable) (JobTable, error) {
	ctx, span := tracer.Start(ctx, "ScheduleJobList")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(jobs)))

	out := jobs.Clone()
	runID := uuid.NewString()

	for i := range out {
		row := &out[i]
		if row.URL == "" {
			continue
		}
		if s.crawledRecently(ctx, *row) {
			continue
		}

		if row.JobID != "" {
			status, err := s.client.GetJobStatus(ctx, row.JobID)
			if err != nil {
				if isAuthError(err) {
					span.SetStatus(codes.Error, "api key rejected")
					return out, err
				}
				row.ScheduleMessage = fmt.Sprintf("status refresh failed: %v", err)
				slog.ErrorContext(ctx, "failed to refresh job status",
					"url", row.URL, "job_id", row.JobID, "err", err)
				continue
			}
			row.Status = status.CrawlStatus
			row.LastCrawl = status.LastCrawl
			if row.Status == StatusPending {
				continue
			}
		}

		res, err := s.client.ScheduleJob(ctx, row.URL, datashake.ScheduleOptions{
			PreviousJobID: row.JobID,
		})
		s.recordSchedule(ctx, runID, *row, res, err)
		if err != nil {
			if isAuthError(err) {
				span.SetStatus(codes.Error, "api key rejected")
				return out, err
			}
			row.ScheduleMessage = err.Error()
			slog.ErrorContext(ctx, "failed to schedule job",
				"url", row.URL, "err", err)
			continue
		}

		row.ScheduleMessage = res.Message
		row.PreviousJobID = row.JobID
		row.JobID = res.JobID
		row.Status = StatusPending
		row.LastCrawl = timeutil.FormatDate(s.now())
		slog.InfoContext(ctx, "scheduled job",
			"url", row.URL, "job_id", row.JobID, "previous_job_id", row.PreviousJobID)
	}

	return out, nil
}

// GetJobListReviews refreshes every job row, fetches reviews for jobs
// the vendor reports complete and merges them into the review table,
// skipping records whose key already exists. Both tables are returned
// as updated copies; the inputs are left untouched. A failure on one
// row is recorded there and does not block the rest; only a rejected
// API key aborts the batch.
func (s Service) GetJobListReviews(ctx context.Context, jobs JobTable, reviews ReviewTable) (JobTable, ReviewTable, error) {
	ctx, span := tracer.Start(ctx, "GetJobListReviews")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(jobs)))

	outJobs := jobs.Clone()
	var fetched []datashake.Review

	for i := range outJobs {
		row := &outJobs[i]
		if row.JobID == "" {
			continue
		}

		status, err := s.client.GetJobStatus(ctx, row.JobID)
		if err != nil {
			if isAuthError(err) {
				span.SetStatus(codes.Error, "api key rejected")
				return outJobs, reviews.Clone(), err
			}
			row.ScheduleMessage = fmt.Sprintf("status refresh failed: %v", err)
			slog.ErrorContext(ctx, "failed to refresh job status",
				"url", row.URL, "job_id", row.JobID, "err", err)
			continue
		}
		row.Status = status.CrawlStatus
		row.LastCrawl = status.LastCrawl

		if row.Status != StatusComplete {
			continue
		}

		_, jobReviews, err := s.client.GetJobReviews(ctx, row.JobID, datashake.FetchOptions{})
		if err != nil {
			if isAuthError(err) {
				span.SetStatus(codes.Error, "api key rejected")
				return outJobs, reviews.Clone(), err
			}
			row.ScheduleMessage = fmt.Sprintf("fetch failed: %v", err)
			slog.ErrorContext(ctx, "failed to fetch job reviews",
				"url", row.URL, "job_id", row.JobID, "err", err)
			continue
		}
		fetched = append(fetched, jobReviews...)
	}

	outReviews, added := reviews.Merge(fetched)
	span.SetAttributes(
		attribute.Int("fetched", len(fetched)),
		attribute.Int("added", added),
	)
	slog.InfoContext(ctx, "merged reviews", "fetched", len(fetched), "added", added)

	return outJobs, outReviews, nil
}

// crawledRecently reports whether the row was crawled within the
// re-scheduling window. Rows without a recorded status are never
// considered recent.
func (s Service) crawledRecently(ctx context.Context, row Job) bool {
	if row.Status == "" || row.LastCrawl == "" {
		return false
	}
	days, err := timeutil.DaysSince(s.now(), row.LastCrawl)
	if err != nil {
		slog.WarnContext(ctx, "unparseable last_crawl date, re-scheduling",
			"url", row.URL, "last_crawl", row.LastCrawl)
		return false
	}
	return days < s.minDaysSinceLastCrawl
}

func (s Service) recordSchedule(ctx context.Context, runID string, row Job, res datashake.ScheduleResult, scheduleErr error) {
	if s.qry == nil {
		return
	}

	status := StatusPending
	message := res.Message
	if scheduleErr != nil {
		status = "error"
		message = scheduleErr.Error()
	}
	err := s.qry.RecordSchedule(ctx, db.RecordScheduleParams{
		RunID:         runID,
		Url:           row.URL,
		JobID:         res.JobID,
		PreviousJobID: row.JobID,
		Status:        status,
		Message:       message,
		CreatedAt:     s.now().Unix(),
	})
	if err != nil {
		// the archive is best-effort, a write failure must not fail
		// the batch
		slog.ErrorContext(ctx, "failed to record scheduling attempt",
			"url", row.URL, "err", err)
	}
}

func isAuthError(err error) bool {
	var authErr *datashake.AuthError
	return errors.As(err, &authErr)
}
