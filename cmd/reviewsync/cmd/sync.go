package cmd

import (
	"database/sql"
	"log/slog"

	"reviewsync/lib/tabular"
	"reviewsync/services/reviews"
	reviewsdb "reviewsync/services/reviews/db"

	"github.com/spf13/cobra"
)

var syncJobsFile string
var syncReviewsFile string
var syncHistoryFile string

func init() {
	syncCmd.Flags().StringVar(&syncJobsFile, "jobs", "jobs.csv", "path to the job table csv")
	syncCmd.Flags().StringVar(&syncReviewsFile, "reviews", "reviews.csv", "path to the review table csv")
	syncCmd.Flags().StringVar(&syncHistoryFile, "history", "", "sqlite file archiving every scheduling attempt (optional)")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Re-schedules stale jobs and merges newly collected reviews into the review table.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := loadConfig()
		client := newClient(config)

		jobs, err := tabular.ReadJobs(syncJobsFile)
		if err != nil {
			fatal("failed to read job table", err)
		}
		reviewTable, err := tabular.ReadReviews(syncReviewsFile)
		if err != nil {
			fatal("failed to read review table", err)
		}

		var database *sql.DB
		if syncHistoryFile != "" {
			database, err = sql.Open("sqlite", syncHistoryFile)
			if err != nil {
				fatal("failed to open history database", err)
			}
			defer database.Close()
			if _, err := database.Exec(reviewsdb.Schema); err != nil {
				fatal("failed to apply history schema", err)
			}
		}

		service := reviews.NewService(client, database, reviews.ServiceOptions{
			MinDaysSinceLastCrawl: config.MinDaysSinceLastCrawl,
		})

		jobs, err = service.ScheduleJobList(ctx, jobs)
		if err != nil {
			fatal("scheduling aborted", err)
		}
		jobs, reviewTable, err = service.GetJobListReviews(ctx, jobs, reviewTable)
		if err != nil {
			fatal("review collection aborted", err)
		}

		if err := tabular.WriteJobs(syncJobsFile, jobs); err != nil {
			fatal("failed to write job table", err)
		}
		if err := tabular.WriteReviews(syncReviewsFile, reviewTable); err != nil {
			fatal("failed to write review table", err)
		}

		slog.Info("sync finished", "jobs", len(jobs), "reviews", len(reviewTable))
	},
}
