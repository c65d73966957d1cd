package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Prints the vendor-reported status of a crawl job.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient(loadConfig())

		status, err := client.GetJobStatus(cmd.Context(), args[0])
		if err != nil {
			fatal("failed to fetch job status", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendRows([]table.Row{
			{"job_id", status.JobID},
			{"source_url", status.SourceURL},
			{"source_name", status.SourceName},
			{"crawl_status", status.CrawlStatus},
			{"last_crawl", status.LastCrawl},
			{"review_count", status.ReviewCount},
			{"average_rating", status.AverageRating},
			{"percentage_complete", status.PercentageComplete},
			{"credits_used", status.CreditsUsed},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
