package cmd

import (
	"fmt"
	"os"

	"reviewsync/lib/scrapers/datashake"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var reviewsFromDate string

func init() {
	reviewsCmd.Flags().StringVar(&reviewsFromDate, "from-date", "", "only fetch reviews on or after this date (YYYY-MM-DD)")
	rootCmd.AddCommand(reviewsCmd)
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews <job-id>",
	Short: "Fetches every review currently available for a crawl job.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient(loadConfig())

		status, reviews, err := client.GetJobReviews(cmd.Context(), args[0], datashake.FetchOptions{
			FromDate: reviewsFromDate,
		})
		if err != nil {
			fatal("failed to fetch reviews", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Key", "Date", "Rating", "Reviewer", "Text"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "Text", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		})
		for _, r := range reviews {
			t.AppendRow(table.Row{r.Key(), r.Date, r.RatingValue, r.Name, r.ReviewText})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		fmt.Printf("%d reviews, job status %q\n", len(reviews), status.CrawlStatus)
	},
}
