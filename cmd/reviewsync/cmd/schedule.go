package cmd

import (
	"fmt"

	"reviewsync/lib/scrapers/datashake"

	"github.com/spf13/cobra"
)

var scheduleFromDate string
var schedulePreviousJob string

func init() {
	scheduleCmd.Flags().StringVar(&scheduleFromDate, "from-date", "", "only collect reviews on or after this date (YYYY-MM-DD)")
	scheduleCmd.Flags().StringVar(&schedulePreviousJob, "previous-job", "", "schedule a delta crawl against this previous job id")
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule <url>",
	Short: "Schedules a crawl job for a review page url.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient(loadConfig())

		res, err := client.ScheduleJob(cmd.Context(), args[0], datashake.ScheduleOptions{
			FromDate:      scheduleFromDate,
			PreviousJobID: schedulePreviousJob,
		})
		if err != nil {
			fatal("failed to schedule job", err)
		}
		fmt.Printf("job %s scheduled: %s\n", res.JobID, res.Message)
	},
}
