package cmd

import (
	"os"

	"reviewsync/lib/tabular"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var jobsFile string

func init() {
	jobsCmd.Flags().StringVar(&jobsFile, "file", "jobs.csv", "path to the job table csv")
	rootCmd.AddCommand(jobsCmd)
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Prints the tracked job table.",
	Run: func(cmd *cobra.Command, args []string) {
		jobs, err := tabular.ReadJobs(jobsFile)
		if err != nil {
			fatal("failed to read job table", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"URL", "Job ID", "Status", "Last Crawl", "Message"})
		for _, j := range jobs {
			t.AppendRow(table.Row{j.URL, j.JobID, j.Status, j.LastCrawl, j.ScheduleMessage})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
