// Package tabular reads and writes the job table and review table as
// delimited text files. Persistence stays on the host side: the
// reconciler only ever sees in-memory table values.
package tabular

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"reviewsync/lib/scrapers/datashake"
	"reviewsync/services/reviews"
)

var jobHeader = []string{
	"url", "job_id", "previous_job_id", "status", "last_crawl", "schedule_message",
}

var reviewHeader = []string{
	"job_id", "source_name", "unique_id", "id", "name", "date",
	"rating_value", "review_text", "url", "profile_picture", "location",
	"review_title", "verified_order", "reviewer_title", "language_code",
	"meta_data",
}

func ReadJobs(path string) (reviews.JobTable, error) {
	records, err := readFile(path, jobHeader)
	if err != nil {
		return nil, err
	}

	var table reviews.JobTable
	for _, rec := range records {
		table = append(table, reviews.Job{
			URL:             rec[0],
			JobID:           rec[1],
			PreviousJobID:   rec[2],
			Status:          rec[3],
			LastCrawl:       rec[4],
			ScheduleMessage: rec[5],
		})
	}
	return table, nil
}

func WriteJobs(path string, table reviews.JobTable) error {
	records := make([][]string, 0, len(table))
	for _, j := range table {
		records = append(records, []string{
			j.URL, j.JobID, j.PreviousJobID, j.Status, j.LastCrawl, j.ScheduleMessage,
		})
	}
	return writeFile(path, jobHeader, records)
}

// ReadReviews loads the review table. A missing file is an empty
// table, not an error, so the first sync run starts from scratch.
func ReadReviews(path string) (reviews.ReviewTable, error) {
	records, err := readFile(path, reviewHeader)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var table reviews.ReviewTable
	for i, rec := range records {
		rating := 0.0
		if rec[6] != "" {
			rating, err = strconv.ParseFloat(rec[6], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: bad rating_value: %w", path, i+1, err)
			}
		}
		verified := false
		if rec[12] != "" {
			verified, err = strconv.ParseBool(rec[12])
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: bad verified_order: %w", path, i+1, err)
			}
		}
		var metaData json.RawMessage
		if rec[15] != "" {
			metaData = json.RawMessage(rec[15])
		}

		table = append(table, datashake.Review{
			JobID:          rec[0],
			SourceName:     rec[1],
			UniqueID:       rec[2],
			ExternalID:     json.Number(rec[3]),
			Name:           rec[4],
			Date:           rec[5],
			RatingValue:    rating,
			ReviewText:     rec[7],
			URL:            rec[8],
			ProfilePicture: rec[9],
			Location:       rec[10],
			ReviewTitle:    rec[11],
			VerifiedOrder:  verified,
			ReviewerTitle:  rec[13],
			LanguageCode:   rec[14],
			MetaData:       metaData,
		})
	}
	return table, nil
}

func WriteReviews(path string, table reviews.ReviewTable) error {
	records := make([][]string, 0, len(table))
	for _, r := range table {
		rating := ""
		if r.RatingValue != 0 {
			rating = strconv.FormatFloat(r.RatingValue, 'f', -1, 64)
		}
		records = append(records, []string{
			r.JobID, r.SourceName, r.UniqueID, r.ExternalID.String(), r.Name, r.Date,
			rating, r.ReviewText, r.URL, r.ProfilePicture, r.Location,
			r.ReviewTitle, strconv.FormatBool(r.VerifiedOrder),
			r.ReviewerTitle, r.LanguageCode, string(r.MetaData),
		})
	}
	return writeFile(path, reviewHeader, records)
}

func readFile(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if len(records[0]) != len(header) {
		return nil, fmt.Errorf(
			"%s: expected %d columns, got %d",
			path, len(header), len(records[0]),
		)
	}
	return records[1:], nil
}

func writeFile(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
