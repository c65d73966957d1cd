package datashake

import "encoding/json"

// ScheduleResult is the vendor's answer to a "create job" request.
type ScheduleResult struct {
	JobID      string
	StatusCode int
	Message    string
}

// JobStatus mirrors the vendor's job info payload. CrawlStatus is an
// open string, the vendor may introduce new values at any time.
type JobStatus struct {
	JobID              string
	SourceURL          string
	SourceName         string
	ReviewCount        int
	AverageRating      float64
	LastCrawl          string
	CrawlStatus        string
	PercentageComplete float64
	ResultCount        int
	CreditsUsed        int
	FromDate           string
}

const StatusComplete = "complete"

// Review is one vendor-returned review record.
type Review struct {
	JobID          string          `json:"job_id"`
	SourceName     string          `json:"source_name"`
	UniqueID       string          `json:"unique_id"`
	ExternalID     json.Number     `json:"id,omitempty"`
	Name           string          `json:"name"`
	Date           string          `json:"date"`
	RatingValue    float64         `json:"rating_value"`
	ReviewText     string          `json:"review_text"`
	URL            string          `json:"url"`
	ProfilePicture string          `json:"profile_picture"`
	Location       string          `json:"location"`
	ReviewTitle    string          `json:"review_title"`
	VerifiedOrder  bool            `json:"verified_order"`
	ReviewerTitle  string          `json:"reviewer_title"`
	LanguageCode   string          `json:"language_code"`
	MetaData       json.RawMessage `json:"meta_data"`
}

// Key returns the identity used for deduplication: the vendor-derived
// unique id when present, otherwise source name + external id.
func (r Review) Key() string {
	if r.UniqueID != "" {
		return r.UniqueID
	}
	return r.SourceName + "/" + r.ExternalID.String()
}

type scheduleResponse struct {
	Success bool        `json:"success"`
	JobID   json.Number `json:"job_id"`
	Status  int         `json:"status"`
	Message string      `json:"message"`
}

type jobStatusResponse struct {
	Success            bool        `json:"success"`
	Status             int         `json:"status"`
	JobID              json.Number `json:"job_id"`
	SourceURL          string      `json:"source_url"`
	SourceName         string      `json:"source_name"`
	ReviewCount        int         `json:"review_count"`
	AverageRating      float64     `json:"average_rating"`
	LastCrawl          string      `json:"last_crawl"`
	CrawlStatus        string      `json:"crawl_status"`
	PercentageComplete float64     `json:"percentage_complete"`
	ResultCount        int         `json:"result_count"`
	CreditsUsed        int         `json:"credits_used"`
	FromDate           string      `json:"from_date"`
	Message            string      `json:"message"`
}

type reviewsPageResponse struct {
	Success    bool        `json:"success"`
	Status     int         `json:"status"`
	JobID      json.Number `json:"job_id"`
	SourceName string      `json:"source_name"`
	Reviews    []Review    `json:"reviews"`
	Message    string      `json:"message"`
}
