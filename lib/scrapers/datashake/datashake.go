package datashake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"reviewsync/lib/telemetry"
	"reviewsync/lib/timeutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("scrapers/datashake")

const (
	defaultBaseURL = "https://app.datashake.com"
	apiKeyLength   = 40
	reviewsPerPage = 500

	addEndpoint     = "/api/v2/profiles/add"
	infoEndpoint    = "/api/v2/profiles/info"
	reviewsEndpoint = "/api/v2/profiles/reviews"
)

// Client talks to the Datashake review scraper API. All calls are
// throttled to stay under the vendor's rate limit.
type Client struct {
	http          *resty.Client
	limiter       *rate.Limiter
	languageCode  string
	allowResponse bool
}

type ClientOptions struct {
	// APIKey must be exactly 40 characters, as issued by the vendor.
	APIKey string
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string
	// MaxRequestsPerSecond defaults to 10, the vendor's documented
	// rate limit.
	MaxRequestsPerSecond int
	// LanguageCode defaults to "en".
	LanguageCode string
	// AllowResponse controls whether owner responses are included in
	// review payloads. Defaults to true when nil.
	AllowResponse *bool
}

func NewClient(opts ClientOptions) (*Client, error) {
	if len(opts.APIKey) != apiKeyLength {
		return nil, fmt.Errorf(
			"api key must be %d characters long, the key provided was %d characters long",
			apiKeyLength, len(opts.APIKey),
		)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	rps := opts.MaxRequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	languageCode := opts.LanguageCode
	if languageCode == "" {
		languageCode = "en"
	}
	allowResponse := true
	if opts.AllowResponse != nil {
		allowResponse = *opts.AllowResponse
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("spiderman-token", opts.APIKey)
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/datashake/http")

	return &Client{
		http:          client,
		limiter:       rate.NewLimiter(rate.Limit(rps), rps),
		languageCode:  languageCode,
		allowResponse: allowResponse,
	}, nil
}

type ScheduleOptions struct {
	// FromDate limits the crawl to reviews on or after this date
	// (YYYY-MM-DD).
	FromDate string
	// PreviousJobID requests a delta crawl: only reviews new since
	// that job are collected.
	PreviousJobID string
}

// ScheduleJob asks the vendor to crawl the given review page url and
// returns the id of the created job.
func (c *Client) ScheduleJob(ctx context.Context, reviewURL string, opts ScheduleOptions) (ScheduleResult, error) {
	ctx, span := tracer.Start(ctx, "ScheduleJob")
	defer span.End()
	span.SetAttributes(attribute.String("url", reviewURL))

	if reviewURL == "" {
		err := fmt.Errorf("review url must not be empty")
		span.SetStatus(codes.Error, err.Error())
		return ScheduleResult{}, err
	}

	params := map[string]string{"url": reviewURL}
	if opts.FromDate != "" {
		fromDate, err := timeutil.ParseDate(opts.FromDate)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return ScheduleResult{}, err
		}
		params["from_date"] = timeutil.FormatDate(fromDate)
	}
	if opts.PreviousJobID != "" {
		params["diff"] = opts.PreviousJobID
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return ScheduleResult{}, err
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Post(addEndpoint)
	if err := c.checkResponse(res, err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schedule request failed")
		return ScheduleResult{}, err
	}

	var body scheduleResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode schedule response")
		return ScheduleResult{}, &TransportError{URL: res.Request.URL, Err: err}
	}
	if !body.Success {
		err := &SchedulingRejectedError{URL: reviewURL, Message: body.Message}
		span.SetStatus(codes.Error, err.Error())
		return ScheduleResult{}, err
	}

	return ScheduleResult{
		JobID:      body.JobID.String(),
		StatusCode: body.Status,
		Message:    body.Message,
	}, nil
}

// GetJobStatus returns the vendor-reported state of a scheduled job.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	ctx, span := tracer.Start(ctx, "GetJobStatus")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", jobID))

	if err := c.limiter.Wait(ctx); err != nil {
		return JobStatus{}, err
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("job_id", jobID).
		Get(infoEndpoint)
	if err := c.checkResponse(res, err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status request failed")
		return JobStatus{}, err
	}

	var body jobStatusResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode status response")
		return JobStatus{}, &TransportError{URL: res.Request.URL, Err: err}
	}
	if !body.Success {
		err := &TransportError{
			StatusCode: body.Status,
			URL:        res.Request.URL,
			Message:    body.Message,
		}
		span.SetStatus(codes.Error, err.Error())
		return JobStatus{}, err
	}

	return JobStatus{
		JobID:              body.JobID.String(),
		SourceURL:          body.SourceURL,
		SourceName:         body.SourceName,
		ReviewCount:        body.ReviewCount,
		AverageRating:      body.AverageRating,
		LastCrawl:          body.LastCrawl,
		CrawlStatus:        body.CrawlStatus,
		PercentageComplete: body.PercentageComplete,
		ResultCount:        body.ResultCount,
		CreditsUsed:        body.CreditsUsed,
		FromDate:           body.FromDate,
	}, nil
}

type FetchOptions struct {
	// FromDate limits results to reviews on or after this date
	// (YYYY-MM-DD).
	FromDate string
}

// GetJobReviews fetches every review page currently available for the
// job, following the page number until the vendor returns an empty
// page. It does not wait for the job to finish: an in-progress job
// yields whatever the vendor has collected so far. A failure partway
// through pagination discards the partial accumulation.
func (c *Client) GetJobReviews(ctx context.Context, jobID string, opts FetchOptions) (JobStatus, []Review, error) {
	ctx, span := tracer.Start(ctx, "GetJobReviews")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", jobID))

	status, err := c.GetJobStatus(ctx, jobID)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch job status")
		return JobStatus{}, nil, err
	}

	params := map[string]string{
		"job_id":         jobID,
		"language_code":  c.languageCode,
		"per_page":       strconv.Itoa(reviewsPerPage),
		"allow_response": strconv.FormatBool(c.allowResponse),
	}
	if opts.FromDate != "" {
		fromDate, err := timeutil.ParseDate(opts.FromDate)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return status, nil, err
		}
		params["from_date"] = timeutil.FormatDate(fromDate)
	}

	var reviews []Review
	for page := 1; ; page++ {
		params["page"] = strconv.Itoa(page)

		if err := c.limiter.Wait(ctx); err != nil {
			return status, nil, err
		}
		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(reviewsEndpoint)
		if err := c.checkResponse(res, err); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, fmt.Sprintf("failed to fetch page %d", page))
			return status, nil, err
		}

		var body reviewsPageResponse
		if err := json.Unmarshal(res.Body(), &body); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to decode reviews page")
			return status, nil, &TransportError{URL: res.Request.URL, Err: err}
		}
		// an in-band vendor error must not pass for the empty last
		// page, that would silently truncate the accumulated set
		if !body.Success {
			err := &TransportError{
				StatusCode: body.Status,
				URL:        res.Request.URL,
				Message:    body.Message,
			}
			span.SetStatus(codes.Error, err.Error())
			return status, nil, err
		}
		if len(body.Reviews) == 0 {
			break
		}

		// the page payload carries job id and source name once, stamp
		// them onto each record
		for _, r := range body.Reviews {
			r.JobID = body.JobID.String()
			r.SourceName = body.SourceName
			reviews = append(reviews, r)
		}
	}

	span.SetAttributes(attribute.Int("review_count", len(reviews)))
	return status, reviews, nil
}

// checkResponse folds a resty transport error and a non-2xx response
// into the client's error taxonomy.
func (c *Client) checkResponse(res *resty.Response, err error) error {
	if err != nil {
		requestURL := ""
		if res != nil && res.Request != nil {
			requestURL = res.Request.URL
		}
		return &TransportError{URL: requestURL, Err: err}
	}
	code := res.StatusCode()
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return &AuthError{StatusCode: code, URL: res.Request.URL}
	}
	if !res.IsSuccess() {
		return &TransportError{
			StatusCode: code,
			URL:        res.Request.URL,
			Message:    res.Status(),
		}
	}
	return nil
}
