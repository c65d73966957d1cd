package datashake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"reviewsync/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const testAPIKey = "0123456789012345678901234567890123456789"

// fakeVendor is an in-process stand-in for the review scraper API.
type fakeVendor struct {
	t        *testing.T
	nextID   int
	statuses map[string]jobStatusResponse
	// pages[jobID] holds review pages served in order
	pages map[string][][]Review
	// failPage returns HTTP 500 for that page number when > 0
	failPage int
	// errorPage serves an in-band vendor error body (HTTP 200,
	// success:false) for that page number when > 0
	errorPage int
	// lastDiff records the diff param of the latest add request
	lastDiff string
}

func newFakeVendor(t *testing.T) *fakeVendor {
	return &fakeVendor{
		t:        t,
		nextID:   278171040,
		statuses: map[string]jobStatusResponse{},
		pages:    map[string][][]Review{},
	}
}

func (f *fakeVendor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("spiderman-token") != testAPIKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch r.URL.Path {
	case addEndpoint:
		f.serveAdd(w, r)
	case infoEndpoint:
		f.serveInfo(w, r)
	case reviewsEndpoint:
		f.serveReviews(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeVendor) serveAdd(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	f.lastDiff = r.URL.Query().Get("diff")

	if strings.Contains(url, "rejected") {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"status":  400,
			"message": "URL not supported",
		})
		return
	}

	f.nextID++
	jobID := strconv.Itoa(f.nextID)
	message := "Added this profile to the queue..."
	if f.lastDiff != "" {
		message = fmt.Sprintf("Scheduled as a diff of job %s", f.lastDiff)
	}
	f.statuses[jobID] = jobStatusResponse{
		Success:     true,
		JobID:       json.Number(jobID),
		SourceURL:   url,
		CrawlStatus: "pending",
	}
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"job_id":  f.nextID,
		"status":  200,
		"message": message,
	})
}

func (f *fakeVendor) serveInfo(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	status, ok := f.statuses[jobID]
	if !ok {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"status":  404,
			"message": "job not found",
		})
		return
	}
	json.NewEncoder(w).Encode(status)
}

func (f *fakeVendor) serveReviews(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	require.NoError(f.t, err)

	if f.failPage > 0 && page == f.failPage {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if f.errorPage > 0 && page == f.errorPage {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false, "status": 500, "message": "internal error",
		})
		return
	}

	var reviews []Review
	if pages := f.pages[jobID]; page <= len(pages) {
		reviews = pages[page-1]
	}
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"job_id":      json.Number(jobID),
		"source_name": "trustpilot",
		"reviews":     reviews,
	})
}

// completeJob marks a job complete and loads its review pages.
func (f *fakeVendor) completeJob(jobID string, pages [][]Review) {
	status := f.statuses[jobID]
	status.Success = true
	status.JobID = json.Number(jobID)
	status.CrawlStatus = StatusComplete
	status.LastCrawl = "2021-09-28"
	for _, p := range pages {
		status.ReviewCount += len(p)
	}
	f.statuses[jobID] = status
	f.pages[jobID] = pages
}

func makeReviews(prefix string, n int) []Review {
	var out []Review
	for i := 0; i < n; i++ {
		out = append(out, Review{
			UniqueID:    fmt.Sprintf("%s-%d", prefix, i),
			ExternalID:  json.Number(strconv.Itoa(1000 + i)),
			Name:        "reviewer",
			Date:        "2021-09-20",
			RatingValue: 4,
			ReviewText:  "pretty good",
		})
	}
	return out
}

func setupClient(t *testing.T, vendor *fakeVendor) *Client {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/datashake")
	t.Cleanup(cleanup)

	server := httptest.NewServer(vendor)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{
		APIKey:  testAPIKey,
		BaseURL: server.URL,
	})
	require.NoError(t, err)
	return client
}

func TestNewClientKeyLength(t *testing.T) {
	_, err := NewClient(ClientOptions{APIKey: "too-short"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "40 characters")
}

func TestScheduleJob(t *testing.T) {
	vendor := newFakeVendor(t)
	client := setupClient(t, vendor)
	ctx := context.Background()

	first, err := client.ScheduleJob(ctx, "https://uk.trustpilot.com/review/store.playstation.com", ScheduleOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, first.JobID)

	// rescheduling against the first job yields a distinct delta job
	second, err := client.ScheduleJob(ctx, "https://uk.trustpilot.com/review/store.playstation.com", ScheduleOptions{
		PreviousJobID: first.JobID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, second.JobID)
	require.NotEqual(t, first.JobID, second.JobID)
	require.Equal(t, first.JobID, vendor.lastDiff)
	require.Contains(t, second.Message, "diff")
}

func TestScheduleJobEmptyURL(t *testing.T) {
	client := setupClient(t, newFakeVendor(t))
	_, err := client.ScheduleJob(context.Background(), "", ScheduleOptions{})
	require.Error(t, err)
}

func TestScheduleJobRejected(t *testing.T) {
	client := setupClient(t, newFakeVendor(t))

	_, err := client.ScheduleJob(context.Background(), "https://example.com/rejected", ScheduleOptions{})
	var rejected *SchedulingRejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, "URL not supported", rejected.Message)
}

func TestAuthError(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/datashake")
	t.Cleanup(cleanup)

	server := httptest.NewServer(newFakeVendor(t))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{
		APIKey:  strings.Repeat("x", 40),
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	_, err = client.ScheduleJob(context.Background(), "https://example.com/reviews", ScheduleOptions{})
	var auth *AuthError
	require.ErrorAs(t, err, &auth)
	require.Equal(t, http.StatusUnauthorized, auth.StatusCode)
}

func TestGetJobStatusUnknownJob(t *testing.T) {
	client := setupClient(t, newFakeVendor(t))

	_, err := client.GetJobStatus(context.Background(), "999")
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	require.Contains(t, transport.Message, "job not found")
}

func TestGetJobReviewsPagination(t *testing.T) {
	vendor := newFakeVendor(t)
	client := setupClient(t, vendor)
	ctx := context.Background()

	res, err := client.ScheduleJob(ctx, "https://uk.trustpilot.com/review/store.playstation.com", ScheduleOptions{})
	require.NoError(t, err)
	vendor.completeJob(res.JobID, [][]Review{
		makeReviews("p1", 2),
		makeReviews("p2", 2),
		makeReviews("p3", 2),
	})

	status, reviews, err := client.GetJobReviews(ctx, res.JobID, FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, StatusComplete, status.CrawlStatus)
	require.Len(t, reviews, 6)
	for _, r := range reviews {
		require.Equal(t, res.JobID, r.JobID)
		require.Equal(t, "trustpilot", r.SourceName)
	}
}

func TestGetJobReviewsPageFailureDiscardsPartial(t *testing.T) {
	vendor := newFakeVendor(t)
	client := setupClient(t, vendor)
	ctx := context.Background()

	res, err := client.ScheduleJob(ctx, "https://uk.trustpilot.com/review/store.playstation.com", ScheduleOptions{})
	require.NoError(t, err)
	vendor.completeJob(res.JobID, [][]Review{
		makeReviews("p1", 2),
		makeReviews("p2", 2),
	})
	vendor.failPage = 2

	_, reviews, err := client.GetJobReviews(ctx, res.JobID, FetchOptions{})
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	require.Nil(t, reviews)
}

func TestGetJobReviewsVendorErrorPageDiscardsPartial(t *testing.T) {
	vendor := newFakeVendor(t)
	client := setupClient(t, vendor)
	ctx := context.Background()

	res, err := client.ScheduleJob(ctx, "https://uk.trustpilot.com/review/store.playstation.com", ScheduleOptions{})
	require.NoError(t, err)
	vendor.completeJob(res.JobID, [][]Review{
		makeReviews("p1", 2),
		makeReviews("p2", 2),
	})
	// HTTP 200 but success:false, must not be mistaken for the empty
	// last page
	vendor.errorPage = 2

	_, reviews, err := client.GetJobReviews(ctx, res.JobID, FetchOptions{})
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	require.Contains(t, transport.Message, "internal error")
	require.Nil(t, reviews)
}

func TestGetJobReviewsNumericExternalID(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/datashake")
	t.Cleanup(cleanup)

	// raw payloads as the vendor sends them: id is a bare number
	pageServed := false
	mux := http.NewServeMux()
	mux.HandleFunc(infoEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"job_id":278171040,"crawl_status":"complete","review_count":1}`))
	})
	mux.HandleFunc(reviewsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		if pageServed {
			w.Write([]byte(`{"success":true,"job_id":278171040,"source_name":"trustpilot","reviews":[]}`))
			return
		}
		pageServed = true
		w.Write([]byte(`{"success":true,"job_id":278171040,"source_name":"trustpilot","reviews":[{"id":4281337,"name":"reviewer","rating_value":5}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{APIKey: testAPIKey, BaseURL: server.URL})
	require.NoError(t, err)

	_, reviews, err := client.GetJobReviews(context.Background(), "278171040", FetchOptions{})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, "4281337", reviews[0].ExternalID.String())
	require.Equal(t, "trustpilot/4281337", reviews[0].Key())
}

func TestGetJobReviewsInProgressJob(t *testing.T) {
	vendor := newFakeVendor(t)
	client := setupClient(t, vendor)
	ctx := context.Background()

	res, err := client.ScheduleJob(ctx, "https://uk.trustpilot.com/review/store.playstation.com", ScheduleOptions{})
	require.NoError(t, err)

	// still pending, no pages collected yet: returns an empty set
	// without blocking
	status, reviews, err := client.GetJobReviews(ctx, res.JobID, FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, "pending", status.CrawlStatus)
	require.Empty(t, reviews)
}
