package reviews

import (
	"slices"

	"reviewsync/lib/scrapers/datashake"
)

// vendor-reported crawl statuses this service reacts to. the status
// field itself is open, the vendor may report values not listed here.
const (
	StatusPending  = "pending"
	StatusComplete = "complete"
)

// Job is one tracked review-page url and its latest scheduling state.
type Job struct {
	URL             string
	JobID           string
	PreviousJobID   string
	Status          string
	LastCrawl       string
	ScheduleMessage string
}

// JobTable is an ordered list of tracked jobs, one row per url. It is
// owned by the caller; service operations return updated copies and
// never mutate it in place.
type JobTable []Job

func (t JobTable) Clone() JobTable {
	return slices.Clone(t)
}

// ReviewTable is the accumulated set of fetched reviews, append-only
// except for deduplication on merge.
type ReviewTable []datashake.Review

func (t ReviewTable) Clone() ReviewTable {
	return slices.Clone(t)
}

// Merge appends every incoming review whose key is not already in the
// table and returns the merged copy plus the number of rows added. The
// key set is built once, so merging stays linear in table size.
func (t ReviewTable) Merge(incoming []datashake.Review) (ReviewTable, int) {
	seen := make(map[string]struct{}, len(t))
	for _, r := range t {
		seen[r.Key()] = struct{}{}
	}

	out := t.Clone()
	added := 0
	for _, r := range incoming {
		key := r.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
		added++
	}
	return out, added
}
