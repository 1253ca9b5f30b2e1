// Package relay defines the core types shared across the relay subsystems.
package relay

// Item is a single remote post as it appears in the source timeline.
type Item struct {
	ID        int64  `json:"id"`
	TextRaw   string `json:"text_raw"`
	CreatedAt string `json:"created_at"`
}

// FetchOutcome is the tagged result of one fetch attempt. A zero Cause means success.
type FetchOutcome struct {
	Items []Item
	Cause string
	Err   error
}

// Success wraps a fetched item list. A nil list becomes an empty one so callers
// can tell an empty timeline from a failed fetch.
func Success(items []Item) FetchOutcome {
	if items == nil {
		items = []Item{}
	}
	return FetchOutcome{Items: items}
}

// Failure builds a failed outcome carrying a short cause label.
func Failure(cause string, err error) FetchOutcome {
	return FetchOutcome{Cause: cause, Err: err}
}

// OK reports whether the attempt succeeded.
func (o FetchOutcome) OK() bool {
	return o.Cause == "" && o.Err == nil
}

// ScanReport summarizes one scan cycle.
type ScanReport struct {
	RunID          string `json:"run_id"`
	FetchFailed    bool   `json:"fetch_failed"`
	Fetched        int    `json:"fetched"`
	New            int    `json:"new"`
	Skipped        int    `json:"skipped"`
	StoreErrors    int    `json:"store_errors"`
	DispatchErrors int    `json:"dispatch_errors"`
	DryRun         bool   `json:"dry_run,omitempty"`
}
