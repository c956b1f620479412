package summary

import "errors"

var (
	// ErrNotFound is returned by Store.Lookup when no summary exists for the key and language.
	ErrNotFound = errors.New("summary not found")
	// ErrEmptyContent marks input whose fingerprint is the reserved empty key.
	ErrEmptyContent = errors.New("content is empty")
	// ErrStoreUnavailable wraps failures talking to the summary store.
	ErrStoreUnavailable = errors.New("summary store unavailable")
	// ErrStoreWriteConflict is returned when an upsert lost a uniqueness race.
	ErrStoreWriteConflict = errors.New("summary store write conflict")
	// ErrSummarizerMalformed marks summarizer output that failed parsing or validation.
	ErrSummarizerMalformed = errors.New("summarizer returned a malformed summary")
	// ErrSummarizerTransport marks summarizer calls that failed before producing output.
	ErrSummarizerTransport = errors.New("summarizer request failed")
	// ErrSummaryUnavailable is returned once every summarize attempt has failed.
	ErrSummaryUnavailable = errors.New("summary unavailable")
)

// InvalidSummaryError describes why a summary payload was rejected.
type InvalidSummaryError struct {
	Reason string
}

func (e *InvalidSummaryError) Error() string {
	return "invalid summary: " + e.Reason
}
