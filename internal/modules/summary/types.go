package summary

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yoola/core/internal/models"
)

// DefaultLanguage is used when a request does not name one.
const DefaultLanguage = "en"

// Source tells where a returned summary came from.
type Source string

const (
	SourceCache      Source = "cache"
	SourceSummarizer Source = "summarizer"
	SourceUser       Source = "user"
	SourceExample    Source = "example"
)

// Request asks for the summary of content in a language.
type Request struct {
	Content  string
	Domain   string
	URL      string
	Language string
}

// Result is a summary as returned to callers.
type Result struct {
	models.SummaryPayload
	Fingerprint string    `json:"fingerprint,omitempty"`
	Domain      string    `json:"domain,omitempty"`
	OriginalURL string    `json:"original_url"`
	RequestNum  int       `json:"request_num"`
	Source      Source    `json:"source"`
	IsReviewed  bool      `json:"is_reviewed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LookupKey identifies a document. Durable stores match on Fingerprint only;
// the in-memory fallback also uses Domain and Snippet.
type LookupKey struct {
	Fingerprint string
	Snippet     string
	Domain      string
}

// KeyFor builds the lookup key of content seen on domain.
func KeyFor(content, domain string) LookupKey {
	return LookupKey{
		Fingerprint: Fingerprint(content),
		Snippet:     Snippet(content),
		Domain:      NormalizeDomain(domain),
	}
}

// UpsertInput is one write of a summary. The store derives the fingerprint from Content.
// IsReviewed marks a summary a person has checked and is replaced on every upsert.
type UpsertInput struct {
	Content    string
	Domain     string
	URL        string
	Language   string
	Summary    models.SummaryPayload
	IsReviewed bool
}

// Record is a stored document joined with one of its summaries.
type Record struct {
	DocumentID  string
	Fingerprint string
	Domain      string
	URL         string
	Language    string
	Summary     models.SummaryPayload
	RequestNum  int
	IsReviewed  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store persists documents and their per-language summaries.
type Store interface {
	// Lookup returns ErrNotFound when nothing matches.
	Lookup(ctx context.Context, key LookupKey, language string) (*Record, error)
	// Upsert ensures the language and document rows, then inserts the summary
	// with request_num 1 or replaces it and increments request_num. All or nothing.
	Upsert(ctx context.Context, in UpsertInput) (*Record, error)
}

// SummarizeInput is what the summarizer receives. Content is already truncated.
type SummarizeInput struct {
	Content  string
	Domain   string
	URL      string
	Language string
}

// Summarizer produces the raw structured summary object for a document.
type Summarizer interface {
	Summarize(ctx context.Context, in SummarizeInput) (json.RawMessage, error)
}

// InflightMarker coordinates duplicate misses across processes.
type InflightMarker interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}
