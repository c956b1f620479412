package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yoola/core/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultMaxAttempts       = 2
	defaultMaxContentChars   = 24000
	defaultSummarizerTimeout = 90 * time.Second
	defaultStoreTimeout      = 5 * time.Second
)

// Service is the cache-aside orchestrator in front of the summarizer.
type Service struct {
	store      Store
	summarizer Summarizer
	marker     InflightMarker
	logger     *zap.Logger
	group      singleflight.Group

	flightsMu sync.Mutex
	flights   map[string]*flight

	maxAttempts       int
	maxContentChars   int
	summarizerTimeout time.Duration
	storeTimeout      time.Duration
}

func NewService(store Store, summarizer Summarizer, opts ...ServiceOption) *Service {
	s := &Service{
		store:             store,
		summarizer:        summarizer,
		logger:            zap.NewNop(),
		maxAttempts:       defaultMaxAttempts,
		maxContentChars:   defaultMaxContentChars,
		summarizerTimeout: defaultSummarizerTimeout,
		storeTimeout:      defaultStoreTimeout,
		flights:           make(map[string]*flight),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ServiceOption configures a summary Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the summary service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("SummaryService")
		}
	}
}

// WithInflightMarker enables cross-instance coalescing of misses.
func WithInflightMarker(m InflightMarker) ServiceOption {
	return func(s *Service) { s.marker = m }
}

func WithMaxAttempts(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithMaxContentChars(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxContentChars = n
		}
	}
}

// WithSummarizerTimeout bounds each summarizer attempt.
func WithSummarizerTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.summarizerTimeout = d
		}
	}
}

// WithStoreTimeout bounds each store call.
func WithStoreTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// GetOrCreate returns the cached summary of req.Content in req.Language, or
// asks the summarizer for one, validates it, stores it and returns it.
// Empty content gets the example summary without touching the store.
// Concurrent misses for the same key share one fill, which keeps running
// until the last caller waiting on it gives up.
func (s *Service) GetOrCreate(ctx context.Context, req Request) (*Result, error) {
	req = normalizeRequest(req)
	key := KeyFor(req.Content, req.Domain)
	if key.Fingerprint == "" {
		return ExampleSummary(req.Domain, req.URL, req.Language), nil
	}

	rec, err := s.lookup(ctx, key, req.Language)
	switch {
	case err == nil:
		return resultFromRecord(rec, SourceCache), nil
	case errors.Is(err, ErrNotFound):
	default:
		s.logger.Warn("summary lookup failed, treating as miss",
			zap.String("fingerprint", key.Fingerprint),
			zap.String("language", req.Language),
			zap.Error(err),
		)
	}

	flightKey := key.Fingerprint + ":" + req.Language
	for {
		res, err := s.await(ctx, flightKey, key, req)
		if err != nil {
			return nil, err
		}
		if res.Err != nil {
			// The call we joined was abandoned by all of its callers before we arrived.
			if errors.Is(res.Err, errFlightAbandoned) && ctx.Err() == nil {
				continue
			}
			return nil, res.Err
		}
		out := *res.Val.(*Result)
		return &out, nil
	}
}

var errFlightAbandoned = errors.New("summary fill abandoned by its callers")

// flight is the context shared by every caller waiting on one fill. It is
// cancelled once the last of them gives up.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func (s *Service) await(ctx context.Context, flightKey string, key LookupKey, req Request) (singleflight.Result, error) {
	f := s.joinFlight(ctx, flightKey)
	defer s.leaveFlight(flightKey, f)

	ch := s.group.DoChan(flightKey, func() (interface{}, error) {
		res, err := s.fill(f.ctx, key, req)
		if err != nil && f.ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errFlightAbandoned, err)
		}
		return res, err
	})
	select {
	case <-ctx.Done():
		return singleflight.Result{}, ctx.Err()
	case res := <-ch:
		return res, nil
	}
}

func (s *Service) joinFlight(ctx context.Context, flightKey string) *flight {
	s.flightsMu.Lock()
	defer s.flightsMu.Unlock()

	f, ok := s.flights[flightKey]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		s.flights[flightKey] = f
	}
	f.waiters++
	return f
}

func (s *Service) leaveFlight(flightKey string, f *flight) {
	s.flightsMu.Lock()
	defer s.flightsMu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if s.flights[flightKey] == f {
		delete(s.flights, flightKey)
	}
}

// Lookup returns the cached summary without ever calling the summarizer.
func (s *Service) Lookup(ctx context.Context, content, domain, language string) (*Result, error) {
	req := normalizeRequest(Request{Content: content, Domain: domain, Language: language})
	key := KeyFor(req.Content, req.Domain)
	if key.Fingerprint == "" {
		return nil, ErrEmptyContent
	}
	rec, err := s.lookup(ctx, key, req.Language)
	if err != nil {
		return nil, err
	}
	return resultFromRecord(rec, SourceCache), nil
}

// Create validates and stores a summary written by a user.
func (s *Service) Create(ctx context.Context, req Request, raw json.RawMessage, reviewed bool) (*Result, error) {
	req = normalizeRequest(req)
	if Fingerprint(req.Content) == "" {
		return nil, ErrEmptyContent
	}
	payload, err := ValidatePayload(raw, req.Language)
	if err != nil {
		return nil, err
	}
	rec, err := s.upsert(ctx, UpsertInput{
		Content:    req.Content,
		Domain:     req.Domain,
		URL:        req.URL,
		Language:   req.Language,
		Summary:    payload,
		IsReviewed: reviewed,
	})
	if err != nil {
		return nil, err
	}
	return resultFromRecord(rec, SourceUser), nil
}

func (s *Service) fill(ctx context.Context, key LookupKey, req Request) (*Result, error) {
	if s.marker != nil {
		markerKey := key.Fingerprint + ":" + req.Language
		acquired, err := s.marker.Acquire(ctx, markerKey)
		switch {
		case err != nil:
			s.logger.Warn("inflight marker unavailable", zap.String("key", markerKey), zap.Error(err))
		case acquired:
			defer func() {
				if err := s.marker.Release(context.WithoutCancel(ctx), markerKey); err != nil {
					s.logger.Warn("inflight marker release failed", zap.String("key", markerKey), zap.Error(err))
				}
			}()
		default:
			if err := s.marker.Wait(ctx, markerKey); err != nil {
				return nil, err
			}
		}
	}

	// A fill that finished between our miss and entering the group has already stored it.
	if rec, err := s.lookup(ctx, key, req.Language); err == nil {
		return resultFromRecord(rec, SourceCache), nil
	}

	payload, err := s.summarize(ctx, req)
	if err != nil {
		return nil, err
	}

	rec, err := s.upsert(ctx, UpsertInput{
		Content:  req.Content,
		Domain:   req.Domain,
		URL:      req.URL,
		Language: req.Language,
		Summary:  payload,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("summary stored",
		zap.String("fingerprint", rec.Fingerprint),
		zap.String("language", rec.Language),
		zap.Int("request_num", rec.RequestNum),
	)
	return resultFromRecord(rec, SourceSummarizer), nil
}

func (s *Service) summarize(ctx context.Context, req Request) (models.SummaryPayload, error) {
	if s.summarizer == nil {
		return models.SummaryPayload{}, fmt.Errorf("%w: no summarizer configured", ErrSummaryUnavailable)
	}

	in := SummarizeInput{
		Content:  truncateText(req.Content, s.maxContentChars),
		Domain:   req.Domain,
		URL:      req.URL,
		Language: req.Language,
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		payload, err := s.attempt(ctx, in)
		if err == nil {
			return payload, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.SummaryPayload{}, ctxErr
		}
		lastErr = err
		s.logger.Warn("summarize attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
			zap.String("language", req.Language),
			zap.String("url", req.URL),
			zap.Error(err),
		)
	}
	return models.SummaryPayload{}, fmt.Errorf("%w after %d attempts: %w", ErrSummaryUnavailable, s.maxAttempts, lastErr)
}

func (s *Service) attempt(ctx context.Context, in SummarizeInput) (models.SummaryPayload, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.summarizerTimeout)
	defer cancel()

	raw, err := s.summarizer.Summarize(callCtx, in)
	if err != nil {
		if errors.Is(err, ErrSummarizerMalformed) || errors.Is(err, ErrSummarizerTransport) {
			return models.SummaryPayload{}, err
		}
		return models.SummaryPayload{}, fmt.Errorf("%w: %w", ErrSummarizerTransport, err)
	}
	payload, err := ValidatePayload(raw, in.Language)
	if err != nil {
		return models.SummaryPayload{}, fmt.Errorf("%w: %w", ErrSummarizerMalformed, err)
	}
	return payload, nil
}

func (s *Service) lookup(ctx context.Context, key LookupKey, language string) (*Record, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	rec, err := s.store.Lookup(callCtx, key, language)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return rec, nil
}

// upsert retries once when the store reports a lost uniqueness race.
func (s *Service) upsert(ctx context.Context, in UpsertInput) (*Record, error) {
	var rec *Record
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		rec, err = s.store.Upsert(callCtx, in)
		cancel()
		if err == nil || !errors.Is(err, ErrStoreWriteConflict) {
			break
		}
		s.logger.Warn("summary upsert conflict, retrying", zap.String("language", in.Language), zap.Error(err))
	}
	if err != nil {
		return nil, fmt.Errorf("store summary: %w", err)
	}
	return rec, nil
}

func normalizeRequest(req Request) Request {
	req.Language = NormalizeLanguage(req.Language)
	req.Domain = NormalizeDomain(req.Domain)
	req.URL = strings.TrimSpace(req.URL)
	return req
}

// NormalizeLanguage trims the language key; it is otherwise compared verbatim.
func NormalizeLanguage(language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		return DefaultLanguage
	}
	return language
}

// NormalizeDomain lowercases a host name and drops a leading "www.".
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimPrefix(d, "www.")
}

func resultFromRecord(rec *Record, source Source) *Result {
	return &Result{
		SummaryPayload: rec.Summary,
		Fingerprint:    rec.Fingerprint,
		Domain:         rec.Domain,
		OriginalURL:    rec.URL,
		RequestNum:     rec.RequestNum,
		Source:         source,
		IsReviewed:     rec.IsReviewed,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}
