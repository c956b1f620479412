package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu         sync.Mutex
	records    map[string]*Record
	lookups    int
	upserts    int
	lookupErr  error
	upsertErrs []error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*Record)}
}

func (s *fakeStore) Lookup(_ context.Context, key LookupKey, language string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	rec, ok := s.records[key.Fingerprint+":"+language]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) Upsert(_ context.Context, in UpsertInput) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if len(s.upsertErrs) > 0 {
		err := s.upsertErrs[0]
		s.upsertErrs = s.upsertErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	fp := Fingerprint(in.Content)
	k := fp + ":" + in.Language
	rec, ok := s.records[k]
	if !ok {
		rec = &Record{DocumentID: fp, Fingerprint: fp, Domain: in.Domain, Language: in.Language, CreatedAt: time.Now()}
		s.records[k] = rec
	}
	if in.URL != "" {
		rec.URL = in.URL
	}
	rec.Summary = in.Summary
	rec.IsReviewed = in.IsReviewed
	rec.RequestNum++
	rec.UpdatedAt = time.Now()
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) counts() (lookups, upserts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups, s.upserts
}

type summarizeFunc func(ctx context.Context, in SummarizeInput) (json.RawMessage, error)

type fakeSummarizer struct {
	mu       sync.Mutex
	calls    int
	returned int
	inputs   []SummarizeInput
	steps    []summarizeFunc
}

func (f *fakeSummarizer) Summarize(ctx context.Context, in SummarizeInput) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	f.inputs = append(f.inputs, in)
	step := f.steps[len(f.steps)-1]
	if f.calls <= len(f.steps) {
		step = f.steps[f.calls-1]
	}
	f.mu.Unlock()

	raw, err := step(ctx, in)

	f.mu.Lock()
	f.returned++
	f.mu.Unlock()
	return raw, err
}

func (f *fakeSummarizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSummarizer) returnedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.returned
}

func summaryJSON(lang string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"language_code":%q,"key_points":["point one","point two"],"data_collection_summary":"collects data","user_rights_summary":"you have rights","alerts_and_warnings":["arbitration"]}`, lang))
}

func respondValid(_ context.Context, in SummarizeInput) (json.RawMessage, error) {
	return summaryJSON(in.Language), nil
}

func respondLanguage(lang string) summarizeFunc {
	return func(context.Context, SummarizeInput) (json.RawMessage, error) {
		return summaryJSON(lang), nil
	}
}

func respondError(err error) summarizeFunc {
	return func(context.Context, SummarizeInput) (json.RawMessage, error) {
		return nil, err
	}
}

const tosText = "By using Example you agree to binding arbitration and to the collection of your data."

func TestGetOrCreateMissThenHit(t *testing.T) {
	store := newFakeStore()
	sum := &fakeSummarizer{steps: []summarizeFunc{respondValid}}
	svc := NewService(store, sum)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, Request{Content: tosText, Domain: "Example.com", URL: "https://example.com/tos", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, SourceSummarizer, first.Source)
	assert.Equal(t, 1, first.RequestNum)
	assert.Equal(t, "en", first.LanguageCode)
	assert.Equal(t, []string{"point one", "point two"}, first.KeyPoints)
	assert.Equal(t, Fingerprint(tosText), first.Fingerprint)
	assert.Equal(t, "https://example.com/tos", first.OriginalURL)
	assert.False(t, first.IsReviewed)

	second, err := svc.GetOrCreate(ctx, Request{Content: "  BY USING example you agree to binding\narbitration and to the collection of your data.  ", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.SummaryPayload, second.SummaryPayload)
	assert.Equal(t, 1, sum.callCount())

	_, upserts := store.counts()
	assert.Equal(t, 1, upserts)
}

func TestGetOrCreateLanguagesAreIsolated(t *testing.T) {
	store := newFakeStore()
	sum := &fakeSummarizer{steps: []summarizeFunc{respondValid}}
	svc := NewService(store, sum)
	ctx := context.Background()

	en, err := svc.GetOrCreate(ctx, Request{Content: tosText, Language: "en"})
	require.NoError(t, err)
	fr, err := svc.GetOrCreate(ctx, Request{Content: tosText, Language: "fr"})
	require.NoError(t, err)

	assert.Equal(t, "en", en.LanguageCode)
	assert.Equal(t, "fr", fr.LanguageCode)
	assert.Equal(t, SourceSummarizer, fr.Source)
	assert.Equal(t, 2, sum.callCount())
}

func TestGetOrCreateDefaultsLanguage(t *testing.T) {
	sum := &fakeSummarizer{steps: []summarizeFunc{respondValid}}
	svc := NewService(newFakeStore(), sum)

	res, err := svc.GetOrCreate(context.Background(), Request{Content: tosText, Language: "  "})
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguage, res.LanguageCode)
}

func TestGetOrCreateEmptyContentUsesExample(t *testing.T) {
	store := newFakeStore()
	sum := &fakeSummarizer{steps: []summarizeFunc{respondValid}}
	svc := NewService(store, sum)

	res, err := svc.GetOrCreate(context.Background(), Request{Content: " \n\t", Domain: "www.google.com", URL: "https://google.com/terms", Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, SourceExample, res.Source)
	assert.True(t, res.IsReviewed)
	assert.NotEmpty(t, res.KeyPoints)
	assert.Equal(t, "https://google.com/terms", res.OriginalURL)

	lookups, upserts := store.counts()
	assert.Zero(t, lookups)
	assert.Zero(t, upserts)
	assert.Zero(t, sum.callCount())
}

func TestGetOrCreateLanguageMismatchFailsWithoutCaching(t *testing.T) {
	store := newFakeStore()
	sum := &fakeSummarizer{steps: []summarizeFunc{respondLanguage("fr")}}
	svc := NewService(store, sum)

	res, err := svc.GetOrCreate(context.Background(), Request{Content: tosText, Language: "en"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrSummaryUnavailable)
	assert.ErrorIs(t, err, ErrSummarizerMalformed)

	var invalid *InvalidSummaryError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "language_code")

	assert.Equal(t, 2, sum.callCount())
	_, upserts := store.counts()
	assert.Zero(t, upserts)
}

func TestGetOrCreateRetriesOnce(t *testing.T) {
	store := newFakeStore()
	sum := &fakeSummarizer{steps: []summarizeFunc{
		respondError(errors.New("connection reset")),
		respondValid,
	}}
	svc := NewService(store, sum)

	res, err := svc.GetOrCreate(context.Background(), Request{Content: tosText, Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, SourceSummarizer, res.Source)
	assert.Equal(t, 2, sum.callCount())
}

func TestGetOrCreateTransportErrorsSurface(t *testing.T) {
	sum := &fakeSummarizer{steps: []summarizeFunc{respondError(errors.New("dial tcp: refused"))}}
	svc := NewService(newFakeStore(), sum, WithMaxAttempts(3))

	_, err := svc.GetOrCreate(context.Background(), Request{Content: tosText, Language: "en"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSummaryUnavailable)
	assert.ErrorIs(t, err, ErrSummarizerTransport)
	assert.Equal(t, 3, sum.callCount())
}

func TestGetOrCreateTruncatesSummarizerInput(t *testing.T) {
	store := newFakeStore()
	sum := &fakeSummarizer{steps: []summarizeFunc{respondValid}}
	svc := NewService(store, sum, WithMaxContentChars(100))

	content := strings.Repeat("word ", 100)
	res, err := svc.GetOrCreate(context.Background(), Request{Content: content, Language: "en"})
	require.NoError(t, err)

	require.Len(t, sum.inputs, 1)
	sent := sum.inputs[0].Content
	assert.Equal(t, 103, utf8.RuneCountInString(sent))
	assert.True(t, strings.HasSuffix(sent, "..."))
	assert.Equal(t, Fingerprint(content), res.Fingerprint)
}

func TestGetOrCreateLookupErrorIsAMiss(t *testing.T) {
	store := newFakeStore()
	store.lookupErr = errors.New("database is locked")
	sum := &fakeSummarizer{steps: []summarizeFunc{respondValid}}
	svc := NewService(store, sum)

	res, err := svc.GetOrCreate(context.Background(), Request{Content: tosText, Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, SourceSummarizer, res.Source)

	_, upserts := store.counts()
	assert.Equal(t, 1, upserts)
}

func TestGetOrCreateUpsertConflictRetriedOnce(t *testing.T) {
	store := newFakeStore()
	store.upsertErrs = []error{ErrStoreWriteConflict}
	sum := &fakeSummarizer{steps: []summarizeFunc{respondValid}}
	svc := NewService(store, sum)

	res, err := svc.GetOrCreate(context.Background(), Request{Content: tosText, Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RequestNum)

	_, upserts := store.counts()
	assert.Equal(t, 2, upserts)
}

func TestGetOrCreateUpsertConflictSurfaces(t *testing.T) {
	store := newFakeStore()
	store.upsertErrs = []error{ErrStoreWriteConflict, ErrStoreWriteConflict}
	sum := &fakeSummarizer{steps: []summarizeFunc{respondValid}}
	svc := NewService(store, sum)

	_, err := svc.GetOrCreate(context.Background(), Request{Content: tosText, Language: "en"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreWriteConflict)
	assert.Equal(t, 1, sum.callCount())
}

func TestGetOrCreateCoalescesConcurrentMisses(t *testing.T) {
	store := newFakeStore()
	sum := &fakeSummarizer{steps: []summarizeFunc{
		func(ctx context.Context, in SummarizeInput) (json.RawMessage, error) {
			time.Sleep(50 * time.Millisecond)
			return summaryJSON(in.Language), nil
		},
	}}
	svc := NewService(store, sum)

	const n = 16
	var wg sync.WaitGroup
	results := make([]*Result, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetOrCreate(context.Background(), Request{Content: tosText, Language: "en"})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 1, results[i].RequestNum)
	}
	assert.Equal(t, 1, sum.callCount())
	_, upserts := store.counts()
	assert.Equal(t, 1, upserts)
}

func TestGetOrCreateSharedFillSurvivesFirstCallerLeaving(t *testing.T) {
	store := newFakeStore()
	started := make(chan struct{})
	sum := &fakeSummarizer{steps: []summarizeFunc{
		func(ctx context.Context, in SummarizeInput) (json.RawMessage, error) {
			close(started)
			select {
			case <-time.After(200 * time.Millisecond):
				return summaryJSON(in.Language), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}}
	svc := NewService(store, sum)
	req := Request{Content: tosText, Language: "en"}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetOrCreate(firstCtx, req)
		firstErr <- err
	}()
	<-started

	secondRes := make(chan *Result, 1)
	secondErr := make(chan error, 1)
	go func() {
		res, err := svc.GetOrCreate(context.Background(), req)
		secondRes <- res
		secondErr <- err
	}()

	// Let the second caller join the running fill before the first leaves.
	time.Sleep(50 * time.Millisecond)
	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	require.NoError(t, <-secondErr)
	res := <-secondRes
	assert.Equal(t, SourceSummarizer, res.Source)
	assert.Equal(t, 1, res.RequestNum)
	assert.Equal(t, 1, sum.callCount())
	_, upserts := store.counts()
	assert.Equal(t, 1, upserts)
}

func TestGetOrCreateRetriesAbandonedFill(t *testing.T) {
	store := newFakeStore()
	sum := &fakeSummarizer{steps: []summarizeFunc{
		func(ctx context.Context, _ SummarizeInput) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		respondValid,
	}}
	svc := NewService(store, sum)
	req := Request{Content: tosText, Language: "en"}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := svc.GetOrCreate(ctx, req)
	require.ErrorIs(t, err, context.Canceled)

	res, err := svc.GetOrCreate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RequestNum)
	assert.Equal(t, 2, sum.callCount())
}

func TestGetOrCreateCallerCancellation(t *testing.T) {
	store := newFakeStore()
	sum := &fakeSummarizer{steps: []summarizeFunc{
		func(ctx context.Context, _ SummarizeInput) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}
	svc := NewService(store, sum)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := svc.GetOrCreate(ctx, Request{Content: tosText, Language: "en"})
	require.ErrorIs(t, err, context.Canceled)

	require.Eventually(t, func() bool { return sum.returnedCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, sum.callCount())
	_, upserts := store.counts()
	assert.Zero(t, upserts)
}

func TestGetOrCreateSummarizerTimeout(t *testing.T) {
	sum := &fakeSummarizer{steps: []summarizeFunc{
		func(ctx context.Context, _ SummarizeInput) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}
	svc := NewService(newFakeStore(), sum, WithSummarizerTimeout(10*time.Millisecond))

	_, err := svc.GetOrCreate(context.Background(), Request{Content: tosText, Language: "en"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSummaryUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, sum.callCount())
}

type fakeMarker struct {
	acquire bool
	onWait  func()
	waited  int
	release int
}

func (m *fakeMarker) Acquire(context.Context, string) (bool, error) { return m.acquire, nil }

func (m *fakeMarker) Wait(context.Context, string) error {
	m.waited++
	if m.onWait != nil {
		m.onWait()
	}
	return nil
}

func (m *fakeMarker) Release(context.Context, string) error {
	m.release++
	return nil
}

func TestGetOrCreateWaitsForOtherInstance(t *testing.T) {
	store := newFakeStore()
	sum := &fakeSummarizer{steps: []summarizeFunc{respondValid}}
	marker := &fakeMarker{onWait: func() {
		payload, err := ValidatePayload(summaryJSON("en"), "en")
		require.NoError(t, err)
		_, err = store.Upsert(context.Background(), UpsertInput{Content: tosText, Language: "en", Summary: payload})
		require.NoError(t, err)
	}}
	svc := NewService(store, sum, WithInflightMarker(marker))

	res, err := svc.GetOrCreate(context.Background(), Request{Content: tosText, Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, 1, marker.waited)
	assert.Zero(t, marker.release)
	assert.Zero(t, sum.callCount())
}

func TestGetOrCreateReleasesAcquiredMarker(t *testing.T) {
	marker := &fakeMarker{acquire: true}
	sum := &fakeSummarizer{steps: []summarizeFunc{respondValid}}
	svc := NewService(newFakeStore(), sum, WithInflightMarker(marker))

	_, err := svc.GetOrCreate(context.Background(), Request{Content: tosText, Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, 1, marker.release)
	assert.Zero(t, marker.waited)
}

func TestLookup(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeSummarizer{steps: []summarizeFunc{respondValid}})
	ctx := context.Background()

	_, err := svc.Lookup(ctx, tosText, "", "en")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Lookup(ctx, "   ", "", "en")
	require.ErrorIs(t, err, ErrEmptyContent)

	_, err = svc.GetOrCreate(ctx, Request{Content: tosText, Language: "en"})
	require.NoError(t, err)

	res, err := svc.Lookup(ctx, tosText, "", "en")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
}

func TestCreateUserSummary(t *testing.T) {
	store := newFakeStore()
	sum := &fakeSummarizer{steps: []summarizeFunc{respondValid}}
	svc := NewService(store, sum)
	ctx := context.Background()
	req := Request{Content: tosText, Domain: "example.com", URL: "https://example.com/tos", Language: "de"}

	_, err := svc.Create(ctx, req, summaryJSON("en"), false)
	var invalid *InvalidSummaryError
	require.ErrorAs(t, err, &invalid)

	first, err := svc.Create(ctx, req, summaryJSON("de"), false)
	require.NoError(t, err)
	assert.Equal(t, SourceUser, first.Source)
	assert.Equal(t, 1, first.RequestNum)

	assert.False(t, first.IsReviewed)

	second, err := svc.Create(ctx, req, summaryJSON("de"), true)
	require.NoError(t, err)
	assert.Equal(t, 2, second.RequestNum)
	assert.True(t, second.IsReviewed)

	_, err = svc.Create(ctx, Request{Content: " ", Language: "de"}, summaryJSON("de"), false)
	require.ErrorIs(t, err, ErrEmptyContent)

	cached, err := svc.GetOrCreate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, cached.Source)
	assert.True(t, cached.IsReviewed)
	assert.Zero(t, sum.callCount())
}
