// Package memstore is the process-lifetime summary store used in degraded mode.
//
// Documents are kept in insertion order. Lookup matches the exact fingerprint
// first and, when a domain is given, falls back to the first document of the
// same domain whose snippet contains, or is contained in, the requested one.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yoola/core/internal/models"
	"github.com/yoola/core/internal/modules/summary"
)

type document struct {
	id          string
	fingerprint string
	snippet     string
	domain      string
	url         string
	summaries   map[string]*entry
}

type entry struct {
	payload    models.SummaryPayload
	requestNum int
	isReviewed bool
	createdAt  time.Time
	updatedAt  time.Time
}

type Store struct {
	mu        sync.RWMutex
	docs      []*document
	byFP      map[string]*document
	languages map[string]models.LanguageModel
}

func New() *Store {
	return &Store{
		byFP:      make(map[string]*document),
		languages: make(map[string]models.LanguageModel),
	}
}

func (s *Store) Kind() string { return "memory" }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }

func (s *Store) Lookup(ctx context.Context, key summary.LookupKey, language string) (*summary.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if doc, ok := s.byFP[key.Fingerprint]; ok && key.Fingerprint != "" {
		if e, ok := doc.summaries[language]; ok {
			return toRecord(doc, language, e), nil
		}
	}

	domain := summary.NormalizeDomain(key.Domain)
	if domain == "" || key.Snippet == "" {
		return nil, summary.ErrNotFound
	}
	for _, doc := range s.docs {
		if doc.domain != domain || doc.snippet == "" {
			continue
		}
		if !strings.Contains(doc.snippet, key.Snippet) && !strings.Contains(key.Snippet, doc.snippet) {
			continue
		}
		if e, ok := doc.summaries[language]; ok {
			return toRecord(doc, language, e), nil
		}
	}
	return nil, summary.ErrNotFound
}

func (s *Store) Upsert(ctx context.Context, in summary.UpsertInput) (*summary.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fp := summary.Fingerprint(in.Content)
	if fp == "" {
		return nil, summary.ErrEmptyContent
	}
	language := summary.NormalizeLanguage(in.Language)
	url := strings.TrimSpace(in.URL)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.languages[language]; !ok {
		s.languages[language] = newLanguage(language, "", "", now)
	}

	doc, ok := s.byFP[fp]
	if !ok {
		doc = &document{
			id:          uuid.New().String(),
			fingerprint: fp,
			snippet:     summary.Snippet(in.Content),
			domain:      summary.NormalizeDomain(in.Domain),
			url:         url,
			summaries:   make(map[string]*entry),
		}
		s.docs = append(s.docs, doc)
		s.byFP[fp] = doc
	}
	if url != "" {
		doc.url = url
	}
	if doc.domain == "" {
		doc.domain = summary.NormalizeDomain(in.Domain)
	}

	e, ok := doc.summaries[language]
	if !ok {
		e = &entry{createdAt: now}
		doc.summaries[language] = e
	}
	e.payload = clonePayload(in.Summary)
	e.isReviewed = in.IsReviewed
	e.requestNum++
	e.updatedAt = now
	return toRecord(doc, language, e), nil
}

func (s *Store) ListLanguages(context.Context) ([]models.LanguageModel, error) {
	s.mu.RLock()
	out := make([]models.LanguageModel, 0, len(s.languages))
	for _, l := range s.languages {
		out = append(out, l)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Language < out[j].Language })
	return out, nil
}

func (s *Store) SeedLanguages(_ context.Context, langs []models.LanguageModel) (int, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range langs {
		existing, ok := s.languages[l.Language]
		if !ok {
			s.languages[l.Language] = newLanguage(l.Language, l.Country, l.CountryCode, now)
			continue
		}
		existing.Country = l.Country
		existing.CountryCode = l.CountryCode
		existing.UpdatedAt = now
		s.languages[l.Language] = existing
	}
	return len(langs), nil
}

func newLanguage(language, country, code string, now time.Time) models.LanguageModel {
	l := models.LanguageModel{Language: language, Country: country, CountryCode: code}
	l.ID = uuid.New().String()
	l.CreatedAt = now
	l.UpdatedAt = now
	return l
}

func clonePayload(p models.SummaryPayload) models.SummaryPayload {
	p.KeyPoints = append([]string(nil), p.KeyPoints...)
	p.AlertsAndWarnings = append([]string{}, p.AlertsAndWarnings...)
	return p
}

func toRecord(doc *document, language string, e *entry) *summary.Record {
	return &summary.Record{
		DocumentID:  doc.id,
		Fingerprint: doc.fingerprint,
		Domain:      doc.domain,
		URL:         doc.url,
		Language:    language,
		Summary:     clonePayload(e.payload),
		RequestNum:  e.requestNum,
		IsReviewed:  e.isReviewed,
		CreatedAt:   e.createdAt,
		UpdatedAt:   e.updatedAt,
	}
}
