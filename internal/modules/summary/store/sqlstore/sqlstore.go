// Package sqlstore is the durable summary store on gorm (sqlite, mysql, postgres).
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yoola/core/internal/database"
	"github.com/yoola/core/internal/models"
	"github.com/yoola/core/internal/modules/summary"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Kind names the SQL dialect in use.
func (s *Store) Kind() string { return s.db.Dialector.Name() }

func (s *Store) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

func (s *Store) Close(context.Context) error {
	database.Close(s.db)
	return nil
}

func (s *Store) Lookup(ctx context.Context, key summary.LookupKey, language string) (*summary.Record, error) {
	if key.Fingerprint == "" {
		return nil, summary.ErrNotFound
	}
	db := s.db.WithContext(ctx)

	var doc models.DocumentModel
	if err := db.Where("fingerprint = ?", key.Fingerprint).First(&doc).Error; err != nil {
		return nil, classify(err)
	}
	var sm models.SummaryModel
	if err := db.Where("document_id = ? AND language = ?", doc.ID, language).First(&sm).Error; err != nil {
		return nil, classify(err)
	}
	return toRecord(&doc, &sm), nil
}

func (s *Store) Upsert(ctx context.Context, in summary.UpsertInput) (*summary.Record, error) {
	fp := summary.Fingerprint(in.Content)
	if fp == "" {
		return nil, summary.ErrEmptyContent
	}
	language := summary.NormalizeLanguage(in.Language)
	domain := summary.NormalizeDomain(in.Domain)
	url := strings.TrimSpace(in.URL)

	var rec *summary.Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lang := models.LanguageModel{Language: language}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "language"}},
			DoNothing: true,
		}).Create(&lang).Error; err != nil {
			return fmt.Errorf("ensure language: %w", err)
		}

		doc := models.DocumentModel{Fingerprint: fp, Content: in.Content, URL: url, Domain: domain}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fingerprint"}},
			DoNothing: true,
		}).Create(&doc).Error; err != nil {
			return fmt.Errorf("ensure document: %w", err)
		}

		var stored models.DocumentModel
		if err := tx.Where("fingerprint = ?", fp).First(&stored).Error; err != nil {
			return fmt.Errorf("load document: %w", err)
		}
		updates := map[string]interface{}{}
		if url != "" && stored.URL != url {
			updates["url"] = url
		}
		if domain != "" && stored.Domain == "" {
			updates["domain"] = domain
		}
		if len(updates) > 0 {
			if err := tx.Model(&stored).Updates(updates).Error; err != nil {
				return fmt.Errorf("update document: %w", err)
			}
		}

		sm := models.SummaryModel{DocumentID: stored.ID, Language: language, Payload: in.Summary, RequestNum: 1, IsReviewed: in.IsReviewed}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "document_id"}, {Name: "language"}},
			DoUpdates: append(
				clause.AssignmentColumns([]string{"payload", "is_reviewed", "updated_at"}),
				clause.Assignment{Column: clause.Column{Name: "request_num"}, Value: gorm.Expr("summaries.request_num + 1")},
			),
		}).Create(&sm).Error; err != nil {
			return fmt.Errorf("upsert summary: %w", err)
		}

		var saved models.SummaryModel
		if err := tx.Where("document_id = ? AND language = ?", stored.ID, language).First(&saved).Error; err != nil {
			return fmt.Errorf("load summary: %w", err)
		}
		rec = toRecord(&stored, &saved)
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return rec, nil
}

// ListLanguages returns the language reference table ordered by name.
func (s *Store) ListLanguages(ctx context.Context) ([]models.LanguageModel, error) {
	var out []models.LanguageModel
	if err := s.db.WithContext(ctx).Order("language ASC").Find(&out).Error; err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// SeedLanguages inserts the given languages, refreshing country metadata of existing rows.
func (s *Store) SeedLanguages(ctx context.Context, langs []models.LanguageModel) (int, error) {
	if len(langs) == 0 {
		return 0, nil
	}
	rows := make([]models.LanguageModel, len(langs))
	copy(rows, langs)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "language"}},
		DoUpdates: clause.AssignmentColumns([]string{"country", "country_code", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, classify(err)
	}
	return len(rows), nil
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return summary.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isBusy(err):
		return fmt.Errorf("%w: %w", summary.ErrStoreWriteConflict, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", summary.ErrStoreUnavailable, err)
	}
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func toRecord(doc *models.DocumentModel, sm *models.SummaryModel) *summary.Record {
	return &summary.Record{
		DocumentID:  doc.ID,
		Fingerprint: doc.Fingerprint,
		Domain:      doc.Domain,
		URL:         doc.URL,
		Language:    sm.Language,
		Summary:     sm.Payload,
		RequestNum:  sm.RequestNum,
		IsReviewed:  sm.IsReviewed,
		CreatedAt:   sm.CreatedAt,
		UpdatedAt:   sm.UpdatedAt,
	}
}
