// Package mongostore is the durable summary store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/yoola/core/internal/models"
	"github.com/yoola/core/internal/modules/summary"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	documentsCollection = "documents"
	summariesCollection = "summaries"
	languagesCollection = "languages"

	mongoCloseTimeout = 5 * time.Second
	// IllegalOperation: standalone servers reject multi-document transactions.
	codeIllegalOperation = 20
)

type documentDoc struct {
	ID          string    `bson:"_id"`
	Fingerprint string    `bson:"fingerprint"`
	Content     string    `bson:"content"`
	URL         string    `bson:"url"`
	Domain      string    `bson:"domain"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type summaryDoc struct {
	ID         string                `bson:"_id"`
	DocumentID string                `bson:"document_id"`
	Language   string                `bson:"language"`
	Payload    models.SummaryPayload `bson:"payload"`
	RequestNum int                   `bson:"request_num"`
	IsReviewed bool                  `bson:"is_reviewed"`
	CreatedAt  time.Time             `bson:"created_at"`
	UpdatedAt  time.Time             `bson:"updated_at"`
}

type languageDoc struct {
	ID          string    `bson:"_id"`
	Language    string    `bson:"language"`
	Country     string    `bson:"country"`
	CountryCode string    `bson:"country_code"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type Store struct {
	client    *mongo.Client
	documents *mongo.Collection
	summaries *mongo.Collection
	languages *mongo.Collection
	noTxn     atomic.Bool
}

// Connect dials uri, verifies it and ensures the unique indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("mongo uri is required")
	}
	if strings.TrimSpace(database) == "" {
		return nil, errors.New("mongo database name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", summary.ErrStoreUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: %w", summary.ErrStoreUnavailable, err)
	}

	db := client.Database(database)
	s := &Store{
		client:    client,
		documents: db.Collection(documentsCollection),
		summaries: db.Collection(summariesCollection),
		languages: db.Collection(languagesCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.documents.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "fingerprint", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "domain", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create document indexes: %w", err)
	}
	if _, err := s.summaries.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "language", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create summary indexes: %w", err)
	}
	if _, err := s.languages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "language", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create language indexes: %w", err)
	}
	return nil
}

func (s *Store) Kind() string { return "mongo" }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, mongoCloseTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Lookup(ctx context.Context, key summary.LookupKey, language string) (*summary.Record, error) {
	if key.Fingerprint == "" {
		return nil, summary.ErrNotFound
	}
	var doc documentDoc
	if err := s.documents.FindOne(ctx, bson.M{"fingerprint": key.Fingerprint}).Decode(&doc); err != nil {
		return nil, classify(err)
	}
	var sum summaryDoc
	if err := s.summaries.FindOne(ctx, bson.M{"document_id": doc.ID, "language": language}).Decode(&sum); err != nil {
		return nil, classify(err)
	}
	return toRecord(&doc, &sum), nil
}

// Upsert runs in a transaction when the deployment supports one. On a
// standalone server each step is a single-document atomic upsert and the
// summary write comes last, so a failure never exposes a partial summary.
func (s *Store) Upsert(ctx context.Context, in summary.UpsertInput) (*summary.Record, error) {
	fp := summary.Fingerprint(in.Content)
	if fp == "" {
		return nil, summary.ErrEmptyContent
	}
	in.Language = summary.NormalizeLanguage(in.Language)
	in.Domain = summary.NormalizeDomain(in.Domain)
	in.URL = strings.TrimSpace(in.URL)

	if !s.noTxn.Load() {
		rec, err := s.upsertInTransaction(ctx, fp, in)
		if !isTransactionUnsupported(err) {
			return rec, classify(err)
		}
		s.noTxn.Store(true)
	}
	rec, err := s.upsert(ctx, fp, in)
	return rec, classify(err)
}

func (s *Store) upsertInTransaction(ctx context.Context, fp string, in summary.UpsertInput) (*summary.Record, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	out, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return s.upsert(sc, fp, in)
	})
	if err != nil {
		return nil, err
	}
	return out.(*summary.Record), nil
}

func (s *Store) upsert(ctx context.Context, fp string, in summary.UpsertInput) (*summary.Record, error) {
	now := time.Now().UTC()

	if _, err := s.languages.UpdateOne(ctx,
		bson.M{"language": in.Language},
		bson.M{"$setOnInsert": bson.M{
			"_id":          uuid.New().String(),
			"country":      "",
			"country_code": "",
			"created_at":   now,
			"updated_at":   now,
		}},
		options.Update().SetUpsert(true),
	); err != nil {
		return nil, fmt.Errorf("ensure language: %w", err)
	}

	onInsert := bson.M{
		"_id":        uuid.New().String(),
		"content":    in.Content,
		"domain":     in.Domain,
		"created_at": now,
	}
	set := bson.M{"updated_at": now}
	if in.URL != "" {
		set["url"] = in.URL
	} else {
		onInsert["url"] = ""
	}
	var doc documentDoc
	if err := s.documents.FindOneAndUpdate(ctx,
		bson.M{"fingerprint": fp},
		bson.M{"$setOnInsert": onInsert, "$set": set},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc); err != nil {
		return nil, fmt.Errorf("ensure document: %w", err)
	}

	var sum summaryDoc
	if err := s.summaries.FindOneAndUpdate(ctx,
		bson.M{"document_id": doc.ID, "language": in.Language},
		bson.M{
			"$setOnInsert": bson.M{"_id": uuid.New().String(), "created_at": now},
			"$set":         bson.M{"payload": in.Summary, "is_reviewed": in.IsReviewed, "updated_at": now},
			"$inc":         bson.M{"request_num": 1},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&sum); err != nil {
		return nil, fmt.Errorf("upsert summary: %w", err)
	}
	return toRecord(&doc, &sum), nil
}

func (s *Store) ListLanguages(ctx context.Context) ([]models.LanguageModel, error) {
	cursor, err := s.languages.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "language", Value: 1}}))
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var docs []languageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}
	out := make([]models.LanguageModel, 0, len(docs))
	for _, d := range docs {
		l := models.LanguageModel{Language: d.Language, Country: d.Country, CountryCode: d.CountryCode}
		l.ID = d.ID
		l.CreatedAt = d.CreatedAt
		l.UpdatedAt = d.UpdatedAt
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) SeedLanguages(ctx context.Context, langs []models.LanguageModel) (int, error) {
	if len(langs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(langs))
	for _, l := range langs {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"language": l.Language}).
			SetUpdate(bson.M{
				"$set":         bson.M{"country": l.Country, "country_code": l.CountryCode, "updated_at": now},
				"$setOnInsert": bson.M{"_id": uuid.New().String(), "created_at": now},
			}).
			SetUpsert(true))
	}
	if _, err := s.languages.BulkWrite(ctx, writes); err != nil {
		return 0, classify(err)
	}
	return len(langs), nil
}

func isTransactionUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeIllegalOperation {
		return true
	}
	return strings.Contains(err.Error(), "Transaction numbers are only allowed")
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return summary.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", summary.ErrStoreWriteConflict, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", summary.ErrStoreUnavailable, err)
	}
}

func toRecord(doc *documentDoc, sum *summaryDoc) *summary.Record {
	return &summary.Record{
		DocumentID:  doc.ID,
		Fingerprint: doc.Fingerprint,
		Domain:      doc.Domain,
		URL:         doc.URL,
		Language:    sum.Language,
		Summary:     sum.Payload,
		RequestNum:  sum.RequestNum,
		IsReviewed:  sum.IsReviewed,
		CreatedAt:   sum.CreatedAt,
		UpdatedAt:   sum.UpdatedAt,
	}
}
