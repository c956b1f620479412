package language

import (
	"context"
	"errors"

	"github.com/yoola/core/internal/models"
	"go.uber.org/zap"
)

// Catalog is the language reference table kept next to the summaries.
type Catalog interface {
	ListLanguages(ctx context.Context) ([]models.LanguageModel, error)
	SeedLanguages(ctx context.Context, langs []models.LanguageModel) (int, error)
}

var ErrNoCatalog = errors.New("language catalog not configured")

type seedEntry struct {
	Code        string
	Name        string
	Country     string
	CountryCode string
}

// seedLanguages lists the twenty most spoken languages with the primary
// country used for their flag.
var seedLanguages = []seedEntry{
	{"zh", "Mandarin Chinese", "China", "cn"},
	{"es", "Spanish", "Spain", "es"},
	{"en", "English", "United Kingdom", "gb"},
	{"hi", "Hindi", "India", "in"},
	{"bn", "Bengali", "Bangladesh", "bd"},
	{"pt", "Portuguese", "Portugal", "pt"},
	{"ru", "Russian", "Russia", "ru"},
	{"ja", "Japanese", "Japan", "jp"},
	{"pnb", "Western Punjabi", "Pakistan", "pk"},
	{"mr", "Marathi", "India", "in"},
	{"te", "Telugu", "India", "in"},
	{"tr", "Turkish", "Turkey", "tr"},
	{"wuu", "Wu Chinese", "China", "cn"},
	{"ko", "Korean", "South Korea", "kr"},
	{"fr", "French", "France", "fr"},
	{"vi", "Vietnamese", "Vietnam", "vn"},
	{"de", "German", "Germany", "de"},
	{"ur", "Urdu", "Pakistan", "pk"},
	{"jv", "Javanese", "Indonesia", "id"},
	{"it", "Italian", "Italy", "it"},
}

var displayNames = func() map[string]string {
	out := make(map[string]string, len(seedLanguages))
	for _, s := range seedLanguages {
		out[s.Code] = s.Name
	}
	return out
}()

// SeedModels returns the built-in language list as rows ready for SeedLanguages.
func SeedModels() []models.LanguageModel {
	out := make([]models.LanguageModel, 0, len(seedLanguages))
	for _, s := range seedLanguages {
		out = append(out, models.LanguageModel{
			Language:    s.Code,
			Country:     s.Country,
			CountryCode: s.CountryCode,
		})
	}
	return out
}

type Item struct {
	Language    string `json:"language"`
	Name        string `json:"name,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	FlagURL     string `json:"flag_url,omitempty"`
}

type Service struct {
	catalog Catalog
	logger  *zap.Logger
}

func NewService(catalog Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, logger: logger.Named("LanguageService")}
}

func (s *Service) List(ctx context.Context) ([]Item, error) {
	if s.catalog == nil {
		return nil, ErrNoCatalog
	}
	rows, err := s.catalog.ListLanguages(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, Item{
			Language:    row.Language,
			Name:        displayNames[row.Language],
			Country:     row.Country,
			CountryCode: row.CountryCode,
			FlagURL:     row.FlagURL(),
		})
	}
	return items, nil
}

// Seed writes the built-in language list, updating country metadata of
// rows that already exist.
func (s *Service) Seed(ctx context.Context) (int, error) {
	if s.catalog == nil {
		return 0, ErrNoCatalog
	}
	n, err := s.catalog.SeedLanguages(ctx, SeedModels())
	if err != nil {
		return 0, err
	}
	s.logger.Info("languages seeded", zap.Int("count", n))
	return n, nil
}
