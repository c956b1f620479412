package models

import "fmt"

// LanguageModel is the permissive reference set of languages summaries were requested in.
type LanguageModel struct {
	Base
	Language    string `json:"language"     gorm:"size:64;uniqueIndex;not null"`
	Country     string `json:"country"      gorm:"size:128"`
	CountryCode string `json:"country_code" gorm:"size:8"`
}

func (LanguageModel) TableName() string { return "languages" }

// FlagURL points at the flag image for the language's primary country.
func (l LanguageModel) FlagURL() string {
	if l.CountryCode == "" {
		return ""
	}
	return fmt.Sprintf("https://flagcdn.com/w80/%s.png", l.CountryCode)
}
