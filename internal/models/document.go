package models

// DocumentModel is one distinct piece of ToS text, keyed by its fingerprint.
type DocumentModel struct {
	Base
	Fingerprint string `json:"fingerprint" gorm:"size:32;uniqueIndex;not null"`
	Content     string `json:"content"     gorm:"size:16777216;not null"`
	URL         string `json:"url"         gorm:"size:2048"`
	Domain      string `json:"domain"      gorm:"size:255;index"`
}

func (DocumentModel) TableName() string { return "documents" }
