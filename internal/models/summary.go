package models

// SummaryModel is the latest summary of a document in one language.
type SummaryModel struct {
	Base
	DocumentID string         `json:"document_id" gorm:"type:char(36);not null;uniqueIndex:ux_summary_document_language,priority:1"`
	Language   string         `json:"language"    gorm:"size:64;not null;uniqueIndex:ux_summary_document_language,priority:2"`
	Payload    SummaryPayload `json:"payload"     gorm:"size:16777216;serializer:json;not null"`
	RequestNum int            `json:"request_num" gorm:"not null;default:1"`
	IsReviewed bool           `json:"is_reviewed" gorm:"not null;default:false"`
}

func (SummaryModel) TableName() string { return "summaries" }

// SummaryPayload is the stored body of a summary.
type SummaryPayload struct {
	LanguageCode          string   `json:"language_code"           bson:"language_code"`
	KeyPoints             []string `json:"key_points"              bson:"key_points"`
	DataCollectionSummary string   `json:"data_collection_summary" bson:"data_collection_summary"`
	UserRightsSummary     string   `json:"user_rights_summary"     bson:"user_rights_summary"`
	AlertsAndWarnings     []string `json:"alerts_and_warnings"     bson:"alerts_and_warnings"`
}
