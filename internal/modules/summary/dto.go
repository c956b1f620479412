package summary

import "encoding/json"

type summaryRequestDTO struct {
	Content  string `json:"content"  form:"content"`
	Domain   string `json:"domain"   form:"domain"`
	URL      string `json:"url"      form:"url"`
	Language string `json:"language" form:"language"`
}

func (d summaryRequestDTO) toRequest() Request {
	return Request{Content: d.Content, Domain: d.Domain, URL: d.URL, Language: d.Language}
}

type createSummaryDTO struct {
	Content    string          `json:"content"     binding:"required"`
	Domain     string          `json:"domain"`
	URL        string          `json:"url"`
	Language   string          `json:"language"`
	Summary    json.RawMessage `json:"summary"     binding:"required"`
	IsReviewed bool            `json:"is_reviewed"`
}

type templateQueryDTO struct {
	Domain   string `form:"domain"`
	URL      string `form:"url"`
	Language string `form:"language"`
}
