package summary

import (
	"time"

	"github.com/yoola/core/internal/models"
)

var reviewedDomains = map[string]struct{}{
	"facebook.com":  {},
	"amazon.com":    {},
	"google.com":    {},
	"apple.com":     {},
	"microsoft.com": {},
}

// ExampleSummary is the deterministic summary served for empty content.
// It is never stored.
func ExampleSummary(domain, url, language string) *Result {
	domain = NormalizeDomain(domain)
	_, reviewed := reviewedDomains[domain]
	now := time.Now()
	return &Result{
		SummaryPayload: models.SummaryPayload{
			LanguageCode: language,
			KeyPoints: []string{
				"You grant the company a worldwide license to use your content",
				"Your account can be terminated at any time without notice",
				"The service collects your personal information including location data",
				"Disputes are resolved through arbitration, not in court",
				"They can change the terms at any time with or without notice",
			},
			DataCollectionSummary: "The service collects your name, email, IP address, device information, " +
				"and browsing patterns. This data may be shared with third-party advertisers " +
				"and used for personalized marketing purposes.",
			UserRightsSummary: "You have the right to access and delete your personal data. You can opt out " +
				"of certain data collection practices, though this may limit functionality. " +
				"You can close your account at any time, but some information may be retained.",
			AlertsAndWarnings: []string{
				"Mandatory arbitration clause limits your right to sue in court",
				"Broad content license allows company to use your uploads in marketing",
				"Automatic subscription renewal with at least 24 hours notice before charge",
			},
		},
		Domain:      domain,
		OriginalURL: url,
		Source:      SourceExample,
		IsReviewed:  reviewed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Template is the blank shape offered to users writing their own summary.
type Template struct {
	Domain   string                `json:"domain"`
	URL      string                `json:"url"`
	Language string                `json:"language"`
	Summary  models.SummaryPayload `json:"summary"`
}

// NewTemplate returns a template pre-filled with hints.
func NewTemplate(domain, url, language string) Template {
	return Template{
		Domain:   NormalizeDomain(domain),
		URL:      url,
		Language: language,
		Summary: models.SummaryPayload{
			LanguageCode: language,
			KeyPoints: []string{
				"Example: You grant the company a worldwide license to use your content",
				"Example: Your account can be terminated at any time without notice",
				"",
			},
			DataCollectionSummary: "Describe what data is collected by the service",
			UserRightsSummary:     "Describe what rights the user has",
			AlertsAndWarnings: []string{
				"Example: Mandatory arbitration clause limits your right to sue",
				"",
			},
		},
	}
}
