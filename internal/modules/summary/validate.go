package summary

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/yoola/core/internal/models"
)

// ValidatePayload checks a raw structured summary and returns it typed.
// Every field must be present and well typed, key_points must be non-empty
// and language_code must equal language exactly.
func ValidatePayload(raw json.RawMessage, language string) (models.SummaryPayload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return models.SummaryPayload{}, &InvalidSummaryError{Reason: "summary is not a JSON object"}
	}

	var p models.SummaryPayload
	var err error
	if p.LanguageCode, err = stringField(fields, "language_code"); err != nil {
		return models.SummaryPayload{}, err
	}
	if p.KeyPoints, err = stringListField(fields, "key_points"); err != nil {
		return models.SummaryPayload{}, err
	}
	if p.DataCollectionSummary, err = stringField(fields, "data_collection_summary"); err != nil {
		return models.SummaryPayload{}, err
	}
	if p.UserRightsSummary, err = stringField(fields, "user_rights_summary"); err != nil {
		return models.SummaryPayload{}, err
	}
	if p.AlertsAndWarnings, err = stringListField(fields, "alerts_and_warnings"); err != nil {
		return models.SummaryPayload{}, err
	}

	if p.LanguageCode != language {
		return models.SummaryPayload{}, &InvalidSummaryError{
			Reason: fmt.Sprintf("language_code %q does not match requested language %q", p.LanguageCode, language),
		}
	}
	if len(p.KeyPoints) == 0 {
		return models.SummaryPayload{}, &InvalidSummaryError{Reason: "key_points is empty"}
	}
	return p, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	v, ok := fields[key]
	if !ok {
		return "", &InvalidSummaryError{Reason: fmt.Sprintf("missing %s", key)}
	}
	var s string
	if isNull(v) || json.Unmarshal(v, &s) != nil {
		return "", &InvalidSummaryError{Reason: fmt.Sprintf("%s must be a string", key)}
	}
	return s, nil
}

func stringListField(fields map[string]json.RawMessage, key string) ([]string, error) {
	v, ok := fields[key]
	if !ok {
		return nil, &InvalidSummaryError{Reason: fmt.Sprintf("missing %s", key)}
	}
	var items []json.RawMessage
	if isNull(v) || json.Unmarshal(v, &items) != nil {
		return nil, &InvalidSummaryError{Reason: fmt.Sprintf("%s must be a list", key)}
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		var s string
		if isNull(item) || json.Unmarshal(item, &s) != nil {
			return nil, &InvalidSummaryError{Reason: fmt.Sprintf("%s[%d] must be a string", key, i)}
		}
		out = append(out, s)
	}
	return out, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
