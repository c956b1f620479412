package summary

import (
	"fmt"
	"strings"

	"github.com/yoola/core/internal/models"
)

type fieldKind string

const (
	kindString     fieldKind = "string"
	kindStringList fieldKind = "array"
)

// payloadFields are the keys ValidatePayload requires, in output order.
var payloadFields = []struct {
	name        string
	kind        fieldKind
	description string
}{
	{"language_code", kindString, "Language of every string value; must equal the requested language"},
	{"key_points", kindStringList, "5-7 key points from the terms of service; must not be empty"},
	{"data_collection_summary", kindString, "Summary of data collection practices"},
	{"user_rights_summary", kindString, "Summary of user rights and options"},
	{"alerts_and_warnings", kindStringList, "Important alerts or warnings users should be aware of; may be empty"},
}

// LLMFormat describes the summary shape for callers running their own model.
type LLMFormat struct {
	Schema   map[string]interface{} `json:"schema"`
	Examples []LLMExample           `json:"examples"`
	Prompt   string                 `json:"prompt"`
}

type LLMExample struct {
	Input  string                `json:"input"`
	Output models.SummaryPayload `json:"output"`
}

// NewLLMFormat builds the JSON schema, one worked example and a suggested prompt for language.
func NewLLMFormat(language string) LLMFormat {
	properties := make(map[string]interface{}, len(payloadFields))
	required := make([]string, 0, len(payloadFields))
	for _, f := range payloadFields {
		prop := map[string]interface{}{"type": string(f.kind), "description": f.description}
		if f.kind == kindStringList {
			prop["items"] = map[string]interface{}{"type": string(kindString)}
		}
		properties[f.name] = prop
		required = append(required, f.name)
	}

	example := ExampleSummary("", "", language).SummaryPayload
	return LLMFormat{
		Schema: map[string]interface{}{
			"type":                 "object",
			"properties":           properties,
			"required":             required,
			"additionalProperties": false,
		},
		Examples: []LLMExample{{Input: "Terms excerpt about data collection...", Output: example}},
		Prompt: fmt.Sprintf("Analyze the following Terms of Service and extract key information in JSON format. "+
			"Include: key points (5-7), data collection practices, user rights, and important alerts. "+
			"Write every value in %s and set language_code to %q. "+
			"Format your response as valid JSON matching the provided schema.", strings.ToUpper(language), language),
	}
}
