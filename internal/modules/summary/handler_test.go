package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group(""))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandlerPostSummary(t *testing.T) {
	sum := &fakeSummarizer{steps: []summarizeFunc{respondValid}}
	r := newTestRouter(NewService(newFakeStore(), sum))

	w := doJSON(t, r, http.MethodPost, "/summary", map[string]string{
		"content":  tosText,
		"domain":   "example.com",
		"url":      "https://example.com/tos",
		"language": "en",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "summarizer", body["source"])
	assert.Equal(t, "en", body["language_code"])
	assert.Equal(t, float64(1), body["request_num"])
	assert.Len(t, body["key_points"], 2)

	q := url.Values{"content": {tosText}, "language": {"en"}}
	w = doJSON(t, r, http.MethodGet, "/get_summary?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cache", decodeBody(t, w)["source"])
	assert.Equal(t, 1, sum.callCount())
}

func TestHandlerEmptyContentReturnsExample(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(NewService(store, &fakeSummarizer{steps: []summarizeFunc{respondValid}}))

	w := doJSON(t, r, http.MethodPost, "/summary", map[string]string{"domain": "amazon.com", "url": "https://amazon.com/tos"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "example", body["source"])
	assert.Equal(t, true, body["is_reviewed"])

	lookups, upserts := store.counts()
	assert.Zero(t, lookups)
	assert.Zero(t, upserts)
}

func TestHandlerSummarizerFailure(t *testing.T) {
	r := newTestRouter(NewService(newFakeStore(), &fakeSummarizer{steps: []summarizeFunc{respondLanguage("fr")}}))

	w := doJSON(t, r, http.MethodPost, "/summary", map[string]string{"content": tosText, "language": "en"})
	require.Equal(t, http.StatusBadGateway, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(0), body["ok"])
	assert.Equal(t, float64(http.StatusBadGateway), body["code"])
}

func TestHandlerLookup(t *testing.T) {
	r := newTestRouter(NewService(newFakeStore(), &fakeSummarizer{steps: []summarizeFunc{respondValid}}))

	q := url.Values{"content": {tosText}, "language": {"en"}}
	w := doJSON(t, r, http.MethodGet, "/summary/lookup?"+q.Encode(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/summary/lookup", map[string]string{"content": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/summary", map[string]string{"content": tosText, "language": "en"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/summary/lookup", map[string]string{"content": tosText, "language": "en"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cache", decodeBody(t, w)["source"])
}

func TestHandlerCreate(t *testing.T) {
	r := newTestRouter(NewService(newFakeStore(), &fakeSummarizer{steps: []summarizeFunc{respondValid}}))

	w := doJSON(t, r, http.MethodPost, "/summary/create", map[string]interface{}{
		"content":  tosText,
		"language": "es",
		"summary":  json.RawMessage(summaryJSON("es")),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "user", body["source"])
	assert.Equal(t, "es", body["language_code"])
	assert.Equal(t, false, body["is_reviewed"])

	w = doJSON(t, r, http.MethodPost, "/summary/create", map[string]interface{}{
		"content":     tosText,
		"language":    "es",
		"summary":     json.RawMessage(summaryJSON("es")),
		"is_reviewed": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, decodeBody(t, w)["is_reviewed"])

	w = doJSON(t, r, http.MethodPost, "/summary/create", map[string]interface{}{
		"content":  tosText,
		"language": "es",
		"summary":  map[string]interface{}{"language_code": "es", "key_points": []string{}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, r, http.MethodPost, "/summary/create", map[string]interface{}{"language": "es"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerTemplate(t *testing.T) {
	r := newTestRouter(NewService(newFakeStore(), nil))

	w := doJSON(t, r, http.MethodGet, "/summary/template?domain=WWW.Example.com&url=https://example.com/tos", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "example.com", body["domain"])
	assert.Equal(t, "en", body["language"])
	s, ok := body["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "en", s["language_code"])
	assert.Len(t, s["key_points"], 3)
}

func TestHandlerLLMFormat(t *testing.T) {
	r := newTestRouter(NewService(newFakeStore(), nil))

	w := doJSON(t, r, http.MethodGet, "/summary/llm-format?language=de", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	schema, ok := body["schema"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "object", schema["type"])
	assert.Len(t, schema["required"], 5)
	examples, ok := body["examples"].([]interface{})
	require.True(t, ok)
	require.Len(t, examples, 1)
	output := examples[0].(map[string]interface{})["output"].(map[string]interface{})
	assert.Equal(t, "de", output["language_code"])
	assert.Contains(t, body["prompt"], "DE")
}

func TestHandlerClientGoneIsNotInternalError(t *testing.T) {
	sum := &fakeSummarizer{steps: []summarizeFunc{
		func(ctx context.Context, _ SummarizeInput) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}
	r := newTestRouter(NewService(newFakeStore(), sum))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	body, err := json.Marshal(map[string]string{"content": tosText, "language": "en"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/summary", bytes.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, statusClientClosedRequest, w.Code)
}
