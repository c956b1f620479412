package language

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoola/core/internal/modules/summary/store/memstore"
)

func TestSeedModels(t *testing.T) {
	rows := SeedModels()
	require.Len(t, rows, 20)

	seen := make(map[string]bool)
	for _, row := range rows {
		assert.False(t, seen[row.Language], "duplicate %s", row.Language)
		seen[row.Language] = true
		assert.NotEmpty(t, row.Country)
		assert.Len(t, row.CountryCode, 2)
	}
}

func TestServiceSeedAndList(t *testing.T) {
	svc := NewService(memstore.New(), nil)
	ctx := context.Background()

	n, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	// Seeding twice keeps one row per language.
	_, err = svc.Seed(ctx)
	require.NoError(t, err)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 20)

	var english Item
	for _, it := range items {
		if it.Language == "en" {
			english = it
		}
	}
	assert.Equal(t, "English", english.Name)
	assert.Equal(t, "United Kingdom", english.Country)
	assert.Equal(t, "https://flagcdn.com/w80/gb.png", english.FlagURL)
}

func TestServiceWithoutCatalog(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, ErrNoCatalog)
	_, err = svc.Seed(context.Background())
	assert.ErrorIs(t, err, ErrNoCatalog)
}

func TestHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	svc := NewService(store, nil)
	_, err := svc.Seed(context.Background())
	require.NoError(t, err)

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group(""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/languages", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 20)
	assert.Equal(t, "bn", body.Data[0].Language)
	assert.Equal(t, "https://flagcdn.com/w80/bd.png", body.Data[0].FlagURL)
}
