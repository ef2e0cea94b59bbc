package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/ebaypulse/server/internal/core/error"
	gwmodel "github.com/ebaypulse/server/internal/gateway/model"
	"github.com/ebaypulse/server/internal/views"
	"github.com/ebaypulse/server/internal/views/model"
	"github.com/ebaypulse/server/internal/views/repo"
)

type stubGateway struct {
	products []gwmodel.TrendingProduct
	listing  gwmodel.ListingOptimization
	seoErr   error
	seoCalls int
	lastDesc string
}

func (s *stubGateway) FetchTrendingProducts(_ context.Context, _ string) []gwmodel.TrendingProduct {
	return s.products
}

func (s *stubGateway) GenerateSEOContent(_ context.Context, desc string) (gwmodel.ListingOptimization, error) {
	s.seoCalls++
	s.lastDesc = desc
	return s.listing, s.seoErr
}

func newTestRouter(t *testing.T, gw *stubGateway, keyPresent bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := views.NewService(repo.NewMemorySessionRepository(time.Hour), gw, views.Config{})
	return BuildRouter(RouterDeps{
		ServiceName: "ebaypulse-test",
		Version:     "test",
		KeyPresent:  keyPresent,
		Store:       "memory",
		Views:       svc,
	})
}

func do(t *testing.T, r http.Handler, method, path, sid string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sid != "" {
		req.Header.Set(HeaderSessionID, sid)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func sampleProducts() []gwmodel.TrendingProduct {
	return []gwmodel.TrendingProduct{
		{ID: "1", Title: "Wireless Earbuds", Price: "$49.99", SoldCount: "1.2k", Watchers: "310", SellerRating: "99.1%", Category: "Electronics", ImageURL: "https://picsum.photos/400/300?random=1", URL: "https://www.ebay.com/itm/1", DescriptionSnippet: "Noise cancelling"},
		{ID: "2", Title: "Smart Watch", Price: "$129.00", SoldCount: "800", Watchers: "95", SellerRating: "98.7%", Category: "Electronics", ImageURL: "https://picsum.photos/400/300?random=2", URL: "https://www.ebay.com/itm/2", DescriptionSnippet: "AMOLED display"},
	}
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter(t, &stubGateway{}, false)

	for _, path := range []string{"/health", "/healthz"} {
		rr := do(t, r, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		resp := decode[HealthResponse](t, rr)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "ebaypulse-test", resp.Service)
		assert.Equal(t, "missing", resp.Gemini)
		assert.Equal(t, "memory", resp.Store)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name       string
		keyPresent bool
		want       StatusResponse
	}{
		{"key present", true, StatusResponse{APIKey: "active", Message: "Gemini AI Ready"}},
		{"key missing", false, StatusResponse{APIKey: "missing", Message: "API Key Missing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, &stubGateway{}, tt.keyPresent)
			rr := do(t, r, http.MethodGet, "/api/v1/status", "", nil)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.want, decode[StatusResponse](t, rr))
		})
	}
}

func TestCategories(t *testing.T) {
	r := newTestRouter(t, &stubGateway{}, true)
	rr := do(t, r, http.MethodGet, "/api/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[CategoriesResponse](t, rr)
	assert.Equal(t, model.Categories, resp.Categories)
	assert.Equal(t, "Electronics", resp.Default)
}

func TestSessionHeader(t *testing.T) {
	r := newTestRouter(t, &stubGateway{}, true)

	t.Run("generated when absent", func(t *testing.T) {
		rr := do(t, r, http.MethodGet, "/api/v1/session", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		sid := rr.Header().Get(HeaderSessionID)
		_, err := uuid.Parse(sid)
		require.NoError(t, err)
		assert.Equal(t, sid, decode[model.Session](t, rr).ID)
	})

	t.Run("echoed when valid", func(t *testing.T) {
		sid := uuid.NewString()
		rr := do(t, r, http.MethodGet, "/api/v1/session", sid, nil)
		assert.Equal(t, sid, rr.Header().Get(HeaderSessionID))
	})

	t.Run("replaced when malformed", func(t *testing.T) {
		rr := do(t, r, http.MethodGet, "/api/v1/session", "../../etc", nil)
		assert.NotEqual(t, "../../etc", rr.Header().Get(HeaderSessionID))
	})
}

func TestTrends(t *testing.T) {
	gw := &stubGateway{products: sampleProducts()}
	r := newTestRouter(t, gw, true)
	sid := uuid.NewString()

	rr := do(t, r, http.MethodGet, "/api/v1/trends?category=Fashion", sid, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[TrendsResponse](t, rr)
	assert.Equal(t, "Fashion", resp.Category)
	assert.Equal(t, gw.products, resp.Products)
	assert.True(t, resp.Applied)
	assert.False(t, resp.Loading)

	// a blank category refreshes the current one
	rr = do(t, r, http.MethodGet, "/api/v1/trends", sid, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Fashion", decode[TrendsResponse](t, rr).Category)
}

func TestTrends_EmptyResultIsAnEmptyArray(t *testing.T) {
	r := newTestRouter(t, &stubGateway{}, false)

	rr := do(t, r, http.MethodGet, "/api/v1/trends", uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"products":[]`)
}

func TestSelectProduct(t *testing.T) {
	gw := &stubGateway{}
	r := newTestRouter(t, gw, true)
	sid := uuid.NewString()
	p := sampleProducts()[0]

	rr := do(t, r, http.MethodPost, "/api/v1/trends/select", sid, p)
	require.Equal(t, http.StatusOK, rr.Code)

	sess := decode[model.Session](t, rr)
	assert.Equal(t, model.ViewSEO, sess.ActiveView)
	require.NotNil(t, sess.SEO.Source)
	assert.Equal(t, p, *sess.SEO.Source)
	assert.Equal(t, views.DescribeProduct(p), sess.SEO.Input)
	assert.Zero(t, gw.seoCalls)
}

func TestSelectProduct_InvalidBody(t *testing.T) {
	r := newTestRouter(t, &stubGateway{}, true)

	rr := do(t, r, http.MethodPost, "/api/v1/trends/select", uuid.NewString(), map[string]string{"id": "1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, invalidBodyMessage, decode[ErrorResponse](t, rr).Error)
}

func TestOptimize(t *testing.T) {
	gw := &stubGateway{listing: gwmodel.ListingOptimization{
		Title:         strings.Repeat("T", 95),
		Description:   "<h2>Key Features</h2><ul><li>Fast</li><li>Light</li></ul><p>Why Buy From Us</p>",
		Keywords:      []string{"earbuds", "wireless", "bluetooth"},
		AffiliateHook: "Hear everything.",
	}}
	r := newTestRouter(t, gw, true)

	rr := do(t, r, http.MethodPost, "/api/v1/seo", uuid.NewString(), SEORequest{Description: "Wireless earbuds"})
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[SEOResponse](t, rr)
	assert.Equal(t, gw.listing, resp.Result)
	assert.Equal(t, "Wireless earbuds", gw.lastDesc)
	assert.Equal(t, ListingStats{
		TitleLength:     95,
		TitleLimit:      80,
		TitleOverLimit:  true,
		KeywordCount:    3,
		KeywordTarget:   15,
		DescriptionText: "Key Features Fast Light Why Buy From Us",
	}, resp.Stats)
}

func TestOptimize_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		seoErr     error
		wantStatus int
		wantError  string
		wantCalls  int
	}{
		{"blank description", SEORequest{Description: "   "}, nil, http.StatusBadRequest, errx.EmptyDescriptionMessage, 0},
		{"malformed body", "not an object", nil, http.StatusBadRequest, invalidBodyMessage, 0},
		{"generation failed", SEORequest{Description: "x"}, errx.Wrap(errx.ErrGenerationFailed, errors.New("bad json")), http.StatusBadGateway, "SEO generation failed", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &stubGateway{seoErr: tt.seoErr}
			r := newTestRouter(t, gw, true)

			rr := do(t, r, http.MethodPost, "/api/v1/seo", uuid.NewString(), tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantError, decode[ErrorResponse](t, rr).Error)
			assert.Equal(t, tt.wantCalls, gw.seoCalls)
		})
	}
}

func TestOptimize_FailureVisibleOnSession(t *testing.T) {
	gw := &stubGateway{seoErr: errx.Wrap(errx.ErrGenerationFailed, errors.New("timeout"))}
	r := newTestRouter(t, gw, true)
	sid := uuid.NewString()

	rr := do(t, r, http.MethodPost, "/api/v1/seo", sid, SEORequest{Description: "x"})
	require.Equal(t, http.StatusBadGateway, rr.Code)

	sess := decode[model.Session](t, do(t, r, http.MethodGet, "/api/v1/session", sid, nil))
	assert.Nil(t, sess.SEO.Result)
	assert.Equal(t, "SEO generation failed", sess.SEO.Error)
	assert.False(t, sess.SEO.Loading)
}

func TestNavigate(t *testing.T) {
	r := newTestRouter(t, &stubGateway{}, true)
	sid := uuid.NewString()

	rr := do(t, r, http.MethodPut, "/api/v1/session/view", sid, NavigateRequest{View: model.ViewDashboard})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.ViewDashboard, decode[model.Session](t, rr).ActiveView)

	rr = do(t, r, http.MethodPut, "/api/v1/session/view", sid, NavigateRequest{View: "settings"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, &stubGateway{}, true)
	do(t, r, http.MethodGet, "/api/v1/status", "", nil)

	rr := do(t, r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `http_requests_total{method="GET",path="/api/v1/status",status="200"}`)
}

func TestRequestIDEchoed(t *testing.T) {
	r := newTestRouter(t, &stubGateway{}, true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(HeaderRequestID))

	rr = do(t, r, http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, rr.Header().Get(HeaderRequestID))
}

func TestOptimize_EmptyKeywordsReturnedAsIs(t *testing.T) {
	gw := &stubGateway{listing: gwmodel.ListingOptimization{Title: "t", Description: "<p>d</p>", Keywords: []string{}, AffiliateHook: "h"}}
	r := newTestRouter(t, gw, true)
	sid := uuid.NewString()

	rr := do(t, r, http.MethodPost, "/api/v1/seo", sid, SEORequest{Description: "x"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"keywords":[]`)

	rr = do(t, r, http.MethodGet, "/api/v1/session", sid, nil)
	assert.Contains(t, rr.Body.String(), `"products":[]`)
	assert.NotContains(t, rr.Body.String(), "0001-01-01")
}
