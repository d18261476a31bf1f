package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"yashubustudio/mbtidash/mbti"
)

const dataset = `Country,ESTJ-A,ESTJ-T,INFP-A,INFP-T
South Korea,0.05,0.05,0.06,0.06
United States,0.04,0.05,0.03,0.04
Japan,0.03,0.03,0.08,0.07
`

func newTestServer(t *testing.T) (*Server, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/countries.csv", []byte(dataset), 0o644))
	cfg := mbti.DefaultConfig()
	cfg.DataPath = "/countries.csv"
	logger := zaptest.NewLogger(t)
	svc, err := mbti.NewService(cfg, mbti.NewLoader(mbti.LoaderOptions{Fs: fs, Logger: logger}), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return New(svc, logger), fs
}

func do(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	var body map[string]any
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec, body := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestCountries(t *testing.T) {
	s, _ := newTestServer(t)
	rec, body := do(t, s, http.MethodGet, "/api/countries")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "South Korea", body["reference"])
	assert.Equal(t, []any{"South Korea", "United States", "Japan"}, body["countries"])
}

func TestAverages(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := do(t, s, http.MethodGet, "/api/types/average")
	require.Equal(t, http.StatusOK, rec.Code)
	var avgs []mbti.TypeAverage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avgs))
	require.Len(t, avgs, 2)
	assert.Equal(t, mbti.TypeCode("INFP"), avgs[0].Type)

	rec, _ = do(t, s, http.MethodGet, "/api/types/average?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avgs))
	assert.Len(t, avgs, 1)

	rec, body := do(t, s, http.MethodGet, "/api/types/average?limit=x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "limit")
}

func TestTop(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := do(t, s, http.MethodGet, "/api/types/infp/top?n=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var ranked []mbti.RankedCountry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranked))
	require.Len(t, ranked, 2)
	assert.Equal(t, "Japan", ranked[0].Country)
	assert.Equal(t, 1, ranked[0].Rank)

	rec, body := do(t, s, http.MethodGet, "/api/types/ABCD/top")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, body["error"])

	rec, _ = do(t, s, http.MethodGet, "/api/types/ISTP/top")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompare(t *testing.T) {
	s, _ := newTestServer(t)

	rec, body := do(t, s, http.MethodGet, "/api/compare")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "South Korea", body["reference"])
	assert.Equal(t, "United States", body["target"])
	assert.Equal(t, "wide", body["shape"])
	assert.Len(t, body["rows"], 2)

	rec, body = do(t, s, http.MethodGet, "/api/compare?target=Japan&shape=long")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := body["rows"].([]any)
	require.Len(t, rows, 4)
	assert.Equal(t, "South Korea", rows[0].(map[string]any)["country"])
	assert.Equal(t, "Japan", rows[3].(map[string]any)["country"])

	rec, _ = do(t, s, http.MethodGet, "/api/compare?target=Atlantis")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/compare?shape=tall")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReload(t *testing.T) {
	s, fs := newTestServer(t)

	rec, body := do(t, s, http.MethodPost, "/api/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["countries"])
	assert.EqualValues(t, 2, body["types"])

	require.NoError(t, fs.Remove("/countries.csv"))
	rec, body = do(t, s, http.MethodPost, "/api/reload")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, body["error"])

	rec, _ = do(t, s, http.MethodGet, "/api/countries")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
