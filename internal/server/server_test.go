package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/modusage/internal/aggregator"
)

func newTestServer() *Server {
	rep := aggregator.Report{
		Kind:  "Module",
		Total: 4,
		Entries: []aggregator.Entry{
			{Key: "gcc/11.2.0", Count: 3},
			{Key: "python/3.9", Count: 1},
		},
	}
	return New(rep, []byte("<html>chart</html>"), "127.0.0.1:0")
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestChartPage(t *testing.T) {
	rec := get(t, newTestServer(), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>chart</html>", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","kind":"Module","total":4,"distinct":2}`, rec.Body.String())
}

func TestReportAPI(t *testing.T) {
	rec := get(t, newTestServer(), "/api/report")
	require.Equal(t, http.StatusOK, rec.Code)

	var got aggregator.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 4, got.Total)
	assert.Len(t, got.Entries, 2)
}

func TestReportLookup(t *testing.T) {
	s := newTestServer()

	rec := get(t, s, "/api/find?key="+url.QueryEscape("gcc/11.2.0"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"key":"gcc/11.2.0","found":true,"count":3}`, rec.Body.String())

	rec = get(t, s, "/api/find?key=rust")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
