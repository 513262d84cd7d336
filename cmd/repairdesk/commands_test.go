package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repairdesk-search/internal/diagnostics"
	"github.com/repairdesk/repairdesk-search/internal/models"
	"github.com/repairdesk/repairdesk-search/internal/services"
)

func newTestApp(t *testing.T, handler http.HandlerFunc) *app {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("REPAIRDESK_CONFIG", "")
	t.Setenv("REPAIRDESK_SERVICE_BASE_URL", srv.URL)
	t.Setenv("REPAIRDESK_TENANT_ID", "shop-1")
	t.Setenv("REPAIRDESK_TIMEZONE", "UTC")
	t.Setenv("REPAIRDESK_CACHE_BACKEND", "memory")

	a, err := newApp(true)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestRunFacetsJSON(t *testing.T) {
	today := time.Now().UTC().Format(time.RFC3339)
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"1","code":"T-1","status":"RECEIVED","paymentStatus":"PAID","createdAt":"` + today + `"},
			{"id":"2","code":"T-2","status":"RECEIVED","createdAt":"` + today + `"},
			{"id":"3","code":"T-3","status":"READY","paymentStatus":"PAID","createdAt":"` + today + `"}
		],"page":1,"totalPages":1}`))
	})

	var out bytes.Buffer
	err := runFacets(context.Background(), a, facetsOptions{kind: "ticket", status: "RECEIVED", jsonOut: true}, &out)
	require.NoError(t, err)

	var report facetReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 3, report.Window)
	assert.Equal(t, 2, report.Matched)
	assert.Equal(t, "Ricevuto", report.Facets["status"][0].Label)
	assert.Len(t, report.Facets["payment"], 2)
}

func TestRunFacetsRejectsUnknownKind(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	err := runFacets(context.Background(), a, facetsOptions{kind: "invoice"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseAssignments(t *testing.T) {
	rec, err := parseAssignments([]string{"touchId=true", "wifi=false"})
	require.NoError(t, err)
	assert.Equal(t, diagnostics.Record{"scanner": true, "wiFi": false}, rec)

	_, err = parseAssignments([]string{"scanner"})
	assert.Error(t, err)
	_, err = parseAssignments([]string{"scanner=maybe"})
	assert.Error(t, err)
}

func TestPrintDiagnostics(t *testing.T) {
	var out bytes.Buffer
	printDiagnostics(&out, services.DiagnosticsDetail{RecordID: "T-9"})
	assert.Contains(t, out.String(), "not yet tested")

	rec := diagnostics.Record{"scanner": true, "wiFi": false}
	out.Reset()
	printDiagnostics(&out, services.DiagnosticsDetail{
		RecordID: "T-1",
		Found:    true,
		Sections: diagnostics.Summarize(rec),
		Totals:   diagnostics.Tally(rec),
	})
	assert.Contains(t, out.String(), "2 tests, 1 passed, 1 failed")
	assert.Contains(t, out.String(), "Wi-Fi")
}

func TestOpsServerExposesCommandMetrics(t *testing.T) {
	today := time.Now().UTC().Format(time.RFC3339)
	a := newTestApp(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"1","status":"RECEIVED","createdAt":"` + today + `"}]`))
	})
	a.cfg.Server.MetricsAddress = "127.0.0.1:0"

	server, stop, err := a.startOps()
	require.NoError(t, err)
	defer stop()

	require.NoError(t, runFacets(context.Background(), a, facetsOptions{kind: "ticket"}, io.Discard))

	resp, err := http.Get("http://" + server.Address() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `repairdesk_search_window_fetches_total{kind="ticket"`)
	assert.Contains(t, string(body), "repairdesk_search_recompute_seconds")

	health, err := http.Get("http://" + server.Address() + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestOpsServerOffWithoutAddress(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	a.cfg.Server.MetricsAddress = ""

	server, stop, err := a.startOps()
	require.NoError(t, err)
	assert.Nil(t, server)
	stop()
}

func TestSearchFuncRefreshBypassesCache(t *testing.T) {
	var hits atomic.Int32
	a := newTestApp(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[{"id":"c1","firstName":"Mario","lastName":"Rossi"}]`))
	})

	cached := a.searchFunc(models.DirectoryCustomers, false)
	_, err := cached(context.Background(), "rossi")
	require.NoError(t, err)
	_, err = cached(context.Background(), "rossi")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	fresh := a.searchFunc(models.DirectoryCustomers, true)
	entries, err := fresh(context.Background(), "rossi")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	require.Len(t, entries, 1)
	assert.Equal(t, "Mario Rossi", entries[0].Label())
}
