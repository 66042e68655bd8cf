package metrics

import (
	"math"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestRecorderObserveCache(t *testing.T) {
	rec := NewRecorder(nil)
	rec.ObserveCache("fetch_listings", CacheHit)
	rec.ObserveCache("fetch_listings", CacheHit)
	rec.ObserveCache("fetch_listings", CacheMiss)
	rec.ObserveCache("fetch_featured", "")

	families := gather(t, rec, "carmarket_cache_lookups_total")

	hits := findMetric(t, families["carmarket_cache_lookups_total"], map[string]string{
		"operation": "fetch_listings",
		"result":    "hit",
	})
	if got := hits.GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected hit counter 2, got %v", got)
	}

	defaulted := findMetric(t, families["carmarket_cache_lookups_total"], map[string]string{
		"operation": "fetch_featured",
		"result":    "miss",
	})
	if got := defaulted.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected empty result to count as miss, got %v", got)
	}
}

func TestRecorderObserveRemote(t *testing.T) {
	rec := NewRecorder(nil)
	rec.ObserveRemote("search_with_filters", "NETWORK_ERROR", 250*time.Millisecond)

	families := gather(t, rec, "carmarket_remote_requests_total", "carmarket_remote_request_duration_seconds")

	counter := findMetric(t, families["carmarket_remote_requests_total"], map[string]string{
		"operation": "search_with_filters",
		"outcome":   "network_error",
	})
	if got := counter.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected counter value 1, got %v", got)
	}

	hist := findMetric(t, families["carmarket_remote_request_duration_seconds"], map[string]string{
		"operation": "search_with_filters",
		"outcome":   "network_error",
	}).GetHistogram()
	if hist == nil {
		t.Fatalf("expected histogram metric for remote latency")
	}
	if hist.GetSampleCount() != 1 {
		t.Fatalf("expected histogram count 1, got %d", hist.GetSampleCount())
	}
	if diff := math.Abs(hist.GetSampleSum() - 0.25); diff > 0.001 {
		t.Fatalf("expected histogram sum near 0.25, got %v", hist.GetSampleSum())
	}
}

func TestRecorderObserveClear(t *testing.T) {
	rec := NewRecorder(nil)
	rec.ObserveClear("sign_out")
	rec.ObserveClear(" ")

	families := gather(t, rec, "carmarket_cache_clears_total")
	findMetric(t, families["carmarket_cache_clears_total"], map[string]string{"reason": "sign_out"})
	findMetric(t, families["carmarket_cache_clears_total"], map[string]string{"reason": "unknown"})
}

func TestRecorderNilSafe(t *testing.T) {
	var rec *Recorder
	rec.ObserveCache("op", CacheHit)
	rec.ObserveRemote("op", OutcomeOK, time.Second)
	rec.ObserveClear("manual")

	rr := httptest.NewRecorder()
	rec.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != 503 {
		t.Fatalf("expected 503 from nil recorder, got %d", rr.Code)
	}
	if _, err := rec.Gatherer().Gather(); err != nil {
		t.Fatalf("expected empty gatherer, got %v", err)
	}
}

func TestRecorderHandler(t *testing.T) {
	rec := NewRecorder(nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)

	rec.Handler().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected 200 response, got %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Fatalf("expected response body")
	}
}

func gather(t *testing.T, rec *Recorder, names ...string) map[string][]*dto.Metric {
	t.Helper()
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	families, err := rec.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	collected := make(map[string][]*dto.Metric, len(names))
	for _, mf := range families {
		if !wanted[mf.GetName()] {
			continue
		}
		collected[mf.GetName()] = append(collected[mf.GetName()], mf.GetMetric()...)
	}
	for _, name := range names {
		if len(collected[name]) == 0 {
			t.Fatalf("metric %q not collected", name)
		}
	}
	return collected
}

func findMetric(t *testing.T, metrics []*dto.Metric, labels map[string]string) *dto.Metric {
	t.Helper()
	for _, metric := range metrics {
		if matchLabels(metric, labels) {
			return metric
		}
	}
	t.Fatalf("metric with labels %v not found", labels)
	return nil
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	for key, expected := range labels {
		found := false
		for _, label := range metric.GetLabel() {
			if label.GetName() == key && label.GetValue() == expected {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
