package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-adidas/datadir"
)

func writeTimingLog(t *testing.T, root string, lines ...string) {
	t.Helper()
	dir := filepath.Join(root, "dashboard", datadir.Today())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, "latest.jl"), []byte(content), 0o644); err != nil {
		t.Fatalf("write timing log: %v", err)
	}
}

func timingLine(url string, sentAt time.Time, latency time.Duration, size int) string {
	return fmt.Sprintf(`{"url": %q, "sent_at": %q, "received_at": %q, "response_size": %d}`,
		url,
		sentAt.Format(time.RFC3339Nano),
		sentAt.Add(latency).Format(time.RFC3339Nano),
		size,
	)
}

func TestLoadSamples(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2023, 4, 19, 6, 0, 0, 0, time.UTC)
	writeTimingLog(t, root,
		timingLine("http://shop.example.test/a", base, 200*time.Millisecond, 1000),
		timingLine("http://shop.example.test/b", base.Add(time.Second), 400*time.Millisecond, 3000),
	)

	samples, err := LoadSamples(root)
	if err != nil {
		t.Fatalf("LoadSamples: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(samples))
	}
	if samples[0].Latency != 0.2 {
		t.Fatalf("latency = %v", samples[0].Latency)
	}
}

func TestLoadSamplesMissingLog(t *testing.T) {
	if _, err := LoadSamples(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing timing log")
	}
}

func TestComputeKPIs(t *testing.T) {
	samples := []Sample{
		{Latency: 0.2, ResponseSize: 1000},
		{Latency: 0.6, ResponseSize: 3000},
	}
	kpis := ComputeKPIs(samples)
	if len(kpis) != 3 {
		t.Fatalf("kpis = %d, want 3", len(kpis))
	}
	if kpis[0].Value != "2" || kpis[0].Subtext != "Total Requests" {
		t.Fatalf("total requests kpi: %+v", kpis[0])
	}
	if kpis[1].Value != "0.40" {
		t.Fatalf("average latency = %q", kpis[1].Value)
	}
	if kpis[2].Value != "0.60" {
		t.Fatalf("maximum latency = %q", kpis[2].Value)
	}
}

func TestComputeKPIsEmpty(t *testing.T) {
	kpis := ComputeKPIs(nil)
	if kpis[0].Value != "0" || kpis[1].Value != "0.00" {
		t.Fatalf("empty kpis: %+v", kpis)
	}
}

func TestBucketPerSecond(t *testing.T) {
	base := time.Date(2023, 4, 19, 6, 0, 0, 0, time.UTC)
	samples := []Sample{
		{ReceivedAt: base.Add(100 * time.Millisecond), ResponseSize: 1000, Latency: 0.1},
		{ReceivedAt: base.Add(900 * time.Millisecond), ResponseSize: 2000, Latency: 0.3},
		{ReceivedAt: base.Add(1500 * time.Millisecond), ResponseSize: 500, Latency: 0.2},
	}

	buckets := BucketPerSecond(samples)
	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(buckets))
	}
	if buckets[0].Requests != 2 || buckets[0].Bytes != 3000 {
		t.Fatalf("first bucket: %+v", buckets[0])
	}
	if buckets[0].MeanLatency != 0.2 {
		t.Fatalf("mean latency = %v", buckets[0].MeanLatency)
	}
	if buckets[1].Requests != 1 || buckets[1].Bytes != 500 {
		t.Fatalf("second bucket: %+v", buckets[1])
	}
}

func TestStatsEndpoint(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2023, 4, 19, 6, 0, 0, 0, time.UTC)
	writeTimingLog(t, root, timingLine("http://shop.example.test/a", base, 250*time.Millisecond, 1200))

	srv := NewServer(root, ":0")

	rec := httptest.NewRecorder()
	srv.handleStats(rec, httptest.NewRequest("GET", "/api/stats", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var payload statsPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.KPIs) != 3 || payload.KPIs[0].Value != "1" {
		t.Fatalf("kpis: %+v", payload.KPIs)
	}
	if len(payload.Timeseries) != 1 || payload.Timeseries[0].Bytes != 1200 {
		t.Fatalf("timeseries: %+v", payload.Timeseries)
	}
}

func TestIndexServesPage(t *testing.T) {
	srv := NewServer(t.TempDir(), ":0")
	rec := httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Scraper Performance Report") {
		t.Fatalf("unexpected page:\n%s", body[:200])
	}
	if !strings.Contains(body, "const preloaded = null;") {
		t.Fatalf("served page should poll, not inline data")
	}
}

func TestSaveInlinesData(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2023, 4, 19, 6, 0, 0, 0, time.UTC)
	writeTimingLog(t, root, timingLine("http://shop.example.test/a", base, 250*time.Millisecond, 1200))

	path, err := Save(root)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "latest.html" {
		t.Fatalf("path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	page := string(data)
	if strings.Contains(page, dataPlaceholder) {
		t.Fatalf("placeholder not replaced")
	}
	if !strings.Contains(page, `"Total Requests"`) {
		t.Fatalf("report should inline kpi data:\n%s", page[:300])
	}
}
