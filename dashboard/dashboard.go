// Package dashboard renders request-latency charts from the timing log a
// crawl leaves behind.
package dashboard

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-adidas/datadir"
)

// Sample is one request timing entry with parsed timestamps.
type Sample struct {
	URL          string
	SentAt       time.Time
	ReceivedAt   time.Time
	ResponseSize int
	Latency      float64
}

// KPI is one headline figure shown on the dashboard.
type KPI struct {
	Value   string `json:"value"`
	Subtext string `json:"subtext"`
}

// Bucket aggregates the samples received within one second.
type Bucket struct {
	Second      string  `json:"second"`
	Requests    int     `json:"requests"`
	Bytes       int     `json:"bytes"`
	MeanLatency float64 `json:"mean_latency"`
}

// LoadSamples reads the current day's timing log from
// data/dashboard/<date>/latest.jl.
func LoadSamples(root string) ([]Sample, error) {
	path := filepath.Join(root, "dashboard", datadir.Today(), "latest.jl")
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open timing log: %w", err)
	}
	defer file.Close()

	var samples []Sample
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry struct {
			URL          string `json:"url"`
			SentAt       string `json:"sent_at"`
			ReceivedAt   string `json:"received_at"`
			ResponseSize int    `json:"response_size"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("decode timing entry: %w", err)
		}
		sentAt, err := time.Parse(time.RFC3339Nano, entry.SentAt)
		if err != nil {
			return nil, fmt.Errorf("parse sent_at %q: %w", entry.SentAt, err)
		}
		receivedAt, err := time.Parse(time.RFC3339Nano, entry.ReceivedAt)
		if err != nil {
			return nil, fmt.Errorf("parse received_at %q: %w", entry.ReceivedAt, err)
		}
		samples = append(samples, Sample{
			URL:          entry.URL,
			SentAt:       sentAt,
			ReceivedAt:   receivedAt,
			ResponseSize: entry.ResponseSize,
			Latency:      receivedAt.Sub(sentAt).Seconds(),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read timing log: %w", err)
	}
	return samples, nil
}

// ComputeKPIs derives the headline figures: total requests, average and
// maximum latency in seconds.
func ComputeKPIs(samples []Sample) []KPI {
	total := len(samples)
	var sum, max float64
	for _, s := range samples {
		sum += s.Latency
		if s.Latency > max {
			max = s.Latency
		}
	}
	avg := 0.0
	if total > 0 {
		avg = sum / float64(total)
	}
	return []KPI{
		{Value: fmt.Sprintf("%d", total), Subtext: "Total Requests"},
		{Value: fmt.Sprintf("%.2f", avg), Subtext: "Average Latency"},
		{Value: fmt.Sprintf("%.2f", max), Subtext: "Maximum Latency"},
	}
}

// BucketPerSecond resamples the timing log into one-second buckets keyed by
// receive time, ordered chronologically.
func BucketPerSecond(samples []Sample) []Bucket {
	type acc struct {
		requests int
		bytes    int
		latency  float64
	}
	bySecond := make(map[string]*acc)
	for _, s := range samples {
		key := s.ReceivedAt.Truncate(time.Second).Format(time.RFC3339)
		a, ok := bySecond[key]
		if !ok {
			a = &acc{}
			bySecond[key] = a
		}
		a.requests++
		a.bytes += s.ResponseSize
		a.latency += s.Latency
	}

	keys := make([]string, 0, len(bySecond))
	for key := range bySecond {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	buckets := make([]Bucket, 0, len(keys))
	for _, key := range keys {
		a := bySecond[key]
		buckets = append(buckets, Bucket{
			Second:      key,
			Requests:    a.requests,
			Bytes:       a.bytes,
			MeanLatency: a.latency / float64(a.requests),
		})
	}
	return buckets
}
