package scraper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-adidas/datadir"
)

// TimingEntry is one request timing sample. The dashboard reads these back
// to chart latency and throughput per second.
type TimingEntry struct {
	URL          string `json:"url"`
	SentAt       string `json:"sent_at"`
	ReceivedAt   string `json:"received_at"`
	ResponseSize int    `json:"response_size"`
}

// TimingLog appends timing samples to data/dashboard/<date>/latest.jl.
type TimingLog struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// OpenTimingLog creates the dated dashboard directory under root, rotating
// any earlier run's file, and opens the log for appending.
func OpenTimingLog(root string) (*TimingLog, error) {
	location, err := datadir.EnsureRunDir(filepath.Join(root, "dashboard"), "jl", nil)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filepath.Join(location, "latest.jl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open timing log: %w", err)
	}
	return &TimingLog{file: file, enc: json.NewEncoder(file)}, nil
}

// Record appends one sample. Responses land on collector goroutines, so the
// write is serialized here.
func (t *TimingLog) Record(url string, sentAt, receivedAt time.Time, size int) {
	entry := TimingEntry{
		URL:          url,
		SentAt:       sentAt.Format(time.RFC3339Nano),
		ReceivedAt:   receivedAt.Format(time.RFC3339Nano),
		ResponseSize: size,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Samples are best effort.
	_ = t.enc.Encode(entry)
}

func (t *TimingLog) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}
