package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-adidas/datadir"
)

type statsPayload struct {
	Timestamp  string   `json:"timestamp"`
	KPIs       []KPI    `json:"kpis"`
	Timeseries []Bucket `json:"timeseries"`
}

// Server serves the latency dashboard, reloading the timing log on each
// stats request so a running crawl shows up live.
type Server struct {
	root string
	addr string
}

func NewServer(root, addr string) *Server {
	return &Server{root: root, addr: addr}
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/stats", s.handleStats)

	server := &http.Server{Addr: s.addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	slog.Info("dashboard listening", slog.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, strings.Replace(dashboardPage, dataPlaceholder, "null", 1))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	payload, err := s.payload()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode stats payload", slog.Any("error", err))
	}
}

func (s *Server) payload() (*statsPayload, error) {
	samples, err := LoadSamples(s.root)
	if err != nil {
		return nil, err
	}
	return &statsPayload{
		Timestamp:  time.Now().Format(time.RFC3339),
		KPIs:       ComputeKPIs(samples),
		Timeseries: BucketPerSecond(samples),
	}, nil
}

// Save renders the dashboard as a static page with the data inlined, written
// to data/report/<date>/latest.html.
func Save(root string) (string, error) {
	samples, err := LoadSamples(root)
	if err != nil {
		return "", err
	}
	payload := &statsPayload{
		Timestamp:  time.Now().Format(time.RFC3339),
		KPIs:       ComputeKPIs(samples),
		Timeseries: BucketPerSecond(samples),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode report payload: %w", err)
	}

	location, err := datadir.EnsureRunDir(filepath.Join(root, "report"), "html", nil)
	if err != nil {
		return "", err
	}
	path := filepath.Join(location, "latest.html")
	page := strings.Replace(dashboardPage, dataPlaceholder, string(data), 1)
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return "", fmt.Errorf("write report page: %w", err)
	}
	return path, nil
}
