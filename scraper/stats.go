package scraper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aluiziolira/go-scrape-adidas/datadir"
	"github.com/aluiziolira/go-scrape-adidas/models"
)

// WriteStats persists the run summary to data/stats/<date>/latest.json,
// rotating any earlier run's file. The completion email reads this back.
func WriteStats(root string, stats *models.RunStats) (string, error) {
	location, err := datadir.EnsureRunDir(filepath.Join(root, "stats"), "json", nil)
	if err != nil {
		return "", err
	}

	path := filepath.Join(location, "latest.json")
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode run stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write run stats: %w", err)
	}
	return path, nil
}

// ReadStats loads the current day's run summary.
func ReadStats(root string) (*models.RunStats, error) {
	path := filepath.Join(root, "stats", datadir.Today(), "latest.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run stats: %w", err)
	}

	var stats models.RunStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decode run stats %q: %w", path, err)
	}
	return &stats, nil
}
