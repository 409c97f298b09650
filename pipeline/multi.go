package pipeline

import (
	"fmt"

	"github.com/aluiziolira/go-scrape-adidas/models"
)

// MultiSink writes every record batch to each of its sinks in order.
type MultiSink struct {
	sinks []OutputWriter
}

// NewMultiSink bundles the given sinks. At least one is required.
func NewMultiSink(sinks ...OutputWriter) (*MultiSink, error) {
	if len(sinks) == 0 {
		return nil, fmt.Errorf("multi sink needs at least one sink")
	}
	return &MultiSink{sinks: sinks}, nil
}

// Write forwards the records to every sink, stopping at the first failure.
func (m *MultiSink) Write(records []models.Record) error {
	for _, s := range m.sinks {
		if err := s.Write(records); err != nil {
			return fmt.Errorf("multi sink write: %w", err)
		}
	}
	return nil
}

// Close closes every sink, collecting failures.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multi sink close: %v", errs)
	}
	return nil
}

// Validate validates every sink.
func (m *MultiSink) Validate() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multi sink validation: %v", errs)
	}
	return nil
}
