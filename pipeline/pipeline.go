// Package pipeline normalizes finalized product contexts and streams the
// resulting records into export sinks.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/go-scrape-adidas/models"
	"github.com/aluiziolira/go-scrape-adidas/parser"
)

// ErrPipelineClosed is returned when Process is called after shutdown.
var ErrPipelineClosed = errors.New("pipeline: closed")

// OutputWriter defines the interface for record sinks. One writer is opened
// per run and closed when the run finishes.
type OutputWriter interface {
	Write(records []models.Record) error
	Close() error
	Validate() error
}

// Pipeline normalizes each completed context inline and hands the records to
// a single writer goroutine, so sink files never see interleaved writes.
type Pipeline struct {
	writer OutputWriter
	ctxCh  chan models.ProductContext

	wg sync.WaitGroup

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline with a modest in-memory buffer.
func NewPipeline(writer OutputWriter) *Pipeline {
	return &Pipeline{
		writer:   writer,
		ctxCh:    make(chan models.ProductContext, 256),
		metrics:  newMetrics(),
		shutdown: make(chan struct{}),
	}
}

// Start launches the writer goroutine.
func (p *Pipeline) Start() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.wg.Add(1)
	go p.worker()
}

// Process enqueues one finalized product context.
func (p *Pipeline) Process(ctx models.ProductContext) error {
	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}
	return p.enqueue(ctx)
}

// Close waits for the writer to drain and prevents more submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
	}
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.ctxCh)
	})

	p.wg.Wait()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for ctx := range p.ctxCh {
		records, err := parser.BuildRecords(ctx)
		if err != nil {
			p.metrics.addValidation(ctx.Stat().Article)
			slog.Error("record validation",
				slog.String("article", ctx.Stat().Article),
				slog.Any("error", err),
			)
		}
		if len(records) == 0 {
			continue
		}
		if err := p.writer.Write(records); err != nil {
			p.setErr(fmt.Errorf("write records: %w", err))
			return
		}
		p.metrics.countRecords(records)
		p.metrics.incrementProcessed()
	}
}

func (p *Pipeline) enqueue(ctx models.ProductContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.ctxCh <- ctx:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.ctxCh)
	})
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	byKind     map[models.RecordKind]int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		byKind:     make(map[models.RecordKind]int64),
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) countRecords(records []models.Record) {
	m.mu.Lock()
	for _, r := range records {
		m.byKind[r.Kind()]++
	}
	m.mu.Unlock()
}

func (m *metrics) addValidation(article string) {
	m.mu.Lock()
	m.validation[article]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKind := make(map[string]int64, len(m.byKind))
	for k, v := range m.byKind {
		byKind[string(k)] = v
	}
	validation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		validation[k] = v
	}

	return map[string]interface{}{
		"processed_products": m.processed,
		"records_by_kind":    byKind,
		"validation_errors":  validation,
	}
}
