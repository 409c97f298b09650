package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/aluiziolira/go-scrape-adidas/models"
)

type collectingWriter struct {
	mu      sync.Mutex
	records []models.Record
	writes  int
	closed  bool
	failOn  int // fail the Nth write when > 0
}

func (w *collectingWriter) Write(records []models.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
	if w.failOn > 0 && w.writes >= w.failOn {
		return errors.New("disk full")
	}
	w.records = append(w.records, records...)
	return nil
}

func (w *collectingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *collectingWriter) Validate() error { return nil }

func (w *collectingWriter) snapshot() []models.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.Record, len(w.records))
	copy(out, w.records)
	return out
}

func testContext(article string) models.ProductContext {
	page := models.ProductPage{
		Name:           "テスト商品",
		URL:            "https://shop.adidas.jp/products/" + article + "/",
		Category:       "パーカー",
		Breadcrumb:     "ホーム / メンズ",
		AvailableSizes: []string{"M", "L"},
	}
	var api models.APIInfo
	api.Product.Article.Description.Messages.MainText = "説明"

	ctx := models.NewProductContext(models.ProductStat{Article: article, ModelCode: "MD001"})
	return ctx.WithPage(page).WithAPI(api).WithSizeChart(nil)
}

func TestPipelineProcessesContexts(t *testing.T) {
	writer := &collectingWriter{}
	p := NewPipeline(writer)
	p.Start()

	if err := p.Process(testContext("IB0001")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Process(testContext("IB0002")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	records := writer.snapshot()
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for _, r := range records {
		if r.Kind() != models.KindProductInformation {
			t.Fatalf("unexpected kind %q", r.Kind())
		}
	}

	metrics := p.GetMetrics()
	if processed := metrics["processed_products"].(int64); processed != 2 {
		t.Fatalf("processed = %d, want 2", processed)
	}
	byKind := metrics["records_by_kind"].(map[string]int64)
	if byKind[string(models.KindProductInformation)] != 2 {
		t.Fatalf("by kind = %v", byKind)
	}
}

func TestPipelineRejectsAfterClose(t *testing.T) {
	writer := &collectingWriter{}
	p := NewPipeline(writer)
	p.Start()

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Process(testContext("IB0001")); err != ErrPipelineClosed {
		t.Fatalf("process after close = %v, want ErrPipelineClosed", err)
	}
}

func TestPipelineSurfacesWriteError(t *testing.T) {
	writer := &collectingWriter{failOn: 1}
	p := NewPipeline(writer)
	p.Start()

	_ = p.Process(testContext("IB0001"))
	err := p.Close()
	if err == nil {
		t.Fatalf("expected write error to surface through Close")
	}
}

func TestPipelineCountsValidationErrors(t *testing.T) {
	writer := &collectingWriter{}
	p := NewPipeline(writer)
	p.Start()

	// A context with no page or api data cannot normalize.
	incomplete := models.NewProductContext(models.ProductStat{Article: "IB0404"})
	if err := p.Process(incomplete); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(writer.snapshot()) != 0 {
		t.Fatalf("no records should be written for an incomplete context")
	}
	validation := p.GetMetrics()["validation_errors"].(map[string]int)
	if validation["IB0404"] != 1 {
		t.Fatalf("validation errors = %v", validation)
	}
}
