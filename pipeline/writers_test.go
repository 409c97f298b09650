package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-adidas/models"
)

func sampleRecords() []models.Record {
	title := "良い"
	return []models.Record{
		models.ProductInformation{
			ProductID:              "IB2345",
			ProductName:            "エッセンシャルズ パーカー",
			ProductURL:             "https://shop.adidas.jp/products/IB2345/",
			ProductCategory:        "パーカー",
			AvailableSizes:         "S, M, L",
			Breadcrumb:             "ホーム / メンズ",
			ProductDescription:     "毎日の定番。",
			ItemizationDescription: "- フロントジップ\n- サイドポケット",
			Keywords:               "パーカー, メンズ",
		},
		models.ProductReview{
			ProductID:         "IB2345",
			ProductName:       "エッセンシャルズ パーカー",
			ReviewDate:        "2023-04-19",
			ReviewRating:      5,
			ReviewTitle:       &title,
			ReviewDescription: "とても良い",
			ReviewerID:        "user-1",
		},
		models.ProductSize{
			ProductID:    "IB2345",
			ProductName:  "エッセンシャルズ パーカー",
			Measurements: map[string]string{"表示サイズ": "M", "胸囲": "94-100"},
		},
	}
}

func TestJSONLSink(t *testing.T) {
	dir := t.TempDir()

	sink, err := NewJSONLSink(dir)
	if err != nil {
		t.Fatalf("new jsonl sink: %v", err)
	}
	if err := sink.Write(sampleRecords()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Every kind gets its own file; untouched kinds stay empty.
	for _, kind := range models.Kinds() {
		if _, err := os.Stat(filepath.Join(dir, string(kind)+"-latest.jl")); err != nil {
			t.Fatalf("missing file for %s: %v", kind, err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "product-information-latest.jl"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
		var decoded map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		if decoded["product_id"] != "IB2345" {
			t.Fatalf("unexpected product_id: %v", decoded["product_id"])
		}
		if decoded["product_rating"] != nil {
			t.Fatalf("absent rating should serialize as null")
		}
	}
	if lines != 1 {
		t.Fatalf("lines = %d, want 1", lines)
	}
}

func TestJSONLSinkValidateEmpty(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir)
	if err != nil {
		t.Fatalf("new jsonl sink: %v", err)
	}
	defer sink.Close()

	if err := sink.Validate(); err == nil {
		t.Fatalf("expected validation error for empty sink")
	}
}

func TestCSVSinkStripsNewlines(t *testing.T) {
	dir := t.TempDir()

	sink, err := NewCSVSink(dir)
	if err != nil {
		t.Fatalf("new csv sink: %v", err)
	}
	if err := sink.Write(sampleRecords()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "product-information-latest.csv"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}

	col := -1
	for i, name := range rows[0] {
		if name == "itemization_description" {
			col = i
		}
	}
	if col < 0 {
		t.Fatalf("itemization_description column missing: %v", rows[0])
	}
	if rows[1][col] != "- フロントジップ - サイドポケット" {
		t.Fatalf("embedded newline survived: %q", rows[1][col])
	}
}

func TestArrayJSONSinkRepairsTrailingComma(t *testing.T) {
	dir := t.TempDir()

	sink, err := NewArrayJSONSink(dir)
	if err != nil {
		t.Fatalf("new json sink: %v", err)
	}
	if err := sink.Write(sampleRecords()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "product-reviews-latest.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var reviews []map[string]any
	if err := json.Unmarshal(raw, &reviews); err != nil {
		t.Fatalf("repaired file is not a valid array: %v\n%s", err, raw)
	}
	if len(reviews) != 1 {
		t.Fatalf("reviews = %d, want 1", len(reviews))
	}

	// A kind that saw no records still terminates cleanly.
	raw, err = os.ReadFile(filepath.Join(dir, "product-coordinates-latest.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var empty []any
	if err := json.Unmarshal(raw, &empty); err != nil {
		t.Fatalf("empty array file invalid: %v\n%s", err, raw)
	}
	if len(empty) != 0 {
		t.Fatalf("empty kind should stay empty")
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a := &collectingWriter{}
	b := &collectingWriter{}
	multi, err := NewMultiSink(a, b)
	if err != nil {
		t.Fatalf("new multi sink: %v", err)
	}

	if err := multi.Write(sampleRecords()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := multi.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(a.snapshot()) != 3 || len(b.snapshot()) != 3 {
		t.Fatalf("fan-out incomplete: %d / %d", len(a.snapshot()), len(b.snapshot()))
	}
	if !a.closed || !b.closed {
		t.Fatalf("all sinks should be closed")
	}

	if _, err := NewMultiSink(); err == nil {
		t.Fatalf("expected error for empty sink list")
	}
}

func TestRecordDocumentTagsRun(t *testing.T) {
	runAt := time.Date(2023, 4, 19, 6, 0, 0, 0, time.UTC)

	doc, err := recordDocument(sampleRecords()[0], runAt)
	if err != nil {
		t.Fatalf("recordDocument: %v", err)
	}
	if _, ok := doc["_run_at"]; !ok {
		t.Fatalf("document missing run tag: %v", doc)
	}
	if doc["product_id"] != "IB2345" {
		t.Fatalf("document fields should match the JSON export: %v", doc)
	}
}
