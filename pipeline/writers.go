package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aluiziolira/go-scrape-adidas/models"
)

// FilePrefixes lists the per-kind output file prefixes in a stable order,
// for directory rotation.
func FilePrefixes() []string {
	kinds := models.Kinds()
	prefixes := make([]string, len(kinds))
	for i, k := range kinds {
		prefixes[i] = string(k)
	}
	return prefixes
}

// JSONLSink writes one newline-delimited JSON file per record kind under a
// run directory.
type JSONLSink struct {
	files    map[models.RecordKind]*os.File
	writers  map[models.RecordKind]*bufio.Writer
	encoders map[models.RecordKind]*json.Encoder
}

// NewJSONLSink opens the per-kind <kind>-latest.jl files inside dir.
func NewJSONLSink(dir string) (*JSONLSink, error) {
	s := &JSONLSink{
		files:    make(map[models.RecordKind]*os.File),
		writers:  make(map[models.RecordKind]*bufio.Writer),
		encoders: make(map[models.RecordKind]*json.Encoder),
	}
	for _, kind := range models.Kinds() {
		path := filepath.Join(dir, string(kind)+"-latest.jl")
		f, err := os.Create(path)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("create jsonl file %q: %w", path, err)
		}
		w := bufio.NewWriter(f)
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		s.files[kind] = f
		s.writers[kind] = w
		s.encoders[kind] = enc
	}
	return s, nil
}

// Write appends each record to its kind's file.
func (s *JSONLSink) Write(records []models.Record) error {
	for _, r := range records {
		enc, ok := s.encoders[r.Kind()]
		if !ok {
			return fmt.Errorf("jsonl sink: unknown record kind %q", r.Kind())
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode %s record: %w", r.Kind(), err)
		}
	}
	for _, w := range s.writers {
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush jsonl writer: %w", err)
		}
	}
	return nil
}

// Close flushes and closes every per-kind file.
func (s *JSONLSink) Close() error {
	var errs []error
	for kind, w := range s.writers {
		if err := w.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", kind, err))
		}
	}
	for kind, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", kind, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("jsonl sink close: %v", errs)
	}
	return nil
}

// Validate ensures the product information file has content.
func (s *JSONLSink) Validate() error {
	f, ok := s.files[models.KindProductInformation]
	if !ok {
		return fmt.Errorf("jsonl sink: product information file missing")
	}
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat product information file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("product information file is empty")
	}
	return nil
}

// flatten renders a record as string cells keyed by its JSON field names.
// Nested values never occur in the export shapes; nulls flatten to "".
func flatten(r models.Record) (map[string]string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("flatten %s record: %w", r.Kind(), err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("flatten %s record: %w", r.Kind(), err)
	}

	flat := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
			flat[k] = ""
		case string:
			// Tabular output cannot carry embedded newlines.
			flat[k] = strings.ReplaceAll(val, "\n", " ")
		case float64:
			flat[k] = formatFloat(val)
		case bool:
			flat[k] = fmt.Sprintf("%t", val)
		default:
			flat[k] = fmt.Sprintf("%v", val)
		}
	}
	return flat, nil
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// CSVSink writes one CSV file per record kind. The header is fixed by the
// first record of each kind; later records with extra columns (size charts
// vary per model) drop the extras and missing columns come out empty.
type CSVSink struct {
	dir     string
	files   map[models.RecordKind]*os.File
	writers map[models.RecordKind]*csv.Writer
	headers map[models.RecordKind][]string
}

// NewCSVSink prepares a lazy per-kind CSV sink inside dir.
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create csv directory: %w", err)
	}
	return &CSVSink{
		dir:     dir,
		files:   make(map[models.RecordKind]*os.File),
		writers: make(map[models.RecordKind]*csv.Writer),
		headers: make(map[models.RecordKind][]string),
	}, nil
}

// Write appends records to their kind's CSV file, creating it (and its
// header row) on first use.
func (s *CSVSink) Write(records []models.Record) error {
	for _, r := range records {
		flat, err := flatten(r)
		if err != nil {
			return err
		}

		kind := r.Kind()
		w, ok := s.writers[kind]
		if !ok {
			path := filepath.Join(s.dir, string(kind)+"-latest.csv")
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create csv file %q: %w", path, err)
			}
			header := make([]string, 0, len(flat))
			for k := range flat {
				header = append(header, k)
			}
			sort.Strings(header)

			w = csv.NewWriter(f)
			if err := w.Write(header); err != nil {
				f.Close()
				return fmt.Errorf("write csv header: %w", err)
			}
			s.files[kind] = f
			s.writers[kind] = w
			s.headers[kind] = header
		}

		row := make([]string, len(s.headers[kind]))
		for i, col := range s.headers[kind] {
			row[i] = flat[col]
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	for kind, w := range s.writers {
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("flush csv %s: %w", kind, err)
		}
	}
	return nil
}

// Close flushes and closes every open CSV file.
func (s *CSVSink) Close() error {
	var errs []error
	for kind, w := range s.writers {
		w.Flush()
		if err := w.Error(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", kind, err))
		}
	}
	for kind, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", kind, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("csv sink close: %v", errs)
	}
	return nil
}

// Validate ensures at least one CSV file got data.
func (s *CSVSink) Validate() error {
	if len(s.files) == 0 {
		return fmt.Errorf("csv sink produced no files")
	}
	return nil
}

// ArrayJSONSink writes one wrapped-array JSON file per record kind. Records
// accumulate with trailing commas; Close seeks back over the final comma and
// terminates the array, leaving a single valid JSON document.
type ArrayJSONSink struct {
	files  map[models.RecordKind]*os.File
	counts map[models.RecordKind]int
}

// NewArrayJSONSink opens the per-kind <kind>-latest.json files inside dir.
func NewArrayJSONSink(dir string) (*ArrayJSONSink, error) {
	s := &ArrayJSONSink{
		files:  make(map[models.RecordKind]*os.File),
		counts: make(map[models.RecordKind]int),
	}
	for _, kind := range models.Kinds() {
		path := filepath.Join(dir, string(kind)+"-latest.json")
		f, err := os.Create(path)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("create json file %q: %w", path, err)
		}
		if _, err := f.WriteString("[\n"); err != nil {
			s.Close()
			return nil, fmt.Errorf("open json array: %w", err)
		}
		s.files[kind] = f
	}
	return s, nil
}

// Write appends records to their kind's array, each with a trailing comma.
func (s *ArrayJSONSink) Write(records []models.Record) error {
	for _, r := range records {
		f, ok := s.files[r.Kind()]
		if !ok {
			return fmt.Errorf("json sink: unknown record kind %q", r.Kind())
		}
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode %s record: %w", r.Kind(), err)
		}
		if _, err := f.WriteString("  " + string(raw) + ",\n"); err != nil {
			return fmt.Errorf("append %s record: %w", r.Kind(), err)
		}
		s.counts[r.Kind()]++
	}
	return nil
}

// Close repairs each accumulated array into valid JSON and closes the files.
func (s *ArrayJSONSink) Close() error {
	var errs []error
	for kind, f := range s.files {
		if s.counts[kind] > 0 {
			// Overwrite the trailing ",\n" left by the last record.
			if _, err := f.Seek(-2, io.SeekEnd); err != nil {
				errs = append(errs, fmt.Errorf("seek %s: %w", kind, err))
			} else if _, err := f.WriteString("\n]\n"); err != nil {
				errs = append(errs, fmt.Errorf("terminate %s: %w", kind, err))
			}
		} else if _, err := f.WriteString("]\n"); err != nil {
			errs = append(errs, fmt.Errorf("terminate %s: %w", kind, err))
		}
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", kind, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("json sink close: %v", errs)
	}
	return nil
}

// Validate ensures the product information array has content.
func (s *ArrayJSONSink) Validate() error {
	if s.counts[models.KindProductInformation] == 0 {
		return fmt.Errorf("product information array is empty")
	}
	return nil
}
