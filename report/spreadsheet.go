// Package report produces the run deliverables that leave the machine: a
// styled spreadsheet consolidating the exported record files and a
// completion email carrying it.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/aluiziolira/go-scrape-adidas/datadir"
	"github.com/aluiziolira/go-scrape-adidas/models"
)

const (
	contentsSheet = "Contents"
	accentColor   = "002060"
)

var sheetNames = []struct {
	Kind models.RecordKind
	Name string
}{
	{models.KindProductInformation, "Product Information"},
	{models.KindProductMedia, "Product Media"},
	{models.KindCoordinatedProduct, "Coordinated Products"},
	{models.KindProductSize, "Sizes"},
	{models.KindProductTechnology, "Technologies"},
	{models.KindProductReview, "Reviews"},
}

// GenerateSpreadsheet consolidates the day's JSONL exports into one workbook
// at data/spreadsheets/<date>/latest.xlsx: a sheet per record kind plus a
// hyperlinked table of contents. Kinds with no exported records are left
// out.
func GenerateSpreadsheet(root string) (string, error) {
	source := filepath.Join(root, "jsonlines", datadir.Today())

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", contentsSheet); err != nil {
		return "", fmt.Errorf("rename contents sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: accentColor, Size: 14, Bold: true},
	})
	if err != nil {
		return "", fmt.Errorf("create title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: accentColor, Size: 12, Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "left"},
		Border:    []excelize.Border{{Type: "bottom", Style: 2, Color: accentColor}},
	})
	if err != nil {
		return "", fmt.Errorf("create header style: %w", err)
	}

	var written []string
	for _, sheet := range sheetNames {
		headers, rows, err := readRecordFile(filepath.Join(source, string(sheet.Kind)+"-latest.jl"))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		if len(rows) == 0 {
			continue
		}
		if err := fillSheet(f, sheet.Name, headers, rows, titleStyle, headerStyle); err != nil {
			return "", err
		}
		written = append(written, sheet.Name)
	}

	if err := fillContents(f, written, titleStyle); err != nil {
		return "", err
	}

	location, err := datadir.EnsureRunDir(filepath.Join(root, "spreadsheets"), "xlsx", nil)
	if err != nil {
		return "", err
	}
	path := filepath.Join(location, "latest.xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save spreadsheet: %w", err)
	}
	return path, nil
}

// readRecordFile loads one JSONL export. Headers are the sorted union of
// keys so size-chart rows with uneven columns still line up.
func readRecordFile(path string) ([]string, []map[string]interface{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	seen := make(map[string]struct{})
	var rows []map[string]interface{}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row map[string]interface{}
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, nil, fmt.Errorf("decode record in %q: %w", path, err)
		}
		for key := range row {
			seen[key] = struct{}{}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read %q: %w", path, err)
	}

	headers := make([]string, 0, len(seen))
	for key := range seen {
		headers = append(headers, key)
	}
	sort.Strings(headers)
	return headers, rows, nil
}

func fillSheet(f *excelize.File, name string, headers []string, rows []map[string]interface{}, titleStyle, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	if err := f.SetColWidth(name, "A", "A", 2.71); err != nil {
		return fmt.Errorf("size margin column: %w", err)
	}

	if err := f.SetCellValue(name, "B1", name+" Table"); err != nil {
		return fmt.Errorf("set sheet title: %w", err)
	}
	if err := f.SetCellStyle(name, "B1", "B1", titleStyle); err != nil {
		return fmt.Errorf("style sheet title: %w", err)
	}

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+2, 3)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, humanCase(header)); err != nil {
			return fmt.Errorf("set header %q: %w", header, err)
		}
		if err := f.SetCellStyle(name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("style header %q: %w", header, err)
		}
	}

	for ri, row := range rows {
		for ci, header := range headers {
			value, ok := row[header]
			if !ok || value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(ci+2, ri+4)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, value); err != nil {
				return fmt.Errorf("set cell %s!%s: %w", name, cell, err)
			}
		}
	}
	return nil
}

func fillContents(f *excelize.File, sheets []string, titleStyle int) error {
	if err := f.SetColWidth(contentsSheet, "A", "A", 2.71); err != nil {
		return err
	}
	if err := f.SetCellValue(contentsSheet, "B1", "Contents"); err != nil {
		return err
	}
	if err := f.SetCellStyle(contentsSheet, "B1", "B1", titleStyle); err != nil {
		return err
	}

	for i, name := range sheets {
		cell, err := excelize.CoordinatesToCellName(2, i+3)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(contentsSheet, cell, name); err != nil {
			return err
		}
		if err := f.SetCellHyperLink(contentsSheet, cell, "'"+name+"'!B1", "Location"); err != nil {
			return fmt.Errorf("link contents entry %q: %w", name, err)
		}
	}
	return nil
}

// humanCase turns a snake_case column key into a spaced, title-cased header.
// Non-ASCII labels (size-chart measurements) pass through unchanged.
func humanCase(key string) string {
	words := strings.Split(key, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
