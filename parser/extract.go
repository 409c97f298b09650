// Package parser extracts raw fields from fetched documents and normalizes
// accumulated product contexts into typed records.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-adidas/models"
)

// CatalogEntry pairs an article code with its listing metadata.
type CatalogEntry struct {
	Code string
	Stat models.ProductStat
}

// CatalogPage is one decoded page of the product listing.
type CatalogPage struct {
	Entries []CatalogEntry
	// NextParam is the server-supplied cursor for the following page, empty
	// on the last page.
	NextParam string
}

type rawCatalog struct {
	CanonicalParamNext string                       `json:"canonical_param_next"`
	Articles           map[string]models.ProductStat `json:"articles"`
}

// ParseCatalog decodes a catalog listing response. Entries come back sorted
// by article code so dispatch order is stable.
func ParseCatalog(body []byte) (*CatalogPage, error) {
	var raw rawCatalog
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog page: %w", err)
	}

	page := &CatalogPage{NextParam: raw.CanonicalParamNext}
	for code, stat := range raw.Articles {
		stat.Article = code
		page.Entries = append(page.Entries, CatalogEntry{Code: code, Stat: stat})
	}
	sort.Slice(page.Entries, func(i, j int) bool {
		return page.Entries[i].Code < page.Entries[j].Code
	})
	return page, nil
}

// ParseProductPage extracts the raw article fields from a detail page. A
// selector that matches nothing leaves its field empty or nil; downstream
// normalization tolerates partial pages.
func ParseProductPage(body []byte, pageURL string) (models.ProductPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.ProductPage{}, fmt.Errorf("parse product page: %w", err)
	}

	page := models.ProductPage{
		Name:     strings.TrimSpace(doc.Find("h1.itemTitle").First().Text()),
		URL:      pageURL,
		Category: strings.TrimSpace(doc.Find(".categoryName").First().Text()),
	}

	var crumbs []string
	doc.Find("ul.breadcrumbList li").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			crumbs = append(crumbs, text)
		}
	})
	page.Breadcrumb = strings.Join(crumbs, " / ")

	doc.Find(".sizeSelectorList li button").Each(func(_ int, s *goquery.Selection) {
		if label := strings.TrimSpace(s.Text()); label != "" {
			page.AvailableSizes = append(page.AvailableSizes, label)
		}
	})

	if fit := strings.TrimSpace(doc.Find(".sizeFitBar .label").First().Text()); fit != "" {
		page.SenseOfFit = &fit
	}
	if title := strings.TrimSpace(doc.Find(".itemFeature .heading").First().Text()); title != "" {
		page.TitleOfDescription = &title
	}

	doc.Find(".articleFeatures li").Each(func(_ int, s *goquery.Selection) {
		// Text() drops any embedded markup, which is what we want for the
		// feature bullets.
		if text := strings.TrimSpace(s.Text()); text != "" {
			page.ItemizationDescription = append(page.ItemizationDescription, text)
		}
	})

	return page, nil
}

// ParseAPIInfo decodes the article API payload. The relevant sub-trees are
// carried through unchanged.
func ParseAPIInfo(body []byte) (models.APIInfo, error) {
	var info models.APIInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return models.APIInfo{}, fmt.Errorf("decode article api: %w", err)
	}
	return info, nil
}

type sizeCell struct {
	Value string `json:"value"`
}

type rawSizeChart struct {
	SizeChart map[string]struct {
		Header map[string]map[string]sizeCell `json:"header"`
		Body   map[string]map[string]sizeCell `json:"body"`
	} `json:"size_chart"`
}

// displaySizeHeader replaces the blank header cell that labels the size
// column in the source payload.
const displaySizeHeader = "表示サイズ"

// ParseSizeChart flattens the size-chart payload into per-size rows keyed by
// the header labels. Charts come back from the API as cell grids under
// string-indexed maps; only table "0" is populated in practice.
func ParseSizeChart(body []byte) ([]models.SizeRow, error) {
	var raw rawSizeChart
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode size chart: %w", err)
	}

	chart, ok := raw.SizeChart["0"]
	if !ok {
		return nil, nil
	}
	headers := chart.Header["0"]
	if len(headers) == 0 || len(chart.Body) == 0 {
		return nil, nil
	}

	bodyKeys := make([]string, 0, len(chart.Body))
	for k := range chart.Body {
		bodyKeys = append(bodyKeys, k)
	}
	sort.Strings(bodyKeys)

	rows := make([]models.SizeRow, 0, len(bodyKeys))
	for _, bk := range bodyKeys {
		row := models.SizeRow{}
		for col, cell := range chart.Body[bk] {
			header, ok := headers[col]
			if !ok {
				continue
			}
			label := header.Value
			if label == "" {
				label = displaySizeHeader
			}
			row[label] = cell.Value
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
