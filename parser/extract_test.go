package parser

import (
	"testing"
)

func TestParseCatalog(t *testing.T) {
	body := []byte(`{
		"canonical_param_next": "item/?gender=mens&limit=120&page=2",
		"articles": {
			"IB2345": {"model_code": "ABC12", "review_count": 23},
			"GW0001": {"model_code": "XYZ99", "review_count": 0}
		}
	}`)

	page, err := ParseCatalog(body)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if page.NextParam != "item/?gender=mens&limit=120&page=2" {
		t.Fatalf("next param = %q", page.NextParam)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(page.Entries))
	}
	// Sorted by article code.
	if page.Entries[0].Code != "GW0001" || page.Entries[1].Code != "IB2345" {
		t.Fatalf("unexpected order: %+v", page.Entries)
	}
	if page.Entries[1].Stat.Article != "IB2345" {
		t.Fatalf("article code not backfilled: %+v", page.Entries[1].Stat)
	}
	if page.Entries[1].Stat.ReviewCount != 23 {
		t.Fatalf("review count = %d", page.Entries[1].Stat.ReviewCount)
	}
}

func TestParseCatalogLastPage(t *testing.T) {
	page, err := ParseCatalog([]byte(`{"articles": {}}`))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if page.NextParam != "" {
		t.Fatalf("next param = %q, want empty on last page", page.NextParam)
	}
}

const productPageHTML = `<!DOCTYPE html>
<html><body>
<ul class="breadcrumbList"><li>ホーム</li><li>メンズ</li><li>パーカー</li></ul>
<h1 class="itemTitle">エッセンシャルズ パーカー</h1>
<div class="categoryName">パーカー</div>
<ul class="sizeSelectorList">
  <li><button>S</button></li>
  <li><button>M</button></li>
  <li><button>L</button></li>
</ul>
<div class="sizeFitBar"><span class="label">レギュラーフィット</span></div>
<section class="itemFeature"><h2 class="heading">快適な着心地</h2></section>
<ul class="articleFeatures">
  <li>フロント<b>ジップ</b></li>
  <li>サイドポケット</li>
</ul>
</body></html>`

func TestParseProductPage(t *testing.T) {
	page, err := ParseProductPage([]byte(productPageHTML), "https://shop.adidas.jp/products/IB2345/")
	if err != nil {
		t.Fatalf("ParseProductPage: %v", err)
	}

	if page.Name != "エッセンシャルズ パーカー" {
		t.Fatalf("name = %q", page.Name)
	}
	if page.Breadcrumb != "ホーム / メンズ / パーカー" {
		t.Fatalf("breadcrumb = %q", page.Breadcrumb)
	}
	if len(page.AvailableSizes) != 3 || page.AvailableSizes[0] != "S" {
		t.Fatalf("sizes = %v", page.AvailableSizes)
	}
	if page.SenseOfFit == nil || *page.SenseOfFit != "レギュラーフィット" {
		t.Fatalf("sense of fit = %v", page.SenseOfFit)
	}
	// Markup inside feature bullets is stripped.
	if len(page.ItemizationDescription) != 2 || page.ItemizationDescription[0] != "フロントジップ" {
		t.Fatalf("itemization = %v", page.ItemizationDescription)
	}
}

func TestParseProductPageMissingSelectors(t *testing.T) {
	page, err := ParseProductPage([]byte("<html><body><p>empty</p></body></html>"), "https://shop.adidas.jp/products/XX0000/")
	if err != nil {
		t.Fatalf("ParseProductPage: %v", err)
	}
	// Extraction gaps are tolerated, not errors.
	if page.Name != "" || page.SenseOfFit != nil || len(page.AvailableSizes) != 0 {
		t.Fatalf("expected empty fields, got %+v", page)
	}
}

func TestParseSizeChart(t *testing.T) {
	body := []byte(`{
		"size_chart": {
			"0": {
				"header": {"0": {
					"0": {"value": ""},
					"1": {"value": "胸囲"},
					"2": {"value": "着丈"}
				}},
				"body": {
					"0": {"0": {"value": "S"}, "1": {"value": "88-94"}, "2": {"value": "66"}},
					"1": {"0": {"value": "M"}, "1": {"value": "94-100"}, "2": {"value": "68"}}
				}
			}
		}
	}`)

	rows, err := ParseSizeChart(body)
	if err != nil {
		t.Fatalf("ParseSizeChart: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["表示サイズ"] != "S" {
		t.Fatalf("blank header column must become the display size: %v", rows[0])
	}
	if rows[1]["胸囲"] != "94-100" {
		t.Fatalf("measurement column: %v", rows[1])
	}
}

func TestParseSizeChartEmpty(t *testing.T) {
	rows, err := ParseSizeChart([]byte(`{"size_chart": {}}`))
	if err != nil {
		t.Fatalf("ParseSizeChart: %v", err)
	}
	if rows != nil {
		t.Fatalf("rows = %v, want nil", rows)
	}
}
