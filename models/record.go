// Package models defines the scraped context and the exported record kinds.
package models

import (
	"encoding/json"
	"sort"
)

// RecordKind tags every exported record. The values double as the file
// prefixes of the per-kind JSONL outputs.
type RecordKind string

const (
	KindProductInformation RecordKind = "product-information"
	KindProductMedia       RecordKind = "product-media"
	KindCoordinatedProduct RecordKind = "product-coordinates"
	KindProductSize        RecordKind = "product-sizes"
	KindProductTechnology  RecordKind = "product-technologies"
	KindProductReview      RecordKind = "product-reviews"
)

// Kinds lists every record kind in output order.
func Kinds() []RecordKind {
	return []RecordKind{
		KindProductInformation,
		KindProductMedia,
		KindCoordinatedProduct,
		KindProductSize,
		KindProductTechnology,
		KindProductReview,
	}
}

// Record is the closed set of normalized output shapes. Sinks dispatch on
// Kind so every variant gets routed to its own destination.
type Record interface {
	Kind() RecordKind
}

// ProductInformation is the denormalized per-article summary. Rating fields
// are nil when the article has no reviews.
type ProductInformation struct {
	ProductID                 string   `json:"product_id"`
	ProductName               string   `json:"product_name"`
	ProductURL                string   `json:"product_url"`
	ProductCategory           string   `json:"product_category"`
	AvailableSizes            string   `json:"available_sizes"`
	Breadcrumb                string   `json:"breadcrumb"`
	SenseOfFit                *string  `json:"sense_of_fit"`
	TitleOfDescription        *string  `json:"title_of_description"`
	ProductDescription        string   `json:"product_description"`
	ItemizationDescription    string   `json:"itemization_description"`
	Keywords                  string   `json:"keywords"`
	ProductRating             *float64 `json:"product_rating"`
	NumberOfReviews           *int     `json:"number_of_reviews"`
	RecommendedRate           *float64 `json:"recommended_rate"`
	SenseOfFitRate            *float64 `json:"sense_of_fit_rate"`
	AppropriationOfLengthRate *float64 `json:"appropriation_of_length_rate"`
	MaterialQualityRate       *float64 `json:"material_quality_rate"`
	ComfortRate               *float64 `json:"comfort_rate"`
}

func (ProductInformation) Kind() RecordKind { return KindProductInformation }

// ProductMedia is one article image.
type ProductMedia struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	MediaType   string `json:"media_type"`
	ImageURL    string `json:"image_url"`
}

func (ProductMedia) Kind() RecordKind { return KindProductMedia }

// CoordinatedProduct is an article suggested alongside the main product.
type CoordinatedProduct struct {
	MainProductID             string  `json:"main_product_id"`
	MainProductName           string  `json:"main_product_name"`
	CoordinatedProductNumber  string  `json:"coordinated_product_number"`
	CoordinatedProductName    string  `json:"coordinated_product_name"`
	CoordinatedProductPrice   float64 `json:"coordinated_product_price"`
	CoordinatedProductPageURL string  `json:"coordinated_product_page_url"`
	CoordinatedProductImage   string  `json:"coordinated_product_image_url"`
}

func (CoordinatedProduct) Kind() RecordKind { return KindCoordinatedProduct }

// ProductSize is one row of the size chart with measurement columns keyed by
// their header labels. Column names vary per chart, so they are carried as a
// map and flattened on serialization.
type ProductSize struct {
	ProductID    string
	ProductName  string
	Measurements map[string]string
}

func (ProductSize) Kind() RecordKind { return KindProductSize }

// MarshalJSON emits product fields first, then measurement columns in sorted
// order so output stays deterministic.
func (s ProductSize) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(s.Measurements)+2)
	flat["product_id"] = s.ProductID
	flat["product_name"] = s.ProductName
	for k, v := range s.Measurements {
		flat[k] = v
	}
	return json.Marshal(flat)
}

// Columns returns the measurement column names in sorted order.
func (s ProductSize) Columns() []string {
	cols := make([]string, 0, len(s.Measurements))
	for k := range s.Measurements {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// ProductTechnology describes one special function of the article's model.
type ProductTechnology struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	TechnologyName string `json:"technology_name"`
	Description    string `json:"description"`
	ImageURL       string `json:"image_url"`
}

func (ProductTechnology) Kind() RecordKind { return KindProductTechnology }

// ProductReview is one customer review with the date rendered ISO-8601 and
// the rating reduced to the numerator of the source "N/5" string.
type ProductReview struct {
	ProductID         string  `json:"product_id"`
	ProductName       string  `json:"product_name"`
	ReviewDate        string  `json:"review_date"`
	ReviewRating      int     `json:"review_rating"`
	ReviewTitle       *string `json:"review_title"`
	ReviewDescription string  `json:"review_description"`
	ReviewerID        string  `json:"reviewer_id"`
}

func (ProductReview) Kind() RecordKind { return KindProductReview }
