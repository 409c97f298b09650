package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-adidas/models"
)

const (
	siteBaseURL    = "https://shop.adidas.jp"
	productBaseURL = siteBaseURL + "/products"

	// Review dates arrive in the site's locale format, e.g. 2023年04月19日.
	localeDateLayout = "2006年01月02日"
)

// ParsePercentRate converts "NN%" into a fraction in [0,1]. Empty input is
// not an error, it simply yields no value.
func ParsePercentRate(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
	if err != nil {
		return nil, fmt.Errorf("percent rate %q: %w", v, err)
	}
	f /= 100
	return &f, nil
}

// ParseRatioRate converts "N/5"-style strings into the numerator as a float.
func ParseRatioRate(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	head, _, _ := strings.Cut(v, "/")
	f, err := strconv.ParseFloat(head, 64)
	if err != nil {
		return nil, fmt.Errorf("ratio rate %q: %w", v, err)
	}
	return &f, nil
}

// ParseRatingNumerator converts a review's "N/5" rating into the integer N.
func ParseRatingNumerator(v string) (int, error) {
	head, _, _ := strings.Cut(v, "/")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0, fmt.Errorf("review rating %q: %w", v, err)
	}
	return n, nil
}

// ParsePrice converts a comma-grouped numeric string like "12,100".
func ParsePrice(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", v, err)
	}
	return f, nil
}

// ParseLocaleDate renders a locale-formatted date ISO-8601. Malformed input
// is a hard validation error, never a silent default.
func ParseLocaleDate(v string) (string, error) {
	t, err := time.Parse(localeDateLayout, v)
	if err != nil {
		return "", fmt.Errorf("review date %q: %w", v, err)
	}
	return t.Format("2006-01-02"), nil
}

// JoinSizes renders the size labels as a comma-joined string.
func JoinSizes(sizes []string) string {
	return strings.Join(sizes, ", ")
}

// JoinItemization renders feature bullets as dash-prefixed lines.
func JoinItemization(items []string) string {
	lines := make([]string, len(items))
	for i, text := range items {
		lines[i] = "- " + text
	}
	return strings.Join(lines, "\n")
}

// JoinKeywords renders category labels as a comma-joined string.
func JoinKeywords(categories []models.Category) string {
	labels := make([]string, len(categories))
	for i, c := range categories {
		labels[i] = c.Label
	}
	return strings.Join(labels, ", ")
}

// ProductPageURL synthesizes a product detail URL from an article code.
// The source history wavered between articleCode and name here; the later
// revision feeds the article code, which is what we follow.
func ProductPageURL(articleCode string) string {
	return fmt.Sprintf("%s/%s/", productBaseURL, articleCode)
}

// SiteURL resolves a path fragment against the shop's base URL.
func SiteURL(path string) string {
	return siteBaseURL + path
}

// BuildRecords normalizes one finalized context into its typed records. A
// record whose source fields fail validation is dropped whole; the remaining
// records are still returned, alongside the joined validation errors.
func BuildRecords(ctx models.ProductContext) ([]models.Record, error) {
	page := ctx.Page()
	api := ctx.API()
	if page == nil || api == nil {
		return nil, fmt.Errorf("context for %s incomplete: missing page or api data", ctx.Stat().Article)
	}

	var records []models.Record
	var errs []error

	info, err := buildInformation(ctx, page, api)
	if err != nil {
		errs = append(errs, err)
	} else {
		records = append(records, info)
	}

	for _, img := range api.Product.Article.Image {
		records = append(records, models.ProductMedia{
			ProductID:   ctx.Stat().Article,
			ProductName: page.Name,
			MediaType:   img.Type,
			ImageURL:    SiteURL(img.ImagePath),
		})
	}

	for _, coord := range api.Product.Article.Coordinates.Articles {
		price, err := ParsePrice(coord.Price.Current.WithTax)
		if err != nil {
			errs = append(errs, fmt.Errorf("coordinate %s: %w", coord.ArticleCode, err))
			continue
		}
		records = append(records, models.CoordinatedProduct{
			MainProductID:             ctx.Stat().Article,
			MainProductName:           page.Name,
			CoordinatedProductNumber:  coord.ArticleCode,
			CoordinatedProductName:    coord.Name,
			CoordinatedProductPrice:   price,
			CoordinatedProductPageURL: ProductPageURL(coord.ArticleCode),
			CoordinatedProductImage:   SiteURL(coord.Image),
		})
	}

	for _, row := range ctx.SizeChart() {
		records = append(records, models.ProductSize{
			ProductID:    ctx.Stat().Article,
			ProductName:  page.Name,
			Measurements: row,
		})
	}

	for _, tech := range api.Product.Model.Description.Technology {
		records = append(records, models.ProductTechnology{
			ProductID:      ctx.Stat().Article,
			ProductName:    page.Name,
			TechnologyName: tech.Name,
			Description:    tech.Text,
			ImageURL:       SiteURL(tech.ImagePath),
		})
	}

	if rd := ctx.Reviews(); rd != nil {
		for _, raw := range rd.Reviews {
			review, err := buildReview(ctx.Stat().Article, page.Name, raw)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			records = append(records, review)
		}
	}

	return records, errors.Join(errs...)
}

func buildInformation(ctx models.ProductContext, page *models.ProductPage, api *models.APIInfo) (models.ProductInformation, error) {
	info := models.ProductInformation{
		ProductID:              ctx.Stat().Article,
		ProductName:            page.Name,
		ProductURL:             page.URL,
		ProductCategory:        page.Category,
		AvailableSizes:         JoinSizes(page.AvailableSizes),
		Breadcrumb:             page.Breadcrumb,
		SenseOfFit:             page.SenseOfFit,
		TitleOfDescription:     page.TitleOfDescription,
		ProductDescription:     api.Product.Article.Description.Messages.MainText,
		ItemizationDescription: JoinItemization(page.ItemizationDescription),
		Keywords:               JoinKeywords(api.Page.Categories),
	}

	rd := ctx.Reviews()
	if rd.Empty() {
		return info, nil
	}

	if rd.Rating != "" {
		rating, err := strconv.ParseFloat(rd.Rating, 64)
		if err != nil {
			return info, fmt.Errorf("product %s rating %q: %w", info.ProductID, rd.Rating, err)
		}
		info.ProductRating = &rating
	}
	if rd.NumberOfReviews != "" {
		count, err := strconv.Atoi(rd.NumberOfReviews)
		if err != nil {
			return info, fmt.Errorf("product %s review count %q: %w", info.ProductID, rd.NumberOfReviews, err)
		}
		info.NumberOfReviews = &count
	}

	var err error
	if info.RecommendedRate, err = ParsePercentRate(rd.RecommendedRate); err != nil {
		return info, fmt.Errorf("product %s: %w", info.ProductID, err)
	}
	if info.SenseOfFitRate, err = ParseRatioRate(rd.SenseOfFitRate); err != nil {
		return info, fmt.Errorf("product %s: %w", info.ProductID, err)
	}
	if info.AppropriationOfLengthRate, err = ParseRatioRate(rd.AppropriationOfLengthRate); err != nil {
		return info, fmt.Errorf("product %s: %w", info.ProductID, err)
	}
	if info.MaterialQualityRate, err = ParseRatioRate(rd.MaterialQualityRate); err != nil {
		return info, fmt.Errorf("product %s: %w", info.ProductID, err)
	}
	if info.ComfortRate, err = ParseRatioRate(rd.ComfortRate); err != nil {
		return info, fmt.Errorf("product %s: %w", info.ProductID, err)
	}
	return info, nil
}

func buildReview(productID, productName string, raw models.RawReview) (models.ProductReview, error) {
	date, err := ParseLocaleDate(raw.Date)
	if err != nil {
		return models.ProductReview{}, fmt.Errorf("product %s: %w", productID, err)
	}
	rating, err := ParseRatingNumerator(raw.Rating)
	if err != nil {
		return models.ProductReview{}, fmt.Errorf("product %s: %w", productID, err)
	}

	review := models.ProductReview{
		ProductID:         productID,
		ProductName:       productName,
		ReviewDate:        date,
		ReviewRating:      rating,
		ReviewDescription: raw.Description,
		ReviewerID:        raw.ReviewerID,
	}
	if raw.Title != "" {
		title := raw.Title
		review.ReviewTitle = &title
	}
	return review, nil
}
