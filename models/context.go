package models

// ProductStat is the catalog listing entry for one article, the seed of a
// product traversal.
type ProductStat struct {
	Article     string `json:"article"`
	ModelCode   string `json:"model_code"`
	ReviewCount int    `json:"review_count"`
}

// ProductPage holds the raw fields extracted from the article detail page.
// Optional selectors that matched nothing stay nil/empty.
type ProductPage struct {
	Name                   string
	URL                    string
	Category               string
	Breadcrumb             string
	AvailableSizes         []string
	SenseOfFit             *string
	TitleOfDescription     *string
	ItemizationDescription []string
}

// APIInfo is the article API response, decoded but otherwise untouched.
type APIInfo struct {
	Product struct {
		Article struct {
			Description struct {
				Messages struct {
					MainText string `json:"mainText"`
				} `json:"messages"`
			} `json:"description"`
			Coordinates struct {
				Articles []CoordinateArticle `json:"articles"`
			} `json:"coordinates"`
			Image []APIImage `json:"image"`
		} `json:"article"`
		Model struct {
			Description struct {
				Technology []APITechnology `json:"technology"`
			} `json:"description"`
		} `json:"model"`
	} `json:"product"`
	Page struct {
		Categories []Category `json:"categories"`
	} `json:"page"`
}

// CoordinateArticle is one coordinated article inside the API response.
type CoordinateArticle struct {
	ArticleCode string `json:"articleCode"`
	Name        string `json:"name"`
	Price       struct {
		Current struct {
			WithTax string `json:"withTax"`
		} `json:"current"`
	} `json:"price"`
	Image string `json:"image"`
}

// APIImage is one article image entry.
type APIImage struct {
	Type      string `json:"type"`
	ImagePath string `json:"imagePath"`
}

// APITechnology is one model technology entry.
type APITechnology struct {
	Name      string `json:"name"`
	Text      string `json:"text"`
	ImagePath string `json:"imagePath"`
}

// Category is a keyword label on the article page metadata.
type Category struct {
	Label string `json:"label"`
}

// SizeRow is one sanitized size-chart row, measurement values keyed by the
// chart's header labels.
type SizeRow map[string]string

// RawReview carries one review exactly as extracted; normalization happens
// downstream.
type RawReview struct {
	Date        string
	Rating      string // "5/5"
	Title       string
	Description string
	ReviewerID  string
}

// ReviewData accumulates the review feed for one article. The aggregate
// fields only appear on page 1 of the feed and are kept as source strings.
type ReviewData struct {
	Rating                    string
	NumberOfReviews           string
	RecommendedRate           string // "86%"
	SenseOfFitRate            string // "3.5/5"
	AppropriationOfLengthRate string
	MaterialQualityRate       string
	ComfortRate               string
	Reviews                   []RawReview
}

// Empty reports whether no review content was captured at all.
func (r *ReviewData) Empty() bool {
	return r == nil || (r.Rating == "" && len(r.Reviews) == 0)
}

// ProductContext is the append-only bag of partial data accumulated across a
// product's traversal steps. Every With method returns an extended copy and
// refuses to overwrite a step that already resolved; the reviews slice is the
// one accumulating member, grown page by page until the traversal finalizes.
type ProductContext struct {
	stat      ProductStat
	page      *ProductPage
	api       *APIInfo
	sizeChart []SizeRow
	hasSizes  bool
	reviews   *ReviewData
}

// NewProductContext seeds a context from the catalog listing entry.
func NewProductContext(stat ProductStat) ProductContext {
	return ProductContext{stat: stat}
}

// WithPage records the detail-page extraction.
func (c ProductContext) WithPage(p ProductPage) ProductContext {
	if c.page != nil {
		return c
	}
	c.page = &p
	return c
}

// WithAPI records the article API response.
func (c ProductContext) WithAPI(a APIInfo) ProductContext {
	if c.api != nil {
		return c
	}
	c.api = &a
	return c
}

// WithSizeChart records the sanitized size-chart rows.
func (c ProductContext) WithSizeChart(rows []SizeRow) ProductContext {
	if c.hasSizes {
		return c
	}
	c.sizeChart = rows
	c.hasSizes = true
	return c
}

// WithReviews sets the first review page, including the aggregate fields.
func (c ProductContext) WithReviews(r ReviewData) ProductContext {
	if c.reviews != nil {
		return c
	}
	c.reviews = &r
	return c
}

// AppendReviews extends the accumulated review list with a follow-up page.
func (c ProductContext) AppendReviews(reviews []RawReview) ProductContext {
	if c.reviews == nil {
		return c.WithReviews(ReviewData{Reviews: reviews})
	}
	merged := *c.reviews
	merged.Reviews = append(append([]RawReview(nil), merged.Reviews...), reviews...)
	c.reviews = &merged
	return c
}

func (c ProductContext) Stat() ProductStat    { return c.stat }
func (c ProductContext) Page() *ProductPage   { return c.page }
func (c ProductContext) API() *APIInfo        { return c.api }
func (c ProductContext) SizeChart() []SizeRow { return c.sizeChart }
func (c ProductContext) Reviews() *ReviewData { return c.reviews }
func (c ProductContext) HasSizeChart() bool   { return c.hasSizes }
