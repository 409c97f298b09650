package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-adidas/models"
)

// materialsPrefix marks the line of the review feed that carries the payload.
// The feed is a JS file; the payload line assigns a JSON object to a var and
// ends with a statement terminator.
const materialsPrefix = "var materials="

// sourceKey is the materials entry holding the rendered review markup.
const sourceKey = "BVRRSourceID"

// ReviewPage is the extraction result for one page of the review feed.
// Aggregate fields are only populated on page 1.
type ReviewPage struct {
	Aggregate models.ReviewData
	Reviews   []models.RawReview
}

// ParseReviewPayload isolates the materials assignment inside the review
// feed, decodes it, and extracts reviews (and aggregate rating fields when
// present) from the embedded HTML fragment.
func ParseReviewPayload(body []byte) (*ReviewPage, error) {
	var payload string
	for _, line := range strings.Split(string(body), "\n") {
		if strings.HasPrefix(line, materialsPrefix) {
			payload = strings.TrimSuffix(strings.TrimPrefix(line, materialsPrefix), ";")
			break
		}
	}
	if payload == "" {
		return nil, fmt.Errorf("review feed: materials assignment not found")
	}

	var materials map[string]string
	if err := json.Unmarshal([]byte(payload), &materials); err != nil {
		return nil, fmt.Errorf("review feed: decode materials: %w", err)
	}

	fragment, ok := materials[sourceKey]
	if !ok {
		return nil, fmt.Errorf("review feed: %s missing from materials", sourceKey)
	}
	// The fragment arrives escaped for embedding in JS; strip the
	// backslashes before querying it.
	fragment = strings.ReplaceAll(fragment, `\`, "")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("review feed: parse fragment: %w", err)
	}

	page := &ReviewPage{Aggregate: extractAggregate(doc)}
	doc.Find(".BVRRContentReview").Each(func(_ int, s *goquery.Selection) {
		review := models.RawReview{
			Date:        strings.TrimSpace(s.Find(".BVRRReviewDate").First().Text()),
			Title:       strings.TrimSpace(s.Find(".BVRRReviewTitle").First().Text()),
			Description: strings.TrimSpace(s.Find(".BVRRReviewText").First().Text()),
			ReviewerID:  strings.TrimSpace(s.Find(".BVRRNickname").First().Text()),
		}
		if img := s.Find(".BVRRRatingNormalImage img").First(); img.Length() > 0 {
			review.Rating, _ = img.Attr("alt")
		}
		page.Reviews = append(page.Reviews, review)
	})

	return page, nil
}

// extractAggregate pulls the overall rating block. Missing selectors leave
// fields empty; page 2 onward has no aggregate block at all.
func extractAggregate(doc *goquery.Document) models.ReviewData {
	agg := models.ReviewData{
		Rating:          strings.TrimSpace(doc.Find(".BVRRRatingNormalOutOf .BVRRRatingNumber").First().Text()),
		NumberOfReviews: strings.TrimSpace(doc.Find(".BVRRCount .BVRRNumber").First().Text()),
		RecommendedRate: strings.TrimSpace(doc.Find(".BVRRBuyAgainPercentage .BVRRNumber").First().Text()),
	}
	agg.SenseOfFitRate = secondaryRating(doc, ".BVRRRatingFit")
	agg.AppropriationOfLengthRate = secondaryRating(doc, ".BVRRRatingLength")
	agg.MaterialQualityRate = secondaryRating(doc, ".BVRRRatingQuality")
	agg.ComfortRate = secondaryRating(doc, ".BVRRRatingComfort")
	return agg
}

func secondaryRating(doc *goquery.Document, class string) string {
	img := doc.Find(class + " img").First()
	if img.Length() == 0 {
		return ""
	}
	alt, _ := img.Attr("alt")
	return strings.TrimSpace(alt)
}
