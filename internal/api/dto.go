package api

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	gwmodel "github.com/ebaypulse/server/internal/gateway/model"
	"github.com/ebaypulse/server/internal/gateway/prompts"
	"github.com/ebaypulse/server/internal/views/model"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	APIKey  string `json:"apiKey"`
	Message string `json:"message"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Default    string   `json:"default"`
}

type TrendsResponse struct {
	Category string                    `json:"category"`
	Products []gwmodel.TrendingProduct `json:"products"`
	Loading  bool                      `json:"loading"`
	// Applied is false when a newer load for this session superseded the request.
	Applied bool `json:"applied"`
}

func newTrendsResponse(v model.TrendsView, applied bool) TrendsResponse {
	products := v.Products
	if products == nil {
		products = []gwmodel.TrendingProduct{}
	}
	return TrendsResponse{Category: v.Category, Products: products, Loading: v.Loading, Applied: applied}
}

type SEORequest struct {
	Description string `json:"description"`
}

type NavigateRequest struct {
	View model.View `json:"view"`
}

// ListingStats describes a generated listing against the advisory limits.
// The listing itself is never altered.
type ListingStats struct {
	TitleLength     int    `json:"titleLength"`
	TitleLimit      int    `json:"titleLimit"`
	TitleOverLimit  bool   `json:"titleOverLimit"`
	KeywordCount    int    `json:"keywordCount"`
	KeywordTarget   int    `json:"keywordTarget"`
	DescriptionText string `json:"descriptionText"`
}

type SEOResponse struct {
	Input  string                      `json:"input"`
	Result gwmodel.ListingOptimization `json:"result"`
	Stats  ListingStats                `json:"stats"`
}

func newListingStats(l gwmodel.ListingOptimization) ListingStats {
	n := utf8.RuneCountInString(l.Title)
	return ListingStats{
		TitleLength:     n,
		TitleLimit:      prompts.TitleLimit,
		TitleOverLimit:  n > prompts.TitleLimit,
		KeywordCount:    len(l.Keywords),
		KeywordTarget:   prompts.KeywordCount,
		DescriptionText: htmlText(l.Description),
	}
}

// htmlText flattens an HTML fragment to whitespace-normalized text, with
// element boundaries treated as word breaks. Input that does not parse is
// returned as is.
func htmlText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	var parts []string
	collectText(doc.Find("body"), &parts)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collectText(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			*parts = append(*parts, c.Text())
		case "script", "style":
		default:
			collectText(c, parts)
		}
	})
}
