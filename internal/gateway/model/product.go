package model

// TrendingProduct is one trending listing as reported by the model.
// Numeric-looking fields stay strings because the model may answer with
// magnitude text such as "500+" or "1.2k".
type TrendingProduct struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Price              string `json:"price"`
	SoldCount          string `json:"soldCount"`
	Watchers           string `json:"watchers"`
	SellerRating       string `json:"sellerRating"`
	Category           string `json:"category"`
	ImageURL           string `json:"imageUrl"`
	URL                string `json:"url"`
	DescriptionSnippet string `json:"descriptionSnippet"`
}

// ListingOptimization is the SEO copy generated for one product.
// Description is an HTML fragment.
type ListingOptimization struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Keywords      []string `json:"keywords"`
	AffiliateHook string   `json:"affiliateHook"`
}
