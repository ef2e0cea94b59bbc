package model

import (
	"context"
	"slices"
	"time"

	gwmodel "github.com/ebaypulse/server/internal/gateway/model"
)

// View names the screen a session is looking at.
type View string

const (
	ViewTrends    View = "trends"
	ViewSEO       View = "seo"
	ViewDashboard View = "dashboard"
)

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	switch v {
	case ViewTrends, ViewSEO, ViewDashboard:
		return true
	}
	return false
}

// DefaultTrendCategory is the category selected for a fresh session.
const DefaultTrendCategory = "Electronics"

// Categories lists the selectable trend categories in display order.
var Categories = []string{
	"Electronics", "Home & Garden", "Fashion", "Toys & Hobbies", "Collectibles", "Auto Parts", "Health & Beauty",
}

// TrendsView is the trend finder state. Products are replaced wholesale.
type TrendsView struct {
	Category     string                    `json:"category"`
	Products     []gwmodel.TrendingProduct `json:"products"`
	Loading      bool                      `json:"loading"`
	LoadingSince *time.Time                `json:"loadingSince,omitempty"`
	// Seq is the sequence of the most recently issued load; only its result is applied.
	Seq       int64      `json:"seq"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// SEOView is the listing optimizer state.
type SEOView struct {
	Input        string                       `json:"input"`
	Source       *gwmodel.TrendingProduct     `json:"source,omitempty"`
	Result       *gwmodel.ListingOptimization `json:"result,omitempty"`
	Loading      bool                         `json:"loading"`
	LoadingSince *time.Time                   `json:"loadingSince,omitempty"`
	// Seq is the sequence of the most recently started optimization.
	Seq       int64      `json:"seq"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Session is the transient per-client view state.
type Session struct {
	ID         string     `json:"id"`
	ActiveView View       `json:"activeView"`
	Trends     TrendsView `json:"trends"`
	SEO        SEOView    `json:"seo"`
}

// NewSession returns the state of a client that has just opened the app.
func NewSession(id string) *Session {
	return &Session{
		ID:         id,
		ActiveView: ViewTrends,
		Trends: TrendsView{
			Category: DefaultTrendCategory,
			Products: []gwmodel.TrendingProduct{},
		},
	}
}

// Clone returns a deep copy so stored state is never aliased by callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Trends.Products = slices.Clone(s.Trends.Products)
	c.Trends.LoadingSince = cloneTime(s.Trends.LoadingSince)
	c.Trends.UpdatedAt = cloneTime(s.Trends.UpdatedAt)
	c.SEO.LoadingSince = cloneTime(s.SEO.LoadingSince)
	c.SEO.UpdatedAt = cloneTime(s.SEO.UpdatedAt)
	if s.SEO.Source != nil {
		src := *s.SEO.Source
		c.SEO.Source = &src
	}
	if s.SEO.Result != nil {
		res := *s.SEO.Result
		res.Keywords = slices.Clone(s.SEO.Result.Keywords)
		c.SEO.Result = &res
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SessionRepository stores sessions. Update must apply fn atomically with
// respect to other Updates of the same session; when fn returns an error
// nothing is written and the error is returned unchanged.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
}
