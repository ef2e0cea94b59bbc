package views

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	errx "github.com/ebaypulse/server/internal/core/error"
	gwmodel "github.com/ebaypulse/server/internal/gateway/model"
	"github.com/ebaypulse/server/internal/metrics"
	"github.com/ebaypulse/server/internal/views/model"
	logx "github.com/ebaypulse/server/pkg/logger"
)

// DefaultInFlightLease bounds how long an abandoned in-flight flag blocks a
// session, e.g. after a crash between marking and clearing it.
const DefaultInFlightLease = 5 * time.Minute

// Gateway is the model access the views need.
type Gateway interface {
	FetchTrendingProducts(ctx context.Context, category string) []gwmodel.TrendingProduct
	GenerateSEOContent(ctx context.Context, productDescription string) (gwmodel.ListingOptimization, error)
}

// Config tunes the service.
type Config struct {
	InFlightLease time.Duration
}

// Service owns per-session view state and runs the two flows against the gateway.
type Service struct {
	repo  model.SessionRepository
	gw    Gateway
	lease time.Duration
	now   func() time.Time
}

func NewService(repo model.SessionRepository, gw Gateway, cfg Config) *Service {
	lease := cfg.InFlightLease
	if lease <= 0 {
		lease = DefaultInFlightLease
	}
	return &Service{repo: repo, gw: gw, lease: lease, now: time.Now}
}

// TrendsResult is the outcome of a trend load. Applied is false when a newer
// load superseded this one; View then reflects the newer state.
type TrendsResult struct {
	View    model.TrendsView `json:"view"`
	Applied bool             `json:"applied"`
}

var errSuperseded = errors.New("superseded by a newer request")

// Snapshot returns the current state of a session.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (*model.Session, error) {
	return s.repo.Get(ctx, sessionID)
}

// Navigate switches the active view.
func (s *Service) Navigate(ctx context.Context, sessionID string, view model.View) (*model.Session, error) {
	if !view.Valid() {
		return nil, errx.New(fmt.Errorf("unknown view %q", view), http.StatusBadRequest, "unknown view")
	}
	return s.repo.Update(ctx, sessionID, func(sess *model.Session) error {
		sess.ActiveView = view
		return nil
	})
}

// LoadTrends selects category (blank keeps the current one) and loads its
// trending products. Refreshing the category that is already loading is
// rejected; switching category while a load is outstanding is allowed and
// the older response is dropped when it resolves.
func (s *Service) LoadTrends(ctx context.Context, sessionID, category string) (*TrendsResult, error) {
	category = strings.TrimSpace(category)

	var (
		seq    int64
		target string
	)
	_, err := s.repo.Update(ctx, sessionID, func(sess *model.Session) error {
		target = category
		if target == "" {
			target = sess.Trends.Category
		}
		if sess.Trends.Loading && sess.Trends.Category == target && !s.expired(sess.Trends.LoadingSince) {
			return errx.ErrActionInFlight
		}
		sess.Trends.Seq++
		seq = sess.Trends.Seq
		sess.Trends.Category = target
		sess.Trends.Loading = true
		sess.Trends.LoadingSince = s.stamp()
		return nil
	})
	if err != nil {
		return nil, err
	}

	// a caller going away must not turn into an empty result
	ctx = context.WithoutCancel(ctx)
	products := s.gw.FetchTrendingProducts(ctx, target)

	sess, err := s.repo.Update(ctx, sessionID, func(sess *model.Session) error {
		if sess.Trends.Seq != seq {
			return errSuperseded
		}
		sess.Trends.Products = products
		sess.Trends.Loading = false
		sess.Trends.LoadingSince = nil
		sess.Trends.UpdatedAt = s.stamp()
		return nil
	})
	if errors.Is(err, errSuperseded) {
		metrics.StaleTrendResults.Inc()
		logx.Debug().Str("session_id", sessionID).Int64("seq", seq).Str("category", target).Msg("Dropping superseded trend result")
		current, gerr := s.repo.Get(ctx, sessionID)
		if gerr != nil {
			return nil, gerr
		}
		return &TrendsResult{View: current.Trends, Applied: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &TrendsResult{View: sess.Trends, Applied: true}, nil
}

// SelectProduct hands a trending product to the optimizer by value: the SEO
// input is seeded from it and the optimizer becomes the active view.
func (s *Service) SelectProduct(ctx context.Context, sessionID string, p gwmodel.TrendingProduct) (*model.Session, error) {
	return s.repo.Update(ctx, sessionID, func(sess *model.Session) error {
		if sess.SEO.Loading && !s.expired(sess.SEO.LoadingSince) {
			return errx.ErrActionInFlight
		}
		src := p
		sess.SEO.Source = &src
		sess.SEO.Input = DescribeProduct(p)
		sess.SEO.Result = nil
		sess.SEO.Error = ""
		sess.ActiveView = model.ViewSEO
		return nil
	})
}

// Optimize generates listing copy for input. Blank input is rejected before
// any remote call. On failure the previous result is cleared and the error
// is kept on the view so it can be shown to the user. A run started after
// this one's lease expired owns the view; this run's outcome is then only
// returned to its caller.
func (s *Service) Optimize(ctx context.Context, sessionID, input string) (*model.SEOView, error) {
	if strings.TrimSpace(input) == "" {
		return nil, errx.ErrEmptyDescription
	}

	var seq int64
	_, err := s.repo.Update(ctx, sessionID, func(sess *model.Session) error {
		if sess.SEO.Loading && !s.expired(sess.SEO.LoadingSince) {
			return errx.ErrActionInFlight
		}
		sess.SEO.Seq++
		seq = sess.SEO.Seq
		sess.SEO.Input = input
		sess.SEO.Loading = true
		sess.SEO.LoadingSince = s.stamp()
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	result, genErr := s.gw.GenerateSEOContent(ctx, input)
	if genErr != nil {
		logx.Error().Err(genErr).Str("session_id", sessionID).Msg("SEO generation failed")
	}

	sess, err := s.repo.Update(ctx, sessionID, func(sess *model.Session) error {
		if sess.SEO.Seq != seq {
			return errSuperseded
		}
		sess.SEO.Loading = false
		sess.SEO.LoadingSince = nil
		sess.SEO.UpdatedAt = s.stamp()
		if genErr != nil {
			_, msg := errx.StatusOf(genErr)
			sess.SEO.Result = nil
			sess.SEO.Error = msg
			return nil
		}
		res := result
		sess.SEO.Result = &res
		sess.SEO.Error = ""
		return nil
	})
	if errors.Is(err, errSuperseded) {
		logx.Debug().Str("session_id", sessionID).Int64("seq", seq).Msg("Dropping superseded SEO result")
		if genErr != nil {
			return nil, genErr
		}
		return &model.SEOView{Input: input, Result: &result}, nil
	}
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return &sess.SEO, genErr
	}
	return &sess.SEO, nil
}

func (s *Service) stamp() *time.Time {
	t := s.now()
	return &t
}

func (s *Service) expired(since *time.Time) bool {
	return since != nil && s.now().Sub(*since) > s.lease
}

// DescribeProduct renders a trending product as optimizer input.
func DescribeProduct(p gwmodel.TrendingProduct) string {
	var b strings.Builder
	b.WriteString(p.Title)
	if p.Category != "" {
		b.WriteString("\nCategory: " + p.Category)
	}
	if p.Price != "" {
		b.WriteString("\nPrice: " + p.Price)
	}
	if p.DescriptionSnippet != "" {
		b.WriteString("\n" + p.DescriptionSnippet)
	}
	return b.String()
}
