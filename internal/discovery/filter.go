// internal/discovery/filter.go
package discovery

import (
	"time"

	"niche-finder/internal/models"
)

const DefaultRecentReviewWindow = 30 * 24 * time.Hour

// Names reported for the first failing check.
const (
	CheckWithoutWebsite      = "withoutWebsite"
	CheckOperationalOnly     = "operationalOnly"
	CheckRequirePhone        = "requirePhone"
	CheckRequireRecentReview = "requireRecentReview"
	CheckRequireAnyReview    = "requireAnyReview"
)

// FilterChain evaluates a FilterSet against place details. It has no side
// effects; for a fixed clock the same input always gives the same answer.
type FilterChain struct {
	RecentReviewWindow time.Duration
	Now                func() time.Time
}

func NewFilterChain(window time.Duration) FilterChain {
	if window <= 0 {
		window = DefaultRecentReviewWindow
	}
	return FilterChain{RecentReviewWindow: window, Now: time.Now}
}

func (f FilterChain) Accepts(d models.PlaceDetails, fs models.FilterSet) bool {
	ok, _ := f.Evaluate(d, fs)
	return ok
}

// Evaluate runs the enabled checks in fixed order and stops at the first
// failure, returning its name.
func (f FilterChain) Evaluate(d models.PlaceDetails, fs models.FilterSet) (bool, string) {
	if fs.WithoutWebsite && nonEmpty(d.Website) {
		return false, CheckWithoutWebsite
	}
	if fs.OperationalOnly && d.BusinessStatus != nil && *d.BusinessStatus != models.StatusOperational {
		return false, CheckOperationalOnly
	}
	// Only presence counts; an empty number still passes.
	if fs.RequirePhone && d.Phone == nil {
		return false, CheckRequirePhone
	}
	if fs.RequireRecentReview && !f.hasRecentReview(d.ReviewTimes) {
		return false, CheckRequireRecentReview
	}
	if fs.RequireAnyReview && !d.HasReviews {
		return false, CheckRequireAnyReview
	}
	return true, ""
}

func (f FilterChain) hasRecentReview(times []time.Time) bool {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	window := f.RecentReviewWindow
	if window <= 0 {
		window = DefaultRecentReviewWindow
	}

	cutoff := now().Add(-window)
	for _, t := range times {
		if t.After(cutoff) {
			return true
		}
	}
	return false
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
