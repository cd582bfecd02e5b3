// internal/models/business.go
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"niche-finder/internal/common/errors"
)

const (
	// MaxSearchRadius is the largest radius the nearby-search endpoint accepts.
	MaxSearchRadius = 50000

	MetersPerMile = 1609.34

	StatusOperational = "OPERATIONAL"
)

var businessTypePattern = regexp.MustCompile(`^[a-z_]+$`)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String renders the "lat,lng" form the search endpoint expects, always in
// plain decimal notation.
func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

// FilterSet holds the boolean filter flags. The zero value imposes no constraint.
type FilterSet struct {
	WithoutWebsite      bool `json:"withoutWebsite"`
	OperationalOnly     bool `json:"operationalOnly"`
	RequirePhone        bool `json:"requirePhone"`
	RequireRecentReview bool `json:"requireRecentReview"`
	RequireAnyReview    bool `json:"requireAnyReview"`
}

type SearchRequest struct {
	Coordinates  Coordinates `json:"coordinates"`
	Radius       int         `json:"radius"` // meters
	BusinessType string      `json:"businessType,omitempty"`
	Filters      FilterSet   `json:"filters"`
	// MaxPages lowers the configured page cap for this request. Zero keeps it.
	MaxPages int `json:"maxPages,omitempty"`
}

// Validate rejects requests the search endpoint cannot serve. It never
// touches the network.
func (r SearchRequest) Validate() error {
	switch {
	case r.Radius <= 0:
		return errors.NewConfigurationError(fmt.Sprintf("radius must be positive, got %d", r.Radius))
	case r.Radius > MaxSearchRadius:
		return errors.NewConfigurationError(fmt.Sprintf("radius must be at most %d meters, got %d", MaxSearchRadius, r.Radius))
	case r.Coordinates.Latitude < -90 || r.Coordinates.Latitude > 90:
		return errors.NewConfigurationError(fmt.Sprintf("latitude out of range: %g", r.Coordinates.Latitude))
	case r.Coordinates.Longitude < -180 || r.Coordinates.Longitude > 180:
		return errors.NewConfigurationError(fmt.Sprintf("longitude out of range: %g", r.Coordinates.Longitude))
	case r.MaxPages < 0:
		return errors.NewConfigurationError(fmt.Sprintf("max pages must not be negative, got %d", r.MaxPages))
	case r.BusinessType != "" && !businessTypePattern.MatchString(r.BusinessType):
		return errors.NewConfigurationError(fmt.Sprintf("business type must be a lowercase place type tag, got %q", r.BusinessType))
	}
	return nil
}

// MilesToMeters converts a radius in miles to whole meters.
func MilesToMeters(miles float64) int {
	return int(miles * MetersPerMile)
}

// PagedSearchResult is one parsed nearby-search page.
type PagedSearchResult struct {
	PlaceIDs      []string
	NextPageToken string
	HasResults    bool
	Status        string
}

// PlaceDetails is the subset of a details response the filters look at.
// Pointer fields are nil when the API omitted them.
type PlaceDetails struct {
	Name             string
	Phone            *string
	Website          *string
	FormattedAddress *string
	Types            []string
	BusinessStatus   *string
	ReviewTimes      []time.Time
	// HasReviews is false when the reviews field was absent or empty.
	HasReviews bool
}

// BusinessRecord is an accepted, normalized place.
type BusinessRecord struct {
	PlaceID        string      `json:"placeId"`
	Name           string      `json:"name"`
	Phone          *string     `json:"phone,omitempty"`
	Website        *string     `json:"website,omitempty"`
	Address        *string     `json:"address,omitempty"`
	IndustryTags   []string    `json:"industryTags"`
	BusinessStatus *string     `json:"businessStatus,omitempty"`
	ReviewTimes    []time.Time `json:"reviewTimes,omitempty"`
}

// Industry joins the type tags with ", ".
func (b BusinessRecord) Industry() string {
	return strings.Join(b.IndustryTags, ", ")
}

// NewBusinessRecord normalizes details into a record.
func NewBusinessRecord(placeID string, d PlaceDetails) BusinessRecord {
	tags := d.Types
	if tags == nil {
		tags = []string{}
	}
	return BusinessRecord{
		PlaceID:        placeID,
		Name:           d.Name,
		Phone:          d.Phone,
		Website:        d.Website,
		Address:        d.FormattedAddress,
		IndustryTags:   tags,
		BusinessStatus: d.BusinessStatus,
		ReviewTimes:    d.ReviewTimes,
	}
}

// StringOrNA returns the value or "N/A" for a missing field.
func StringOrNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}
