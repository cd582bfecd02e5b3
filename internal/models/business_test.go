package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"niche-finder/internal/common/errors"
)

func TestSearchRequestValidate(t *testing.T) {
	base := SearchRequest{
		Coordinates:  Coordinates{Latitude: 39.95, Longitude: -75.16},
		Radius:       10000,
		BusinessType: "plumber",
	}

	tests := []struct {
		name    string
		mutate  func(*SearchRequest)
		wantErr bool
	}{
		{"valid", func(*SearchRequest) {}, false},
		{"no business type", func(r *SearchRequest) { r.BusinessType = "" }, false},
		{"underscore type", func(r *SearchRequest) { r.BusinessType = "roofing_contractor" }, false},
		{"zero radius", func(r *SearchRequest) { r.Radius = 0 }, true},
		{"negative radius", func(r *SearchRequest) { r.Radius = -5 }, true},
		{"radius above maximum", func(r *SearchRequest) { r.Radius = MaxSearchRadius + 1 }, true},
		{"latitude out of range", func(r *SearchRequest) { r.Coordinates.Latitude = 91 }, true},
		{"longitude out of range", func(r *SearchRequest) { r.Coordinates.Longitude = -181 }, true},
		{"type with spaces", func(r *SearchRequest) { r.BusinessType = "car wash" }, true},
		{"type with uppercase", func(r *SearchRequest) { r.BusinessType = "Plumber" }, true},
		{"negative max pages", func(r *SearchRequest) { r.MaxPages = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			err := req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.HasCode(err, errors.ErrCodeConfigurationError))
		})
	}
}

func TestCoordinatesString(t *testing.T) {
	assert.Equal(t, "39.95,-75.16", Coordinates{Latitude: 39.95, Longitude: -75.16}.String())
	assert.Equal(t, "0.00005,-0.0000123", Coordinates{Latitude: 0.00005, Longitude: -0.0000123}.String())
	assert.Equal(t, "0,0", Coordinates{}.String())
}

func TestMilesToMeters(t *testing.T) {
	assert.Equal(t, 9656, MilesToMeters(6))
}

func TestBusinessRecordIndustryAndPlaceholders(t *testing.T) {
	phone := "(215) 555-0100"
	rec := NewBusinessRecord("p1", PlaceDetails{
		Name:  "Acme Plumbing",
		Phone: &phone,
		Types: []string{"plumber", "point_of_interest"},
	})

	assert.Equal(t, "plumber, point_of_interest", rec.Industry())
	assert.Equal(t, phone, StringOrNA(rec.Phone))
	assert.Equal(t, "N/A", StringOrNA(rec.Website))

	empty := NewBusinessRecord("p2", PlaceDetails{Name: "No Tags"})
	assert.Equal(t, "", empty.Industry())
	assert.NotNil(t, empty.IndustryTags)
}
