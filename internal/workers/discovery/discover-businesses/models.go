// internal/workers/discovery/discover-businesses/models.go
package discoverbusinesses

import "niche-finder/internal/models"

type Input struct {
	Location     *models.Coordinates `json:"location,omitempty"`
	PlaceName    string              `json:"placeName,omitempty"`
	Radius       int                 `json:"radius,omitempty"` // meters
	RadiusMiles  float64             `json:"radiusMiles,omitempty"`
	BusinessType string              `json:"businessType,omitempty"`
	Filters      models.FilterSet    `json:"filters"`
	MaxPages     int                 `json:"maxPages,omitempty"`
}

// RadiusMeters prefers an explicit meter radius over miles.
func (in *Input) RadiusMeters() int {
	if in.Radius > 0 {
		return in.Radius
	}
	return models.MilesToMeters(in.RadiusMiles)
}

type Output struct {
	RunID         string                  `json:"runId"`
	Status        string                  `json:"status"`
	Records       []models.BusinessRecord `json:"records"`
	RecordCount   int                     `json:"recordCount"`
	Pages         int                     `json:"pages"`
	Notifications []models.Notification   `json:"notifications,omitempty"`
}
