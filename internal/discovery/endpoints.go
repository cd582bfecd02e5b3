// internal/discovery/endpoints.go
package discovery

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"niche-finder/internal/common/errors"
	"niche-finder/internal/models"
)

// DetailFields is the fixed field mask sent with every details lookup.
const DetailFields = "name,formatted_phone_number,website,formatted_address,types,business_status,reviews"

// Endpoints builds Places request URLs.
type Endpoints struct {
	SearchURL  string
	DetailsURL string
	APIKey     string
}

// Search builds a nearby-search URL. pageToken is empty for the first page.
func (e Endpoints) Search(req models.SearchRequest, pageToken string) string {
	q := url.Values{}
	q.Set("location", req.Coordinates.String())
	q.Set("radius", strconv.Itoa(req.Radius))
	if req.BusinessType != "" {
		q.Set("type", req.BusinessType)
	}
	if pageToken != "" {
		q.Set("pagetoken", pageToken)
	}
	q.Set("key", e.APIKey)
	return e.SearchURL + "?" + q.Encode()
}

func (e Endpoints) Details(placeID string) string {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", DetailFields)
	q.Set("key", e.APIKey)
	return e.DetailsURL + "?" + q.Encode()
}

// parseSearchPage extracts place ids and the continuation token. Results
// without a place_id are counted in skipped.
func parseSearchPage(body []byte) (page models.PagedSearchResult, skipped int) {
	results := gjson.GetBytes(body, "results")
	page.HasResults = results.Exists()
	page.Status = gjson.GetBytes(body, "status").String()
	page.NextPageToken = gjson.GetBytes(body, "next_page_token").String()

	for _, r := range results.Array() {
		id := r.Get("place_id").String()
		if id == "" {
			skipped++
			continue
		}
		page.PlaceIDs = append(page.PlaceIDs, id)
	}
	return page, skipped
}

// parseDetails reads the result object of a details response.
func parseDetails(placeID string, body []byte) (models.PlaceDetails, error) {
	result := gjson.GetBytes(body, "result")
	if !result.IsObject() {
		return models.PlaceDetails{}, errors.NewValidationError(placeID, "response has no result object")
	}

	name := result.Get("name")
	if name.Type != gjson.String || name.String() == "" {
		return models.PlaceDetails{}, errors.NewValidationError(placeID, "result has no name")
	}

	d := models.PlaceDetails{
		Name:             name.String(),
		Phone:            optString(result, "formatted_phone_number"),
		Website:          optString(result, "website"),
		FormattedAddress: optString(result, "formatted_address"),
		BusinessStatus:   optString(result, "business_status"),
	}

	for _, t := range result.Get("types").Array() {
		d.Types = append(d.Types, t.String())
	}

	reviews := result.Get("reviews").Array()
	d.HasReviews = len(reviews) > 0
	for _, r := range reviews {
		ts := r.Get("time")
		if ts.Type != gjson.Number {
			continue
		}
		d.ReviewTimes = append(d.ReviewTimes, time.Unix(ts.Int(), 0).UTC())
	}

	return d, nil
}

func optString(r gjson.Result, path string) *string {
	v := r.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := v.String()
	return &s
}

// describeStatus formats a non-OK API status for logs.
func describeStatus(body []byte) string {
	status := gjson.GetBytes(body, "status").String()
	if msg := gjson.GetBytes(body, "error_message").String(); msg != "" {
		return fmt.Sprintf("%s: %s", status, msg)
	}
	return status
}
