// internal/common/geocoding/nominatim.go
package geocoding

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"niche-finder/internal/common/errors"
	"niche-finder/internal/common/http"
	"niche-finder/internal/models"
)

// Geocoder resolves a free-form place name to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, placeName string) (models.Coordinates, error)
}

type Nominatim struct {
	baseURL string
	client  http.Fetcher
}

// NewNominatim builds a forward geocoder. client should send a descriptive
// User-Agent; the public instance rejects anonymous traffic.
func NewNominatim(baseURL string, client http.Fetcher) *Nominatim {
	return &Nominatim{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (n *Nominatim) Resolve(ctx context.Context, placeName string) (models.Coordinates, error) {
	placeName = strings.TrimSpace(placeName)
	if placeName == "" {
		return models.Coordinates{}, errors.NewGeocodingNotFoundError(placeName)
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", placeName)

	body, err := n.client.FetchJSON(ctx, n.baseURL+"/search?"+q.Encode())
	if err != nil {
		return models.Coordinates{}, errors.NewGeocodingUnavailableError(placeName, err)
	}

	first := gjson.GetBytes(body, "0")
	if !first.Exists() {
		return models.Coordinates{}, errors.NewGeocodingNotFoundError(placeName)
	}

	// Nominatim encodes coordinates as strings.
	lat, err := strconv.ParseFloat(first.Get("lat").String(), 64)
	if err != nil {
		return models.Coordinates{}, errors.NewGeocodingUnavailableError(placeName, fmt.Errorf("bad lat: %w", err))
	}
	lon, err := strconv.ParseFloat(first.Get("lon").String(), 64)
	if err != nil {
		return models.Coordinates{}, errors.NewGeocodingUnavailableError(placeName, fmt.Errorf("bad lon: %w", err))
	}

	return models.Coordinates{Latitude: lat, Longitude: lon}, nil
}
