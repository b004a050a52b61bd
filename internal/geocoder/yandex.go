package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Yandex resolves addresses through the Yandex Geocoder HTTP API.
type Yandex struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zerolog.Logger
}

func NewYandex(apiKey, baseURL string, timeout time.Duration, logger *zerolog.Logger) *Yandex {
	return &Yandex{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type geocodeResponse struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []struct {
				GeoObject struct {
					Point struct {
						Pos string `json:"pos"`
					} `json:"Point"`
				} `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

// ResolveCoordinates returns the first match for address. Failures are logged
// and reported as ok=false so callers can save the shop without coordinates.
func (y *Yandex) ResolveCoordinates(ctx context.Context, address string) (lat, lon float64, ok bool) {
	if y.apiKey == "" || strings.TrimSpace(address) == "" {
		return 0, 0, false
	}

	lat, lon, err := y.lookup(ctx, address)
	if err != nil {
		y.logger.Warn().Err(err).Str("address", address).Msg("Geocoding failed")
		return 0, 0, false
	}
	return lat, lon, true
}

func (y *Yandex) lookup(ctx context.Context, address string) (float64, float64, error) {
	params := url.Values{}
	params.Set("apikey", y.apiKey)
	params.Set("geocode", address)
	params.Set("format", "json")
	params.Set("results", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, 0, fmt.Errorf("decode geocoder response: %w", err)
	}

	members := body.Response.GeoObjectCollection.FeatureMember
	if len(members) == 0 {
		return 0, 0, fmt.Errorf("no results")
	}

	// pos приходит в виде "долгота широта"
	parts := strings.Fields(members[0].GeoObject.Point.Pos)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected position %q", members[0].GeoObject.Point.Pos)
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse latitude: %w", err)
	}
	return lat, lon, nil
}
