package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/2beens/trainingload/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
)

const (
	DefaultAPIURL   = "https://www.strava.com/api/v3"
	DefaultAuthURL  = "https://www.strava.com/oauth/authorize"
	DefaultTokenURL = "https://www.strava.com/oauth/token"
	MaxPageSize     = 200
)

var ErrUnauthorized = errors.New("activity source rejected the credentials")

// SummaryActivity is the activity summary returned by the list endpoint.
type SummaryActivity struct {
	ID                   int64    `json:"id"`
	Name                 string   `json:"name"`
	SportType            string   `json:"sport_type"`
	Type                 string   `json:"type"`
	StartDate            string   `json:"start_date"`
	Timezone             string   `json:"timezone"`
	Distance             *float64 `json:"distance"`
	MovingTime           *int64   `json:"moving_time"`
	ElapsedTime          *int64   `json:"elapsed_time"`
	TotalElevationGain   *float64 `json:"total_elevation_gain"`
	AverageSpeed         *float64 `json:"average_speed"`
	MaxSpeed             *float64 `json:"max_speed"`
	AverageCadence       *float64 `json:"average_cadence"`
	AverageTemp          *float64 `json:"average_temp"`
	AverageWatts         *float64 `json:"average_watts"`
	MaxWatts             *float64 `json:"max_watts"`
	WeightedAverageWatts *float64 `json:"weighted_average_watts"`
	Kilojoules           *float64 `json:"kilojoules"`
	AverageHeartrate     *float64 `json:"average_heartrate"`
	MaxHeartrate         *float64 `json:"max_heartrate"`
	ElevHigh             *float64 `json:"elev_high"`
	ElevLow              *float64 `json:"elev_low"`
	SufferScore          *float64 `json:"suffer_score"`
	Trainer              bool     `json:"trainer"`
}

type Params struct {
	APIURL       string
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	// HTTPClient is used for both the token refresh and the API calls
	HTTPClient *http.Client
}

type Client struct {
	apiURL     string
	httpClient *http.Client
}

// NewClient returns a client whose requests carry an access token refreshed
// from the long-lived refresh token whenever it expires.
func NewClient(ctx context.Context, params Params) *Client {
	if params.APIURL == "" {
		params.APIURL = DefaultAPIURL
	}
	if params.AuthURL == "" {
		params.AuthURL = DefaultAuthURL
	}
	if params.TokenURL == "" {
		params.TokenURL = DefaultTokenURL
	}
	if params.HTTPClient == nil {
		params.HTTPClient = http.DefaultClient
	}

	oauthConfig := &oauth2.Config{
		ClientID:     params.ClientID,
		ClientSecret: params.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   params.AuthURL,
			TokenURL:  params.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	// the oauth2 package picks the base client for token refreshes from the context
	ctx = context.WithValue(ctx, oauth2.HTTPClient, params.HTTPClient)
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: params.RefreshToken})

	return &Client{
		apiURL:     params.APIURL,
		httpClient: oauth2.NewClient(ctx, tokenSource),
	}
}

// ListActivities returns one page (1-based) of the athlete's activities,
// newest first, optionally only those started after the given unix time.
func (c *Client) ListActivities(ctx context.Context, page, perPage int, after int64) (_ []SummaryActivity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "strava.activities.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.Int("page", page),
		attribute.Int("per-page", perPage),
	)

	if perPage <= 0 || perPage > MaxPageSize {
		perPage = MaxPageSize
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	if after > 0 {
		query.Set("after", strconv.FormatInt(after, 10))
	}
	activitiesURL := fmt.Sprintf("%s/athlete/activities?%s", c.apiURL, query.Encode())
	log.Debugf("calling activity source: %s", activitiesURL)

	req, err := http.NewRequestWithContext(ctx, "GET", activitiesURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, retrieveErr.Error())
		}
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read activities response bytes: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("list activities: unexpected status %d: %s", resp.StatusCode, respBytes)
	}

	var activities []SummaryActivity
	if err := json.Unmarshal(respBytes, &activities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activities response bytes: %w", err)
	}

	return activities, nil
}
