package traffic

import (
	"commute-forecast/internal/domain"
	"commute-forecast/internal/platform/obs"
	"commute-forecast/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

var (
	// The response had no duration_in_traffic for the pair, which happens when
	// the departure time is missing or traffic data is unavailable.
	ErrNoTrafficDuration = errors.New("distance matrix: response has no duration_in_traffic")
	// The response did not contain exactly one origin/destination element.
	ErrMalformedResponse = errors.New("distance matrix: malformed response")
)

type Options struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	TrafficModel string
	HTTPClient   *http.Client

	// First wait between retries; doubles on every attempt.
	RetryInitialInterval time.Duration
}

// DistanceMatrixPredictor implements DurationPredictor using the Google
// Distance Matrix API.
//
// It issues one request per departure (a single origin and destination),
// validates the response shape, and retries transient failures (network
// errors, 429/5xx responses, OVER_QUERY_LIMIT) with exponential backoff.
//
// The predictor is safe for concurrent use.
type DistanceMatrixPredictor struct {
	session      *http.Client
	apiKey       string
	baseURL      string
	trafficModel string
	maxRetries   int
	retryInitial time.Duration
}

func NewDistanceMatrixPredictor(apiKey string, opts Options) (*DistanceMatrixPredictor, error) {
	if apiKey == "" {
		return nil, errors.New("distance matrix api key is empty")
	}

	p := &DistanceMatrixPredictor{
		session:      opts.HTTPClient,
		apiKey:       apiKey,
		baseURL:      opts.BaseURL,
		trafficModel: opts.TrafficModel,
		maxRetries:   opts.MaxRetries,
		retryInitial: opts.RetryInitialInterval,
	}

	if p.session == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		p.session = &http.Client{Timeout: timeout}
	}
	if p.baseURL == "" {
		p.baseURL = defaultBaseURL
	}
	if p.maxRetries < 0 {
		p.maxRetries = 0
	}
	if p.retryInitial <= 0 {
		p.retryInitial = 200 * time.Millisecond
	}

	return p, nil
}

type valueText struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

type matrixElement struct {
	Status            string     `json:"status"`
	Distance          *valueText `json:"distance"`
	Duration          *valueText `json:"duration"`
	DurationInTraffic *valueText `json:"duration_in_traffic"`
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []matrixElement `json:"elements"`
	} `json:"rows"`
}

// PredictDuration returns the traffic-aware duration for leaving origin at departAt.
func (p *DistanceMatrixPredictor) PredictDuration(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	departAt time.Time,
) (_ ports.Prediction, err error) {
	defer obs.Time(ctx, "distancematrix.PredictDuration")(&err)

	if departAt.IsZero() {
		return ports.Prediction{}, errors.New("predict duration: departure time must be set")
	}

	var out ports.Prediction
	err = p.withRetry(ctx, func() error {
		req, err := p.newRequest(ctx, origin, destination, departAt)
		if err != nil {
			return permanent(err)
		}

		resp, err := p.do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var mr matrixResponse
		if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
			return permanent(fmt.Errorf("decode distance matrix response: %w", err))
		}

		pred, err := extractPrediction(mr)
		if err != nil {
			return err
		}
		out = pred
		return nil
	})
	if err != nil {
		return ports.Prediction{}, fmt.Errorf(
			"predict duration %s -> %s at %s: %w",
			origin, destination, departAt.Format(time.RFC3339), err,
		)
	}

	return out, nil
}

func (p *DistanceMatrixPredictor) newRequest(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	departAt time.Time,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("origins", origin.String())
	q.Set("destinations", destination.String())
	q.Set("departure_time", strconv.FormatInt(departAt.Unix(), 10))
	if p.trafficModel != "" {
		q.Set("traffic_model", p.trafficModel)
	}
	q.Set("key", p.apiKey)
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/json")

	return req, nil
}

// extractPrediction validates the payload and pulls out the first
// origin/destination element.
func extractPrediction(mr matrixResponse) (ports.Prediction, error) {
	if mr.Status != "OK" {
		return ports.Prediction{}, classify(&apiStatusError{Status: mr.Status, Message: mr.ErrorMessage})
	}

	if len(mr.Rows) != 1 || len(mr.Rows[0].Elements) != 1 {
		n := 0
		if len(mr.Rows) > 0 {
			n = len(mr.Rows[0].Elements)
		}
		return ports.Prediction{}, permanent(fmt.Errorf(
			"%w: expected 1x1 matrix; got rows=%d elements=%d",
			ErrMalformedResponse, len(mr.Rows), n,
		))
	}

	el := mr.Rows[0].Elements[0]
	if el.Status != "OK" {
		return ports.Prediction{}, permanent(&elementStatusError{Status: el.Status})
	}

	if el.DurationInTraffic == nil {
		return ports.Prediction{}, permanent(ErrNoTrafficDuration)
	}
	if el.DurationInTraffic.Value <= 0 {
		return ports.Prediction{}, permanent(fmt.Errorf(
			"%w: non-positive duration_in_traffic %d",
			ErrMalformedResponse, el.DurationInTraffic.Value,
		))
	}

	pred := ports.Prediction{DurationInTrafficSeconds: el.DurationInTraffic.Value}
	if el.Duration != nil {
		pred.DurationSeconds = el.Duration.Value
	}
	if el.Distance != nil {
		pred.DistanceMeters = el.Distance.Value
	}

	return pred, nil
}
