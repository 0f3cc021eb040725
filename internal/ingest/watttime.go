package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"gridpulse/internal/httputil"
	"gridpulse/internal/metrics"
	"gridpulse/internal/models"
)

const (
	defaultWattTimeURL = "https://api.watttime.org"
	signalType         = "co2_moer"

	// WattTime does not return an expiry with the token; document it as
	// 25 minutes of validity and renew 5 minutes early so a token never
	// expires mid-request.
	tokenValidity = 25 * time.Minute
	tokenMargin   = 5 * time.Minute
)

// WattTimeClient fetches the marginal emissions signal index. The bearer
// token from /login is cached on the instance and reused until it nears
// expiry, so steady-state polling performs one login per validity window.
type WattTimeClient struct {
	username string
	password string
	client   *resty.Client
	now      func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewWattTimeClient(baseURL, username, password string) *WattTimeClient {
	if baseURL == "" {
		baseURL = defaultWattTimeURL
	}
	return &WattTimeClient{
		username: username,
		password: password,
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(httputil.DefaultTimeout).
			SetHeader("User-Agent", httputil.UserAgent),
		now: time.Now,
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

type signalResponse struct {
	Data []signalRow `json:"data"`
}

type signalRow struct {
	PointTime string  `json:"point_time"`
	Value     float64 `json:"value"`
}

// ensureToken returns the cached token or performs the basic-auth login.
func (w *WattTimeClient) ensureToken(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.token != "" && w.now().Before(w.expiry) {
		return w.token, nil
	}

	started := time.Now()
	resp, err := w.client.R().
		SetContext(ctx).
		SetBasicAuth(w.username, w.password).
		Get("/login")
	if err != nil {
		return "", fmt.Errorf("watttime login: %w", err)
	}
	metrics.ProviderLatency.WithLabelValues("watttime", "login").Observe(time.Since(started).Seconds())
	metrics.ProviderCalls.WithLabelValues("watttime", "login", strconv.Itoa(resp.StatusCode())).Inc()

	if !resp.IsSuccess() {
		return "", &AuthError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil {
		return "", fmt.Errorf("watttime login: unmarshal: %w", err)
	}
	if tr.Token == "" {
		return "", fmt.Errorf("watttime login: empty token in response")
	}

	w.token = tr.Token
	w.expiry = w.now().Add(tokenValidity - tokenMargin)
	return w.token, nil
}

// SignalIndex returns the current emissions index points for a region in
// ascending timestamp order. Free-tier accounts usually get a single point;
// the assembler pads that case against the generation series.
func (w *WattTimeClient) SignalIndex(ctx context.Context, region string) ([]models.CarbonPoint, error) {
	token, err := w.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := w.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"region":      region,
			"signal_type": signalType,
		}).
		Get("/v3/signal-index")
	if err != nil {
		return nil, fmt.Errorf("watttime signal-index: %w", err)
	}
	metrics.ProviderLatency.WithLabelValues("watttime", "signal-index").Observe(time.Since(started).Seconds())
	metrics.ProviderCalls.WithLabelValues("watttime", "signal-index", strconv.Itoa(resp.StatusCode())).Inc()

	if !resp.IsSuccess() {
		return nil, &FetchError{
			Provider: "watttime",
			Endpoint: "signal-index",
			Status:   resp.StatusCode(),
			Body:     string(resp.Body()),
		}
	}

	var sr signalResponse
	if err := json.Unmarshal(resp.Body(), &sr); err != nil {
		return nil, fmt.Errorf("watttime signal-index: unmarshal: %w", err)
	}

	points := make([]models.CarbonPoint, 0, len(sr.Data))
	for _, row := range sr.Data {
		ts, err := time.Parse(time.RFC3339, row.PointTime)
		if err != nil {
			continue // malformed rows are dropped, not fatal
		}
		points = append(points, models.CarbonPoint{
			Timestamp: ts.UTC(),
			Value:     clampIndex(int(math.Round(row.Value))),
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return dedupeCarbon(points), nil
}

func clampIndex(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// dedupeCarbon collapses rows sharing a timestamp, keeping the later row,
// which is the provider's corrected value when it re-sends a point.
func dedupeCarbon(points []models.CarbonPoint) []models.CarbonPoint {
	if len(points) < 2 {
		return points
	}
	out := points[:1]
	for _, p := range points[1:] {
		if p.Timestamp.Equal(out[len(out)-1].Timestamp) {
			out[len(out)-1] = p
		} else {
			out = append(out, p)
		}
	}
	return out
}
