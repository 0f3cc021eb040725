package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"gridpulse/internal/httputil"
	"gridpulse/internal/metrics"
	"gridpulse/internal/models"
)

const defaultEIAURL = "https://api.eia.gov/v2"

// Routes under /v2 for the three tabular series.
const (
	routeGeneration  = "electricity/rto/fuel-type-data"
	routeDemand      = "electricity/rto/region-data"
	routeInterchange = "electricity/rto/interchange-data"
)

// Row caps per query. EIA returns one row per (period, category) pair, so a
// 24-hour hourly window needs hours x categories: the fuel-type table runs
// to a dozen-odd fuels, demand has two row types, interchange one row per
// intertie.
const (
	generationLength  = 360
	demandLength      = 72
	interchangeLength = 160
)

// EIAClient queries the EIA v2 tabular API for one balancing authority.
type EIAClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewEIAClient(baseURL, apiKey string) *EIAClient {
	if baseURL == "" {
		baseURL = defaultEIAURL
	}
	return &EIAClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  httputil.NewClient(),
	}
}

// eiaRow is the union of the row shapes the three routes return; each route
// fills its own category column. Values arrive as strings.
type eiaRow struct {
	Period   string `json:"period"`
	Fueltype string `json:"fueltype"`
	Type     string `json:"type"`
	ToBA     string `json:"toba"`
	Value    string `json:"value"`
}

type eiaResponse struct {
	Response struct {
		Data []eiaRow `json:"data"`
	} `json:"response"`
}

type tableQuery struct {
	route  string
	facets map[string][]string
	length int
}

// Generation returns the fuel mix series for a region, hourly, ascending.
func (c *EIAClient) Generation(ctx context.Context, region string) ([]models.GenerationPoint, error) {
	rows, err := c.fetchRows(ctx, tableQuery{
		route:  routeGeneration,
		facets: map[string][]string{"respondent": {region}},
		length: generationLength,
	})
	if err != nil {
		return nil, err
	}
	return pivotGeneration(rows), nil
}

// Demand returns actual and day-ahead forecast demand, hourly, ascending.
func (c *EIAClient) Demand(ctx context.Context, region string) ([]models.DemandPoint, error) {
	rows, err := c.fetchRows(ctx, tableQuery{
		route:  routeDemand,
		facets: map[string][]string{"respondent": {region}, "type": {rowTypeDemand, rowTypeForecast}},
		length: demandLength,
	})
	if err != nil {
		return nil, err
	}
	return pivotDemand(rows), nil
}

// Interchange returns per-intertie flows out of a region, hourly, ascending.
// The intertie set is the fixed neighbor list, faceted into the query so the
// response never carries flows to authorities the dashboard does not show.
func (c *EIAClient) Interchange(ctx context.Context, region string) ([]models.InterchangePoint, error) {
	rows, err := c.fetchRows(ctx, tableQuery{
		route:  routeInterchange,
		facets: map[string][]string{"fromba": {region}, "toba": models.NeighborRegions},
		length: interchangeLength,
	})
	if err != nil {
		return nil, err
	}
	return pivotInterchange(rows), nil
}

// fetchRows runs one tabular query, retrying rate limits and server errors.
// A body that decodes but carries no response.data yields an empty row set:
// EIA does this during maintenance windows, and a blank series degrades
// better than a failed refresh.
func (c *EIAClient) fetchRows(ctx context.Context, q tableQuery) ([]eiaRow, error) {
	reqURL, err := c.queryURL(q)
	if err != nil {
		return nil, fmt.Errorf("eia %s: %w", q.route, err)
	}

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("eia %s: %w", q.route, err))
		}
		req.Header.Set("User-Agent", httputil.UserAgent)

		started := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("eia %s: %w", q.route, err))
		}
		defer resp.Body.Close()

		metrics.ProviderLatency.WithLabelValues("eia", q.route).Observe(time.Since(started).Seconds())
		metrics.ProviderCalls.WithLabelValues("eia", q.route, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fetchErr := &FetchError{
				Provider: "eia",
				Endpoint: q.route,
				Status:   resp.StatusCode,
				Body:     string(b),
			}
			// Retry rate limits and server errors only.
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
				return fetchErr
			}
			return backoff.Permanent(fetchErr)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("eia %s: read body: %w", q.route, err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 20 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}

	var data eiaResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("eia %s: unmarshal: %w", q.route, err)
	}
	return data.Response.Data, nil
}

func (c *EIAClient) queryURL(q tableQuery) (string, error) {
	u, err := url.Parse(c.baseURL + "/" + q.route + "/data/")
	if err != nil {
		return "", err
	}

	vals := u.Query()
	vals.Set("api_key", c.apiKey)
	vals.Set("frequency", "hourly")
	vals.Set("data[0]", "value")
	vals.Set("sort[0][column]", "period")
	vals.Set("sort[0][direction]", "desc")
	vals.Set("length", strconv.Itoa(q.length))
	for field, accepted := range q.facets {
		for _, v := range accepted {
			vals.Add(fmt.Sprintf("facets[%s][]", field), v)
		}
	}
	u.RawQuery = vals.Encode()
	return u.String(), nil
}
