package ingest

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"gridpulse/internal/models"
)

// Client assembles complete snapshots from both providers. A snapshot is all
// or nothing: any failing sub-fetch rejects the whole assembly so consumers
// never see a half-populated grid.
type Client struct {
	signal *WattTimeClient
	tables *EIAClient
	region string
}

func NewClient(signal *WattTimeClient, tables *EIAClient) *Client {
	return &Client{signal: signal, tables: tables, region: models.Region}
}

// Snapshot runs the four upstream fetches concurrently and fails fast on
// the first error. Token acquisition happens inside the signal fetch, which
// keeps the token before signal ordering without serializing the EIA
// queries behind the login.
func (c *Client) Snapshot(ctx context.Context) (*models.GridSnapshot, error) {
	var (
		carbon      []models.CarbonPoint
		generation  []models.GenerationPoint
		demand      []models.DemandPoint
		interchange []models.InterchangePoint
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		carbon, err = c.signal.SignalIndex(ctx, c.region)
		return err
	})
	g.Go(func() error {
		var err error
		generation, err = c.tables.Generation(ctx, c.region)
		return err
	})
	g.Go(func() error {
		var err error
		demand, err = c.tables.Demand(ctx, c.region)
		return err
	})
	g.Go(func() error {
		var err error
		interchange, err = c.tables.Interchange(ctx, c.region)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	carbon = padCarbon(carbon, generation)
	return models.NewSnapshot(carbon, generation, demand, interchange), nil
}

// padCarbon spreads a single-point intensity response flat across the
// generation timestamps. The signal provider's free tier returns only the
// current point, and a one-point series would otherwise collapse the
// dashboard's carbon chart.
func padCarbon(carbon []models.CarbonPoint, generation []models.GenerationPoint) []models.CarbonPoint {
	if len(carbon) != 1 || len(generation) == 0 {
		return carbon
	}
	log.Printf("ingest: padding single carbon point across %d generation timestamps", len(generation))
	value := carbon[0].Value
	padded := make([]models.CarbonPoint, len(generation))
	for i, p := range generation {
		padded[i] = models.CarbonPoint{Timestamp: p.Timestamp, Value: value}
	}
	return padded
}
