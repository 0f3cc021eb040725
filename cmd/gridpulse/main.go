package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"gridpulse/internal/api"
	"gridpulse/internal/ingest"
	"gridpulse/internal/models"
	"gridpulse/internal/refresh"
	"gridpulse/internal/sim"
)

var cli struct {
	Listen   string        `help:"HTTP listen address." default:":8080" env:"GRIDPULSE_LISTEN"`
	Interval time.Duration `help:"Refresh interval." default:"60s" env:"GRIDPULSE_INTERVAL"`
	Demo     bool          `help:"Serve deterministic simulated telemetry instead of live provider data." env:"GRIDPULSE_DEMO"`
	Once     bool          `help:"Fetch one snapshot, print it as JSON, and exit."`

	WattTimeUser     string `help:"WattTime username." env:"WATTTIME_USER"`
	WattTimePassword string `help:"WattTime password." env:"WATTTIME_PASSWORD"`
	WattTimeURL      string `help:"WattTime base URL override." env:"WATTTIME_URL" hidden:""`
	EIAKey           string `help:"EIA API key." env:"EIA_API_KEY"`
	EIAURL           string `help:"EIA base URL override." env:"EIA_URL" hidden:""`
}

func main() {
	ktx := kong.Parse(&cli,
		kong.Name("gridpulse"),
		kong.Description("Grid telemetry backend for the "+models.Region+" dashboard."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	var source refresh.Source
	if !cli.Demo {
		if cli.WattTimeUser == "" || cli.WattTimePassword == "" || cli.EIAKey == "" {
			ktx.Fatalf("live mode requires WATTTIME_USER, WATTTIME_PASSWORD and EIA_API_KEY (or pass --demo)")
		}
		source = ingest.NewClient(
			ingest.NewWattTimeClient(cli.WattTimeURL, cli.WattTimeUser, cli.WattTimePassword),
			ingest.NewEIAClient(cli.EIAURL, cli.EIAKey),
		)
	}

	if cli.Once {
		if err := printOnce(source); err != nil {
			log.Fatalf("snapshot: %v", err)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	controller := refresh.New(source, cli.Demo, cli.Interval)
	server := api.NewServer(controller, cli.Listen)

	if cli.Demo {
		log.Printf("gridpulse: demo mode, serving simulated telemetry for %s", models.Region)
	} else {
		log.Printf("gridpulse: live mode, polling providers every %s", cli.Interval)
	}

	go controller.Run(ctx)

	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// printOnce fetches a single snapshot in the configured mode and writes it
// to stdout.
func printOnce(source refresh.Source) error {
	var (
		snap *models.GridSnapshot
		err  error
	)
	if source == nil {
		snap = sim.Snapshot(time.Now())
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		snap, err = source.Snapshot(ctx)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
