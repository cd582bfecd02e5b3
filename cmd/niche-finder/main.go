// cmd/niche-finder/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"niche-finder/internal/app"
	"niche-finder/internal/common/config"
	"niche-finder/internal/models"
)

var Cmd = &cobra.Command{
	Use:   "niche-finder",
	Short: "Find local businesses matching a niche",
	Long: "Search the Places API around a location, enrich every result with its details, " +
		"keep the businesses that pass the filters and write them to CSV and the configured sinks.",
	SilenceUsage: true,
	RunE:         run,
}

var args struct {
	configPath  string
	place       string
	lat         float64
	lng         float64
	radius      int
	radiusMiles float64
	businessTyp string
	output      string
	maxPages    int
	debug       bool

	withoutWebsite      bool
	operationalOnly     bool
	requirePhone        bool
	requireRecentReview bool
	requireAnyReview    bool
}

func main() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if err := checkFlags(cmd); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if args.debug {
		cfg.Logging.Level = "debug"
	}

	zapLog, log := app.NewLogger(cfg.Logging)
	defer zapLog.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	csvPath := cfg.Export.CSVPath
	if args.output != "" {
		csvPath = args.output
	}

	a, err := app.Build(ctx, cfg, log, app.Options{CSVPath: csvPath})
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := buildRequest(ctx, cmd, a)
	if err != nil {
		return err
	}

	report := a.Pipeline.Run(ctx, req, func(status string) {
		log.Info(status, nil)
	}, nil)

	if len(report.Records) > 0 {
		if werr := a.Sinks.Write(context.WithoutCancel(ctx), report.RunID, report.Records); werr != nil {
			log.Error("Export failed", map[string]interface{}{"error": werr.Error()})
			if report.Err == nil {
				report.Err = werr
			}
		}
	}

	if _, nerr := a.Notifier.RunFinished(context.WithoutCancel(ctx), report.Summary(req)); nerr != nil {
		log.Warn("Run notification failed", map[string]interface{}{"error": nerr.Error()})
	}

	if report.Err != nil {
		return report.Err
	}

	log.Info("Done", map[string]interface{}{
		"runId":   report.RunID,
		"records": len(report.Records),
		"pages":   report.Pages,
		"csv":     csvPath,
	})
	fmt.Fprintln(cmd.OutOrStdout(), resultLine(len(report.Records), csvPath))
	return nil
}

// resultLine is the final line printed for the user. Nothing is written
// when the run found no businesses.
func resultLine(found int, csvPath string) string {
	if found == 0 {
		return "No businesses found based on your criteria."
	}
	return fmt.Sprintf("Found %d businesses, saved to %s", found, csvPath)
}

func checkFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	hasCoords := flags.Changed("lat") || flags.Changed("lng")
	switch {
	case args.place == "" && !hasCoords:
		return fmt.Errorf("either --place or --lat/--lng is required")
	case args.place != "" && hasCoords:
		return fmt.Errorf("--place and --lat/--lng are mutually exclusive")
	case hasCoords && !(flags.Changed("lat") && flags.Changed("lng")):
		return fmt.Errorf("--lat and --lng must be given together")
	case flags.Changed("radius") && flags.Changed("radius-miles"):
		return fmt.Errorf("--radius and --radius-miles are mutually exclusive")
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if args.configPath != "" {
		return config.LoadFromFile(args.configPath)
	}
	return config.Load()
}

func buildRequest(ctx context.Context, cmd *cobra.Command, a *app.App) (models.SearchRequest, error) {
	coords := models.Coordinates{Latitude: args.lat, Longitude: args.lng}
	if args.place != "" {
		resolved, err := a.Geocoder.Resolve(ctx, args.place)
		if err != nil {
			return models.SearchRequest{}, err
		}
		coords = resolved
		a.Logger.Info("Resolved place", map[string]interface{}{
			"place":    args.place,
			"location": coords.String(),
		})
	}

	radius := args.radius
	if cmd.Flags().Changed("radius-miles") {
		radius = models.MilesToMeters(args.radiusMiles)
	}

	req := models.SearchRequest{
		Coordinates:  coords,
		Radius:       radius,
		BusinessType: args.businessTyp,
		MaxPages:     args.maxPages,
		Filters: models.FilterSet{
			WithoutWebsite:      args.withoutWebsite,
			OperationalOnly:     args.operationalOnly,
			RequirePhone:        args.requirePhone,
			RequireRecentReview: args.requireRecentReview,
			RequireAnyReview:    args.requireAnyReview,
		},
	}
	return req, req.Validate()
}

func init() {
	flags := Cmd.Flags()

	flags.StringVarP(&args.configPath, "config", "c", "", "Config file (defaults to configs/config.yaml)")
	flags.StringVarP(&args.place, "place", "p", "", "Place name to geocode, e.g. \"Philadelphia, PA\"")
	flags.Float64Var(&args.lat, "lat", 0, "Latitude of the search center")
	flags.Float64Var(&args.lng, "lng", 0, "Longitude of the search center")
	flags.IntVarP(&args.radius, "radius", "r", 5000, "Search radius in meters (max 50000)")
	flags.Float64Var(&args.radiusMiles, "radius-miles", 0, "Search radius in miles")
	flags.StringVarP(&args.businessTyp, "type", "t", "", "Place type tag, e.g. plumber")
	flags.StringVarP(&args.output, "output", "o", "", "CSV output path (overrides export.csv_path)")
	flags.IntVar(&args.maxPages, "max-pages", 0, "Stop after this many result pages (0 = config limit)")
	flags.BoolVar(&args.debug, "debug", false, "Enable debug logging")

	flags.BoolVar(&args.withoutWebsite, "without-website", false, "Keep only businesses without a website")
	flags.BoolVar(&args.operationalOnly, "operational-only", false, "Drop businesses not marked OPERATIONAL")
	flags.BoolVar(&args.requirePhone, "require-phone", false, "Keep only businesses with a phone number")
	flags.BoolVar(&args.requireRecentReview, "require-recent-review", false, "Keep only businesses reviewed recently")
	flags.BoolVar(&args.requireAnyReview, "require-any-review", false, "Keep only businesses with at least one review")
}
