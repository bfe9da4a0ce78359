// Command searchctl runs council searches and index maintenance from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/schemalabz/opencouncil-sub005/internal/app"
	"github.com/schemalabz/opencouncil-sub005/internal/config"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/request"
	logpkg "github.com/schemalabz/opencouncil-sub005/internal/logger"
	"github.com/schemalabz/opencouncil-sub005/internal/metrics"
	subjectrepo "github.com/schemalabz/opencouncil-sub005/internal/repository/subject"
	healthuc "github.com/schemalabz/opencouncil-sub005/internal/usecase/health"
	"github.com/schemalabz/opencouncil-sub005/internal/version"
)

const dateLayout = "2006-01-02"

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    "searchctl",
		Usage:   "Query the council subject index and manage its schema",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (default: config/<ENV>.yaml)",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Run a hybrid search and print the results as JSON",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags:     searchFlags(),
			},
			{
				Name:   "ensure-indexes",
				Usage:  "Create the subject and segment indexes if missing",
				Action: ensureIndexesCommand,
			},
			{
				Name:   "migrate",
				Usage:  "Create the relational subject schema if missing",
				Action: migrateCommand,
			},
			{
				Name:   "health",
				Usage:  "Check the index, database and embedding provider",
				Action: healthCommand,
			},
		},
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "city", Usage: "Restrict to city ids"},
		&cli.StringSliceFlag{Name: "person", Usage: "Restrict to introducer or speaker ids"},
		&cli.StringSliceFlag{Name: "party", Usage: "Restrict to party ids"},
		&cli.StringSliceFlag{Name: "topic", Usage: "Restrict to topic ids"},
		&cli.StringFlag{Name: "date-start", Usage: "First meeting day (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "date-end", Usage: "Last meeting day (YYYY-MM-DD)"},
		&cli.Float64Flag{Name: "lat", Usage: "Latitude of the geo facet center"},
		&cli.Float64Flag{Name: "lon", Usage: "Longitude of the geo facet center"},
		&cli.Float64Flag{Name: "radius-km", Usage: "Radius of the geo facet"},
		&cli.BoolFlag{Name: "semantic", Usage: "Add the semantic branch"},
		&cli.IntFlag{Name: "size", Usage: "Page size"},
		&cli.IntFlag{Name: "from", Usage: "Page offset"},
		&cli.IntFlag{Name: "rank-window", Usage: "Candidates fetched per branch"},
		&cli.IntFlag{Name: "rank-constant", Usage: "RRF rank constant"},
		&cli.BoolFlag{Name: "no-inner-hits", Usage: "Do not report matched segments"},
	}
}

// intFlag returns nil for an unset flag so the request falls back to defaults.
func intFlag(c *cli.Context, name string) *int {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Int(name)
	return &v
}

// searchParams maps command flags onto unvalidated search parameters.
func searchParams(c *cli.Context) (request.Params, error) {
	if c.NArg() != 1 {
		return request.Params{}, fmt.Errorf("expected exactly one query argument, got %d", c.NArg())
	}
	p := request.Params{
		Query:          c.Args().First(),
		CityIDs:        c.StringSlice("city"),
		PersonIDs:      c.StringSlice("person"),
		PartyIDs:       c.StringSlice("party"),
		TopicIDs:       c.StringSlice("topic"),
		EnableSemantic: c.Bool("semantic"),
		From:           c.Int("from"),
		Size:           intFlag(c, "size"),
		RankWindowSize: intFlag(c, "rank-window"),
		RankConstant:   intFlag(c, "rank-constant"),
	}
	if c.Bool("no-inner-hits") {
		off := false
		p.InnerHits = &off
	}

	if c.IsSet("date-start") || c.IsSet("date-end") {
		start, err := time.Parse(dateLayout, c.String("date-start"))
		if err != nil {
			return request.Params{}, fmt.Errorf("date-start: %w", err)
		}
		end, err := time.Parse(dateLayout, c.String("date-end"))
		if err != nil {
			return request.Params{}, fmt.Errorf("date-end: %w", err)
		}
		p.DateRange = &request.DateRange{Start: start, End: end}
	}

	geoSet := 0
	for _, name := range []string{"lat", "lon", "radius-km"} {
		if c.IsSet(name) {
			geoSet++
		}
	}
	switch geoSet {
	case 0:
	case 3:
		p.Geo = &request.GeoParams{
			Lat:      c.Float64("lat"),
			Lon:      c.Float64("lon"),
			RadiusKm: c.Float64("radius-km"),
		}
	default:
		return request.Params{}, fmt.Errorf("lat, lon and radius-km must be given together")
	}
	return p, nil
}

func searchCommand(c *cli.Context) error {
	params, err := searchParams(c)
	if err != nil {
		return err
	}
	return withApp(c, func(ctx context.Context, a *app.App) error {
		req, err := request.New(params, a.Defaults)
		if err != nil {
			return err
		}
		resp, err := a.Search.Search(ctx, &req)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, resp)
	})
}

func ensureIndexesCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		created, err := a.EnsureIndexes(ctx)
		if err != nil {
			return err
		}
		if len(created) == 0 {
			_, err = fmt.Fprintln(c.App.Writer, "indexes already exist")
			return err
		}
		for _, name := range created {
			if _, err := fmt.Fprintf(c.App.Writer, "created %s\n", name); err != nil {
				return err
			}
		}
		return nil
	})
}

func migrateCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		if err := subjectrepo.Migrate(ctx, a.Subjects); err != nil {
			return err
		}
		_, err := fmt.Fprintln(c.App.Writer, "schema up to date")
		return err
	})
}

func healthCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		report := a.Health.Check(ctx)
		if err := printJSON(c.App.Writer, report); err != nil {
			return err
		}
		if report.Status == healthuc.Unhealthy {
			return cli.Exit("unhealthy", 1)
		}
		return nil
	})
}

// withApp loads configuration, builds the application and closes it after fn.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	env := config.GetEnv()
	var (
		cfg config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return err
	}

	logger, err := logpkg.NewLogger(env, c.String("log-level"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterSearchMetrics()
	metrics.RegisterEmbeddingMetrics()

	ctx := c.Context
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		logger.Debug("command failed", zap.String("command", c.Command.Name), zap.Error(err))
		return err
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
