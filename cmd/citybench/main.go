// citybench ranks cities for a set of traveler profiles against a seed
// catalog and prints the top cities per profile with timings.
//
// Usage:
//
//	citybench -seed data/places.parquet -encoding weighted -k 300 -top 5
//	citybench -seed data/places.db -profiles profiles.yaml -export data/places.parquet
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/citymatch"
	"github.com/kailas-cloud/citymatch/internal/logger"
	"github.com/kailas-cloud/citymatch/internal/version"
)

type config struct {
	seed      string
	format    string
	encoding  string
	k         int
	top       int
	lambda    float64
	diversify bool
	profiles  string
	export    string
	logLevel  string
	version   bool
}

// benchProfile is one synthetic user.
type benchProfile struct {
	Name     string         `yaml:"name"`
	Tags     []string       `yaml:"tags"`
	Dislikes map[string]int `yaml:"dislikes,omitempty"`
}

type profileFile struct {
	Profiles []benchProfile `yaml:"profiles"`
}

// defaultProfiles use raw categories so they work under every tag encoding.
var defaultProfiles = []benchProfile{
	{Name: "food lover", Tags: []string{"catering.restaurant", "catering.cafe", "commercial.marketplace"}},
	{Name: "nightlife", Tags: []string{"adult.nightclub", "catering.bar", "catering.pub"}, Dislikes: map[string]int{"museum": 2}},
	{Name: "sports", Tags: []string{"sport.stadium", "sport.fitness", "leisure.park"}},
	{Name: "culture", Tags: []string{"entertainment.museum", "tourism.sights", "entertainment.culture.theatre"}},
	{Name: "nature", Tags: []string{"natural.mountain", "leisure.park", "natural.forest", "beach"}, Dislikes: map[string]int{"adult.nightclub": 3}},
	{Name: "hotel traveler", Tags: []string{"accommodation.hotel", "catering.restaurant", "tourism.sights"}},
}

func main() {
	cfg := parseFlags()

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer cancel()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		cancel()
		log.Fatal(err)
	}
}

func parseFlags() config {
	cfg := config{}
	flag.StringVar(&cfg.seed, "seed", "data/places.json", "seed catalog (json, parquet or sqlite)")
	flag.StringVar(&cfg.format, "format", "", "seed format; inferred from the extension when empty")
	flag.StringVar(&cfg.encoding, "encoding", citymatch.EncodingWeighted, "tag encoding: weighted or multihot")
	flag.IntVar(&cfg.k, "k", 300, "scored items handed to city aggregation")
	flag.IntVar(&cfg.top, "top", 5, "cities printed per profile")
	flag.Float64Var(&cfg.lambda, "lambda", 0.7, "MMR relevance/novelty trade-off")
	flag.BoolVar(&cfg.diversify, "diversify", true, "diversify the city list")
	flag.StringVar(&cfg.profiles, "profiles", "", "YAML file with profiles; built-in profiles when empty")
	flag.StringVar(&cfg.export, "export", "", "also write the loaded catalog as a Parquet seed")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.BoolVar(&cfg.version, "version", false, "print version and exit")
	flag.Parse()
	return cfg
}

func run(ctx context.Context, cfg config, out io.Writer) error {
	if cfg.version {
		fmt.Fprintln(out, "citybench", version.String())
		return nil
	}

	l, err := logger.NewLogger("local", cfg.logLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	profiles, err := loadProfiles(cfg.profiles)
	if err != nil {
		return err
	}

	start := time.Now()
	items, err := citymatch.LoadItems(ctx, cfg.seed, cfg.format)
	if err != nil {
		return err
	}
	l.Info("seed loaded",
		zap.String("path", cfg.seed),
		zap.Int("items", len(items)),
		zap.Duration("took", time.Since(start)),
	)

	if cfg.export != "" {
		if err := citymatch.ExportParquet(filepath.Clean(cfg.export), items); err != nil {
			return err
		}
		l.Info("catalog exported", zap.String("path", cfg.export))
	}

	start = time.Now()
	engine, err := citymatch.New(ctx, items,
		citymatch.WithEncoding(cfg.encoding),
		citymatch.WithCandidatePool(cfg.k),
		citymatch.WithLambda(cfg.lambda),
		citymatch.WithLogger(l),
	)
	if err != nil {
		return err
	}
	defer engine.Close()
	l.Info("index built",
		zap.String("encoding", cfg.encoding),
		zap.Int("dimensions", engine.Dimensions()),
		zap.Int("cities", len(engine.Cities())),
		zap.Duration("took", time.Since(start)),
	)

	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("interrupted: %w", err)
		}
		if err := benchProfileRun(ctx, engine, p, cfg, out); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}
	return nil
}

func benchProfileRun(ctx context.Context, engine *citymatch.Engine, p benchProfile, cfg config, out io.Writer) error {
	start := time.Now()
	cities, err := engine.RankCities(ctx, citymatch.Query{
		Tags:      p.Tags,
		Dislikes:  p.Dislikes,
		Limit:     cfg.top,
		Diversify: cfg.diversify,
	})
	if err != nil {
		return err
	}
	took := time.Since(start)

	fmt.Fprintf(out, "\n== %s (%s) ==\n", p.Name, took.Round(time.Microsecond))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tcity\tcountry\tscore\tmax\tmean\tdiversity\tpois")
	for i, c := range cities {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\t%.4f\t%.4f\t%.3f\t%d\n",
			i+1, c.Name, c.Country, c.Score, c.MaxScore, c.MeanTopN, c.Diversity, c.POICount)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

func loadProfiles(path string) ([]benchProfile, error) {
	if path == "" {
		return defaultProfiles, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if len(f.Profiles) == 0 {
		return nil, fmt.Errorf("%s: no profiles", path)
	}
	for i, p := range f.Profiles {
		if p.Name == "" {
			f.Profiles[i].Name = fmt.Sprintf("profile-%d", i+1)
		}
		if len(p.Tags) == 0 {
			return nil, fmt.Errorf("%s: profile %d has no tags", path, i+1)
		}
	}
	return f.Profiles, nil
}
