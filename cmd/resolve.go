package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/slackpad/stamp/config"
	"github.com/slackpad/stamp/core"
	"github.com/slackpad/stamp/meta"
	"github.com/slackpad/stamp/timeinfo"
)

// newResolver builds a resolver from the configuration.
func newResolver(logger hclog.Logger, cfg *config.Config) (*timeinfo.Resolver, error) {
	opts, err := cfg.ResolverOptions(logger.Named("resolver"))
	if err != nil {
		return nil, err
	}
	return timeinfo.NewResolver(opts), nil
}

// Resolve returns a CommandFactory for resolving capture times without an
// index.
func Resolve(logger hclog.Logger, cfg *config.Config) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &resolve{
			logger: logger,
			cfg:    cfg,
		}, nil
	}
}

type resolve struct {
	logger hclog.Logger
	cfg    *config.Config
}

func (c *resolve) Synopsis() string {
	return "Resolve the capture time of files"
}

func (c *resolve) Help() string {
	return `Usage: stamp resolve [options] <path>...

Resolve the capture time of each path and print the results as a JSON
array. A path ending in .json is read as an exiftool dump made with
"exiftool -g2 -n -json" and may describe many files. Any other path is read
through exiftool directly.

Options:
  -lat <degrees>       Latitude where the files were taken
  -lon <degrees>       Longitude where the files were taken
  -fallback-tz <zone>  IANA zone for epoch-millisecond file names
  -tolerance <dur>     How far GPS and camera time may differ, e.g. 30s

Example:
  stamp resolve -lat 52.37 -lon 4.89 IMG_0001.jpg
  stamp resolve dump.json
`
}

func (c *resolve) Run(args []string) int {
	cfg := *c.cfg
	var lat, lon float64
	var tolerance time.Duration

	flags := flag.NewFlagSet("resolve", flag.ContinueOnError)
	flags.Usage = func() {}
	flags.Float64Var(&lat, "lat", 0, "")
	flags.Float64Var(&lon, "lon", 0, "")
	flags.StringVar(&cfg.FallbackTimezone, "fallback-tz", cfg.FallbackTimezone, "")
	flags.DurationVar(&tolerance, "tolerance", 0, "")
	if err := flags.Parse(args); err != nil {
		return cli.RunResultHelp
	}
	paths := flags.Args()
	if len(paths) == 0 {
		return cli.RunResultHelp
	}

	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["lat"] != set["lon"] {
		c.logger.Error("-lat and -lon must be given together")
		return cli.RunResultHelp
	}
	if set["tolerance"] {
		if tolerance <= 0 {
			c.logger.Error("-tolerance must be positive", "value", tolerance)
			return cli.RunResultHelp
		}
		cfg.GPSToleranceSeconds = int(tolerance / time.Second)
	}

	resolver, err := newResolver(c.logger, &cfg)
	if err != nil {
		c.logger.Error(err.Error())
		return 1
	}

	opts := core.ResolveOptions{Resolver: resolver}
	if set["lat"] {
		opts.GPS = &timeinfo.GPS{Latitude: lat, Longitude: lon}
	}
	if needsExiftool(paths) {
		extractor, err := meta.NewExtractor(cfg.ExiftoolPath)
		if err != nil {
			c.logger.Error(err.Error())
			return 1
		}
		defer extractor.Close()
		opts.Source = extractor
	}

	if err := core.ResolveFiles(c.logger, os.Stdout, paths, opts); err != nil {
		c.logger.Error(fmt.Sprintf("some files could not be read: %v", err))
		return 1
	}
	return 0
}

func needsExiftool(paths []string) bool {
	for _, p := range paths {
		if !strings.EqualFold(filepath.Ext(p), ".json") {
			return true
		}
	}
	return false
}
