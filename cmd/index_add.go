package cmd

import (
	"context"
	"os"
	"os/signal"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/slackpad/stamp/config"
	"github.com/slackpad/stamp/core"
	"github.com/slackpad/stamp/meta"
)

func IndexAdd(logger hclog.Logger, cfg *config.Config) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &indexAdd{
			logger: logger,
			cfg:    cfg,
		}, nil
	}
}

type indexAdd struct {
	logger hclog.Logger
	cfg    *config.Config
}

func (c *indexAdd) Synopsis() string {
	return "Adds files to an index with their capture times"
}

func (c *indexAdd) Help() string {
	return `
Recursively scans all of the files in a folder tree, reads their metadata
with exiftool and indexes them by content along with their resolved capture
time. The index will be created if it doesn't exist, or if it does exist
then new files will be added to it.

Google Photos Takeout sidecars (<file>.json or
<file>.supplemental-metadata.json) are picked up automatically: their
photoTakenTime is used as a time source and the sidecar is attached to
the file.

stamp index add <indexName> <rootPath>

indexName: Name of index to use
rootPath:  Path of the root folder to scan`
}

func (c *indexAdd) Run(args []string) int {
	if len(args) != 2 {
		return cli.RunResultHelp
	}
	indexName := args[0]
	rootPath := args[1]

	resolver, err := newResolver(c.logger, c.cfg)
	if err != nil {
		c.logger.Error(err.Error())
		return 1
	}
	extractor, err := meta.NewExtractor(c.cfg.ExiftoolPath)
	if err != nil {
		c.logger.Error(err.Error())
		return 1
	}
	defer extractor.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = core.IndexAdd(ctx, c.logger, c.cfg.DBPath, indexName, rootPath, core.AddOptions{
		Source:   extractor,
		Resolver: resolver,
		Workers:  c.cfg.Workers,
	})
	if err != nil {
		c.logger.Error(err.Error())
		return 1
	}
	return 0
}
