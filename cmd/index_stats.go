package cmd

import (
	"os"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/slackpad/stamp/config"
	"github.com/slackpad/stamp/core"
)

func IndexStats(logger hclog.Logger, cfg *config.Config) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &indexStats{
			logger: logger,
			cfg:    cfg,
		}, nil
	}
}

type indexStats struct {
	logger hclog.Logger
	cfg    *config.Config
}

func (c *indexStats) Synopsis() string {
	return "Displays stats about an index"
}

func (c *indexStats) Help() string {
	return `
Shows how many files are in an index by content type, by capture time
confidence and by the metadata field the time came from.

stamp index stats <indexName>

indexName: Name of index to use`
}

func (c *indexStats) Run(args []string) int {
	if len(args) != 1 {
		return cli.RunResultHelp
	}
	indexName := args[0]
	if err := core.IndexStats(c.logger, c.cfg.DBPath, indexName, os.Stdout); err != nil {
		c.logger.Error(err.Error())
		return 1
	}
	return 0
}
