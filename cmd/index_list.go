package cmd

import (
	"os"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/slackpad/stamp/config"
	"github.com/slackpad/stamp/core"
)

// IndexList returns a CommandFactory for listing all indexes.
func IndexList(logger hclog.Logger, cfg *config.Config) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &indexList{
			logger: logger,
			cfg:    cfg,
		}, nil
	}
}

type indexList struct {
	logger hclog.Logger
	cfg    *config.Config
}

func (c *indexList) Synopsis() string {
	return "List all indexes"
}

func (c *indexList) Help() string {
	return `Usage: stamp index list

List all indexes in the database with the number of distinct files in each.

Example:
  stamp index list
`
}

func (c *indexList) Run(args []string) int {
	if len(args) != 0 {
		c.logger.Error("index list command takes no arguments")
		return cli.RunResultHelp
	}

	if err := core.IndexList(c.logger, c.cfg.DBPath, os.Stdout); err != nil {
		c.logger.Error("failed to list indexes", "error", err)
		return 1
	}

	return 0
}
