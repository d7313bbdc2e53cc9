package cmd

import (
	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/slackpad/stamp/config"
	"github.com/slackpad/stamp/core"
)

func SetDifference(logger hclog.Logger, cfg *config.Config) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &setDifference{
			logger: logger,
			cfg:    cfg,
		}, nil
	}
}

type setDifference struct {
	logger hclog.Logger
	cfg    *config.Config
}

func (c *setDifference) Synopsis() string {
	return "Makes a new index as A-B"
}

func (c *setDifference) Help() string {
	return `
This creates a new index with all of the files in B removed from A. It
doesn't modify A or B.

stamp set difference <indexName> <indexNameA> <indexNameB>

indexName:  Name of index to create with the result
indexNameA: First index
indexNameB: Second index
`
}

func (c *setDifference) Run(args []string) int {
	if len(args) != 3 {
		return cli.RunResultHelp
	}
	indexName := args[0]
	a := args[1]
	b := args[2]
	if err := core.SetDifference(c.logger, c.cfg.DBPath, indexName, a, b); err != nil {
		c.logger.Error(err.Error())
		return 1
	}
	return 0
}
