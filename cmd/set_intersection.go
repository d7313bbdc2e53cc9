package cmd

import (
	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/slackpad/stamp/config"
	"github.com/slackpad/stamp/core"
)

func SetIntersection(logger hclog.Logger, cfg *config.Config) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &setIntersection{
			logger: logger,
			cfg:    cfg,
		}, nil
	}
}

type setIntersection struct {
	logger hclog.Logger
	cfg    *config.Config
}

func (c *setIntersection) Synopsis() string {
	return "Makes a new index as A&B"
}

func (c *setIntersection) Help() string {
	return `
This creates a new index with the files that are in both A and B, keeping
the more confident capture time of the two. It doesn't modify A or B.

stamp set intersection <indexName> <indexNameA> <indexNameB>

indexName:  Name of index to create with the result
indexNameA: First index
indexNameB: Second index
`
}

func (c *setIntersection) Run(args []string) int {
	if len(args) != 3 {
		return cli.RunResultHelp
	}
	indexName := args[0]
	a := args[1]
	b := args[2]
	if err := core.SetIntersection(c.logger, c.cfg.DBPath, indexName, a, b); err != nil {
		c.logger.Error(err.Error())
		return 1
	}
	return 0
}
