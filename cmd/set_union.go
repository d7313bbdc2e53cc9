package cmd

import (
	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/slackpad/stamp/config"
	"github.com/slackpad/stamp/core"
)

func SetUnion(logger hclog.Logger, cfg *config.Config) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &setUnion{
			logger: logger,
			cfg:    cfg,
		}, nil
	}
}

type setUnion struct {
	logger hclog.Logger
	cfg    *config.Config
}

func (c *setUnion) Synopsis() string {
	return "Makes a new index as A+B"
}

func (c *setUnion) Help() string {
	return `
This creates a new index with all of the files in A or B. Files in both keep
the more confident capture time of the two. It doesn't modify A or B.

stamp set union <indexName> <indexNameA> <indexNameB>

indexName:  Name of index to create with the result
indexNameA: First index
indexNameB: Second index
`
}

func (c *setUnion) Run(args []string) int {
	if len(args) != 3 {
		return cli.RunResultHelp
	}
	indexName := args[0]
	a := args[1]
	b := args[2]
	if err := core.SetUnion(c.logger, c.cfg.DBPath, indexName, a, b); err != nil {
		c.logger.Error(err.Error())
		return 1
	}
	return 0
}
