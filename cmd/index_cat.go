package cmd

import (
	"os"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/slackpad/stamp/config"
	"github.com/slackpad/stamp/core"
)

func IndexCat(logger hclog.Logger, cfg *config.Config) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &indexCat{
			logger: logger,
			cfg:    cfg,
		}, nil
	}
}

type indexCat struct {
	logger hclog.Logger
	cfg    *config.Config
}

func (c *indexCat) Synopsis() string {
	return "Dumps the records of an index as JSON lines"
}

func (c *indexCat) Help() string {
	return `
Writes one JSON object per indexed file content: its hash, paths, size,
content type, and resolved capture time or the reason there is none.

stamp index cat <indexName>

indexName: Name of index to use`
}

func (c *indexCat) Run(args []string) int {
	if len(args) != 1 {
		return cli.RunResultHelp
	}
	indexName := args[0]
	if err := core.IndexCat(c.logger, c.cfg.DBPath, indexName, os.Stdout); err != nil {
		c.logger.Error(err.Error())
		return 1
	}
	return 0
}
