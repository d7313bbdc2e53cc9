package cmd

import (
	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/slackpad/stamp/config"
	"github.com/slackpad/stamp/core"
)

func IndexMaterialize(logger hclog.Logger, cfg *config.Config) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &indexMaterialize{
			logger: logger,
			cfg:    cfg,
		}, nil
	}
}

type indexMaterialize struct {
	logger hclog.Logger
	cfg    *config.Config
}

func (c *indexMaterialize) Synopsis() string {
	return "Materializes an index into a folder by capture date"
}

func (c *indexMaterialize) Help() string {
	return `
Copies without duplicates all indexed files into the target path, laid out
as YYYY/MM/DD/<hash><ext> by local capture date. Files without a capture
time go into _undated. Each copy's modification time is set to the capture
instant when it is known. Existing files are left alone.

stamp index materialize <indexName> <rootPath>

indexName: Name of index to use
rootPath:  Path of the root folder to target`
}

func (c *indexMaterialize) Run(args []string) int {
	if len(args) != 2 {
		return cli.RunResultHelp
	}
	indexName := args[0]
	rootPath := args[1]
	if err := core.Materialize(c.logger, c.cfg.DBPath, indexName, rootPath); err != nil {
		c.logger.Error(err.Error())
		return 1
	}
	return 0
}
