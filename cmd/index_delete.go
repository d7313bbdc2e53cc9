package cmd

import (
	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/slackpad/stamp/config"
	"github.com/slackpad/stamp/core"
)

// IndexDelete returns a CommandFactory for deleting an index.
func IndexDelete(logger hclog.Logger, cfg *config.Config) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &indexDelete{
			logger: logger,
			cfg:    cfg,
		}, nil
	}
}

type indexDelete struct {
	logger hclog.Logger
	cfg    *config.Config
}

func (c *indexDelete) Synopsis() string {
	return "Delete an index"
}

func (c *indexDelete) Help() string {
	return `Usage: stamp index delete <indexName>

Delete an index from the database.

WARNING: This operation cannot be undone. The index and all of its resolved
capture times will be permanently removed from the database. The files
themselves are not touched.

Arguments:
  indexName  Name of the index to delete

Example:
  stamp index delete old_photos
`
}

func (c *indexDelete) Run(args []string) int {
	if len(args) != 1 {
		c.logger.Error("incorrect number of arguments")
		return cli.RunResultHelp
	}

	indexName := args[0]
	if err := core.IndexDelete(c.logger, c.cfg.DBPath, indexName); err != nil {
		c.logger.Error("failed to delete index", "index", indexName, "error", err)
		return 1
	}

	c.logger.Info("index deleted successfully", "index", indexName)
	return 0
}
