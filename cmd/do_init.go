package cmd

import (
	"fmt"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/slackpad/stamp/config"
	"github.com/slackpad/stamp/core"
)

// DoInit returns a CommandFactory for creating the index database.
func DoInit(logger hclog.Logger, cfg *config.Config) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &doInit{
			logger: logger,
			cfg:    cfg,
		}, nil
	}
}

type doInit struct {
	logger hclog.Logger
	cfg    *config.Config
}

func (c *doInit) Synopsis() string {
	return "Create the stamp database"
}

func (c *doInit) Help() string {
	return `Usage: stamp init

Create a new, empty database at the configured db_path (stamp.db in the
current directory unless stamp.yaml says otherwise).

If a database already exists, this command will fail.

Example:
  stamp init
`
}

func (c *doInit) Run(args []string) int {
	if len(args) != 0 {
		c.logger.Error("init command takes no arguments")
		return cli.RunResultHelp
	}

	if err := core.CreateDB(c.logger, c.cfg.DBPath); err != nil {
		c.logger.Error("failed to initialize database", "error", err)
		return 1
	}

	fmt.Printf("Stamp database %s initialized successfully\n", c.cfg.DBPath)
	return 0
}
