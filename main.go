package main

import (
	"os"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	stampcmd "github.com/slackpad/stamp/cmd"
	"github.com/slackpad/stamp/config"
)

var appName = "stamp"
var appVersion = "0.0.1"

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  appName,
		Level: hclog.LevelFromString("INFO"),
	})

	cfg, err := config.Load(config.Path())
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	logger.SetLevel(cfg.Level())

	c := cli.NewCLI(appName, appVersion)
	c.Args = os.Args[1:]
	c.Commands = map[string]cli.CommandFactory{
		"init":              stampcmd.DoInit(logger, cfg),
		"index add":         stampcmd.IndexAdd(logger, cfg),
		"index cat":         stampcmd.IndexCat(logger, cfg),
		"index delete":      stampcmd.IndexDelete(logger, cfg),
		"index list":        stampcmd.IndexList(logger, cfg),
		"index materialize": stampcmd.IndexMaterialize(logger, cfg),
		"index stats":       stampcmd.IndexStats(logger, cfg),
		"resolve":           stampcmd.Resolve(logger, cfg),
		"set difference":    stampcmd.SetDifference(logger, cfg),
		"set intersection":  stampcmd.SetIntersection(logger, cfg),
		"set union":         stampcmd.SetUnion(logger, cfg),
	}

	exitStatus, err := c.Run()
	if err != nil {
		logger.Error(err.Error())
	}

	os.Exit(exitStatus)
}
