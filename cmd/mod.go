// Package cmd implements the command line application of the commitment tree.
// Every command loads the tree from the database, applies its action and saves
// the tree back.
//
//	tct --db tree.db insert --commitment <hex> --data "hello"
//	tct --db tree.db end-block
//	tct --db tree.db witness --commitment <hex> > proof.json
//	tct --db tree.db verify --proof proof.json
//	tct --db tree.db serve --listen 127.0.0.1:8080
package cmd

import (
	"io"
	"os"

	"go.dedis.ch/tct/cli"
	"go.dedis.ch/tct/cli/ucli"
	"go.dedis.ch/tct/core/store/state"
)

// Context is the context provided to an action.
type Context struct {
	Flags  cli.Flags
	Out    io.Writer
	Config *Config
	Store  *state.Store
}

// Action is the interface of the command actions.
type Action interface {
	Execute(ctx Context) error
}

// Controller is the interface to implement to register commands.
type Controller interface {
	SetCommands(builder cli.Builder)
}

// NewApp returns the application with the commands of the controllers. The
// global flags select the configuration file and override its values.
func NewApp(out io.Writer, ctrls ...Controller) cli.Application {
	builder := ucli.NewBuilder("tct", nil,
		cli.PathFlag{
			Name:    "config",
			Usage:   "path to the YAML configuration file",
			EnvVars: []string{"TCT_CONFIG"},
		},
		cli.PathFlag{
			Name:    "db",
			Usage:   "path to the database",
			EnvVars: []string{"TCT_DB"},
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "level of the logs (trace, debug, info, warn, error)",
		},
	)

	builder.SetUsage("tiered commitment tree")
	builder.SetWriter(out)

	for _, ctrl := range ctrls {
		ctrl.SetCommands(builder)
	}

	return builder.Build()
}

// NewDefaultApp returns the application with every command, writing to the
// standard output.
func NewDefaultApp() cli.Application {
	return NewApp(os.Stdout, NewController(os.Stdout))
}
