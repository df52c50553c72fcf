package cmd

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"go.dedis.ch/tct"
	"go.dedis.ch/tct/cli"
	"go.dedis.ch/tct/core/store/kv"
	"go.dedis.ch/tct/core/store/state"
	"golang.org/x/xerrors"
)

// treeController registers the commands operating on the tree stored in the
// database.
//
// - implements cmd.Controller
type treeController struct {
	out io.Writer
}

// NewController returns a controller that writes the output of the commands to
// the writer.
func NewController(out io.Writer) Controller {
	return treeController{out: out}
}

// SetCommands implements cmd.Controller.
func (c treeController) SetCommands(builder cli.Builder) {
	cmd := builder.SetCommand("insert")
	cmd.SetDescription("insert commitments in the current block")
	cmd.SetFlags(
		cli.StringSliceFlag{
			Name:  "commitment",
			Usage: "hex-encoded commitment",
		},
		cli.StringSliceFlag{
			Name:  "data",
			Usage: "payload whose digest is inserted",
		},
		cli.BoolFlag{
			Name:  "discard",
			Usage: "do not keep the commitments witnessed",
		},
	)
	cmd.SetAction(c.makeAction(insertAction{}))

	cmd = builder.SetCommand("forget")
	cmd.SetDescription("stop witnessing commitments")
	cmd.SetFlags(cli.StringSliceFlag{
		Name:     "commitment",
		Usage:    "hex-encoded commitment",
		Required: true,
	})
	cmd.SetAction(c.makeAction(forgetAction{}))

	cmd = builder.SetCommand("root")
	cmd.SetDescription("print the root of the tree")
	cmd.SetAction(c.makeAction(rootAction{}))

	cmd = builder.SetCommand("witness")
	cmd.SetDescription("print the proof of a witnessed commitment")
	cmd.SetFlags(cli.StringFlag{
		Name:     "commitment",
		Usage:    "hex-encoded commitment",
		Required: true,
	})
	cmd.SetAction(c.makeAction(witnessAction{}))

	cmd = builder.SetCommand("verify")
	cmd.SetDescription("verify a proof against a root")
	cmd.SetFlags(
		cli.PathFlag{
			Name:     "proof",
			Usage:    "path to the JSON proof",
			Required: true,
		},
		cli.StringFlag{
			Name:  "root",
			Usage: "hex-encoded root, defaults to the current root",
		},
	)
	cmd.SetAction(c.makeAction(verifyAction{}))

	cmd = builder.SetCommand("end-block")
	cmd.SetDescription("close the current block and store an anchor")
	cmd.SetAction(c.makeAction(endBlockAction{}))

	cmd = builder.SetCommand("end-epoch")
	cmd.SetDescription("close the current epoch and store an anchor")
	cmd.SetAction(c.makeAction(endEpochAction{}))

	cmd = builder.SetCommand("anchors")
	cmd.SetDescription("read the roots stored by end-block and end-epoch")

	sub := cmd.SetSubCommand("list")
	sub.SetDescription("print every anchor by increasing height")
	sub.SetAction(c.makeAction(listAnchorsAction{}))

	sub = cmd.SetSubCommand("get")
	sub.SetDescription("print the anchor at a height")
	sub.SetFlags(cli.Uint64Flag{
		Name:     "height",
		Usage:    "height of the anchor",
		Required: true,
	})
	sub.SetAction(c.makeAction(getAnchorAction{}))

	sub = cmd.SetSubCommand("last")
	sub.SetDescription("print the anchor with the highest height")
	sub.SetAction(c.makeAction(lastAnchorAction{}))

	cmd = builder.SetCommand("serve")
	cmd.SetDescription("serve the tree over HTTP until interrupted")
	cmd.SetFlags(cli.StringFlag{
		Name:  "listen",
		Usage: "address of the HTTP server, defaults to the configuration",
	})
	cmd.SetAction(c.makeAction(newServeAction()))
}

// makeAction returns a cli action that prepares the context of the action
// before executing it, and releases the database afterwards.
func (c treeController) makeAction(tmpl Action) cli.Action {
	return func(flags cli.Flags) error {
		config, err := loadConfig(flags)
		if err != nil {
			return xerrors.Errorf("config: %v", err)
		}

		zerolog.SetGlobalLevel(config.level)

		db, err := kv.New(config.DB)
		if err != nil {
			return xerrors.Errorf("failed to open database: %v", err)
		}

		defer func() {
			err := db.Close()
			if err != nil {
				tct.Logger.Warn().Err(err).Msg("failed to close database")
			}
		}()

		out := c.out
		if out == nil {
			out = os.Stdout
		}

		ctx := Context{
			Flags:  flags,
			Out:    out,
			Config: config,
			Store:  state.NewStore(db),
		}

		return tmpl.Execute(ctx)
	}
}
