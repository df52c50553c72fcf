package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"go.dedis.ch/tct"
	"go.dedis.ch/tct/core/accumulator"
	"go.dedis.ch/tct/core/digest"
	"go.dedis.ch/tct/core/store/state"
	"go.dedis.ch/tct/crypto"
	"go.dedis.ch/tct/server"
	"golang.org/x/xerrors"
)

// insertAction inserts the commitments given on the command line, in order.
// The commitments inserted before a failure are saved.
//
// - implements cmd.Action
type insertAction struct{}

// Execute implements cmd.Action.
func (insertAction) Execute(ctx Context) error {
	commitments, err := parseCommitments(ctx.Flags.StringSlice("commitment"))
	if err != nil {
		return err
	}

	fac := crypto.NewHashFactory(ctx.Config.hash)

	for _, data := range ctx.Flags.StringSlice("data") {
		c, err := digest.Derive(fac, []byte(data))
		if err != nil {
			return xerrors.Errorf("failed to derive commitment: %v", err)
		}

		commitments = append(commitments, c)
	}

	if len(commitments) == 0 {
		return xerrors.New("no commitment provided")
	}

	mode := accumulator.Keep
	if ctx.Flags.Bool("discard") {
		mode = accumulator.Discard
	}

	acc, err := ctx.Store.Load(accumulator.WithLogger(tct.Logger))
	if err != nil {
		return err
	}

	var insertErr error

	for _, c := range commitments {
		insertErr = acc.Insert(mode, c)
		if insertErr != nil {
			break
		}

		pos, found := acc.Position(c)
		if found {
			fmt.Fprintf(ctx.Out, "inserted %v at %v\n", c, pos)
		} else {
			fmt.Fprintf(ctx.Out, "inserted %v\n", c)
		}
	}

	err = ctx.Store.Save(acc)
	if err != nil {
		return err
	}

	if insertErr != nil {
		return xerrors.Errorf("insert: %v", insertErr)
	}

	return nil
}

// forgetAction stops witnessing the commitments.
//
// - implements cmd.Action
type forgetAction struct{}

// Execute implements cmd.Action.
func (forgetAction) Execute(ctx Context) error {
	commitments, err := parseCommitments(ctx.Flags.StringSlice("commitment"))
	if err != nil {
		return err
	}

	acc, err := ctx.Store.Load(accumulator.WithLogger(tct.Logger))
	if err != nil {
		return err
	}

	for _, c := range commitments {
		if acc.Forget(c) {
			fmt.Fprintf(ctx.Out, "forgot %v\n", c)
		} else {
			fmt.Fprintf(ctx.Out, "%v is not witnessed\n", c)
		}
	}

	return ctx.Store.Save(acc)
}

// rootAction prints the root of the tree.
//
// - implements cmd.Action
type rootAction struct{}

// Execute implements cmd.Action.
func (rootAction) Execute(ctx Context) error {
	acc, err := ctx.Store.Load()
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "root: %v\n", acc.Root())
	fmt.Fprintf(ctx.Out, "len: %d\n", acc.Len())
	fmt.Fprintf(ctx.Out, "witnessed: %d\n", acc.Witnessed())

	return nil
}

// witnessAction prints the proof of a commitment in JSON.
//
// - implements cmd.Action
type witnessAction struct{}

// Execute implements cmd.Action.
func (witnessAction) Execute(ctx Context) error {
	c, err := digest.ParseCommitment(ctx.Flags.String("commitment"))
	if err != nil {
		return xerrors.Errorf("malformed commitment: %v", err)
	}

	acc, err := ctx.Store.Load()
	if err != nil {
		return err
	}

	proof, found := acc.Witness(c)
	if !found {
		return xerrors.Errorf("commitment %v is not witnessed", c)
	}

	enc := json.NewEncoder(ctx.Out)
	enc.SetIndent("", "  ")

	err = enc.Encode(proof)
	if err != nil {
		return xerrors.Errorf("failed to encode proof: %v", err)
	}

	return nil
}

// verifyAction checks a proof read from a file against a root. The current
// root of the tree is used when none is given.
//
// - implements cmd.Action
type verifyAction struct{}

// Execute implements cmd.Action.
func (verifyAction) Execute(ctx Context) error {
	data, err := os.ReadFile(ctx.Flags.Path("proof"))
	if err != nil {
		return xerrors.Errorf("failed to read proof: %v", err)
	}

	var proof accumulator.Proof

	err = json.Unmarshal(data, &proof)
	if err != nil {
		return xerrors.Errorf("failed to decode proof: %v", err)
	}

	var root accumulator.Root

	if ctx.Flags.String("root") != "" {
		err = root.UnmarshalText([]byte(ctx.Flags.String("root")))
		if err != nil {
			return xerrors.Errorf("malformed root: %v", err)
		}
	} else {
		acc, err := ctx.Store.Load()
		if err != nil {
			return err
		}

		root = acc.Root()
	}

	verified, err := proof.Verify(root)
	if err != nil {
		return xerrors.Errorf("invalid proof: %v", err)
	}

	fmt.Fprintf(ctx.Out, "%v is at %v in %v\n",
		verified.Commitment(), verified.Position(), verified.Root())

	return nil
}

// endBlockAction closes the current block and stores the new root as an
// anchor.
//
// - implements cmd.Action
type endBlockAction struct{}

// Execute implements cmd.Action.
func (endBlockAction) Execute(ctx Context) error {
	acc, err := ctx.Store.Load(accumulator.WithLogger(tct.Logger))
	if err != nil {
		return err
	}

	err = acc.EndBlock()
	if err != nil {
		return xerrors.Errorf("failed to end block: %v", err)
	}

	return commit(ctx, acc)
}

// endEpochAction closes the current epoch and stores the new root as an
// anchor.
//
// - implements cmd.Action
type endEpochAction struct{}

// Execute implements cmd.Action.
func (endEpochAction) Execute(ctx Context) error {
	acc, err := ctx.Store.Load(accumulator.WithLogger(tct.Logger))
	if err != nil {
		return err
	}

	err = acc.EndEpoch()
	if err != nil {
		return xerrors.Errorf("failed to end epoch: %v", err)
	}

	return commit(ctx, acc)
}

// listAnchorsAction prints the anchors by increasing height.
//
// - implements cmd.Action
type listAnchorsAction struct{}

// Execute implements cmd.Action.
func (listAnchorsAction) Execute(ctx Context) error {
	err := ctx.Store.ForEachAnchor(func(anchor state.Anchor) error {
		printAnchor(ctx, anchor)
		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to read anchors: %v", err)
	}

	return nil
}

// getAnchorAction prints the anchor at the given height.
//
// - implements cmd.Action
type getAnchorAction struct{}

// Execute implements cmd.Action.
func (getAnchorAction) Execute(ctx Context) error {
	height := ctx.Flags.Uint64("height")

	root, err := ctx.Store.GetAnchor(height)
	if err != nil {
		return err
	}

	printAnchor(ctx, state.Anchor{Height: height, Root: root})

	return nil
}

// lastAnchorAction prints the latest anchor, or nothing when no block was
// ended yet.
//
// - implements cmd.Action
type lastAnchorAction struct{}

// Execute implements cmd.Action.
func (lastAnchorAction) Execute(ctx Context) error {
	anchor, found, err := ctx.Store.LastAnchor()
	if err != nil {
		return err
	}

	if found {
		printAnchor(ctx, anchor)
	}

	return nil
}

// serveAction serves the tree over HTTP until the process receives an
// interrupt.
//
// - implements cmd.Action
type serveAction struct {
	sigs chan os.Signal
}

func newServeAction() serveAction {
	return serveAction{
		sigs: make(chan os.Signal, 1),
	}
}

// Execute implements cmd.Action.
func (a serveAction) Execute(ctx Context) error {
	acc, err := ctx.Store.Load(accumulator.WithLogger(tct.Logger))
	if err != nil {
		return err
	}

	listen := ctx.Config.Listen
	if ctx.Flags.String("listen") != "" {
		listen = ctx.Flags.String("listen")
	}

	srv := server.NewServer(listen, acc, ctx.Store)

	signal.Notify(a.sigs, os.Interrupt)
	defer signal.Stop(a.sigs)

	errs := make(chan error, 1)

	go func() {
		errs <- srv.Listen()
	}()

	select {
	case err := <-errs:
		return xerrors.Errorf("server failed: %v", err)
	case <-a.sigs:
	}

	srv.Stop()

	err = <-errs
	if err != nil {
		return xerrors.Errorf("server failed: %v", err)
	}

	return nil
}

func commit(ctx Context, acc *accumulator.Accumulator) error {
	anchor, err := ctx.Store.Commit(acc)
	if err != nil {
		return err
	}

	printAnchor(ctx, anchor)

	return nil
}

func printAnchor(ctx Context, anchor state.Anchor) {
	fmt.Fprintf(ctx.Out, "%d %v\n", anchor.Height, anchor.Root)
}

func parseCommitments(values []string) ([]digest.Commitment, error) {
	commitments := make([]digest.Commitment, len(values))

	for i, value := range values {
		c, err := digest.ParseCommitment(value)
		if err != nil {
			return nil, xerrors.Errorf("malformed commitment '%s': %v", value, err)
		}

		commitments[i] = c
	}

	return commitments, nil
}
