package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/tct/core/accumulator"
	"go.dedis.ch/tct/core/store/kv"
	"go.dedis.ch/tct/core/store/state"
	"go.dedis.ch/tct/internal/testing/fake"
)

func TestInsertAction_Execute(t *testing.T) {
	ctx, out := makeContext(t, fake.NewDB(), fakeFlags{
		slices: map[string][]string{"commitment": {makeHex(1)}},
	})

	err := insertAction{}.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, "inserted "+makeHex(1)+" at 0/0/0\n", out.String())

	acc, err := ctx.Store.Load()
	require.NoError(t, err)
	require.Equal(t, uint64(1), acc.Len())
}

func TestInsertAction_PartialFailure(t *testing.T) {
	db := fake.NewDB()
	store := state.NewStore(db)

	acc := accumulator.New()
	require.NoError(t, acc.InsertBlockRoot(accumulator.BlockRoot{1}))
	require.NoError(t, store.Save(acc))

	ctx, out := makeContext(t, db, fakeFlags{
		slices: map[string][]string{"commitment": {makeHex(1)}},
	})

	err := insertAction{}.Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert: failed to insert "+makeHex(1)+": ")
	require.Empty(t, out.String())
}

func TestInsertAction_StoreFailures(t *testing.T) {
	flags := fakeFlags{
		slices: map[string][]string{"commitment": {makeHex(1)}},
	}

	ctx, _ := makeContext(t, fake.NewBadDB(), flags)

	err := insertAction{}.Execute(ctx)
	require.EqualError(t, err, fake.Err("failed to read snapshot"))

	db := fake.NewDB()
	db.ErrUpdate = fake.GetError()

	ctx, _ = makeContext(t, db, flags)

	err = insertAction{}.Execute(ctx)
	require.EqualError(t, err, fake.Err("failed to write snapshot"))
}

func TestActions_LoadFailure(t *testing.T) {
	flags := fakeFlags{
		strings: map[string]string{"commitment": makeHex(1)},
		slices:  map[string][]string{"commitment": {makeHex(1)}},
	}

	actions := []Action{
		forgetAction{},
		rootAction{},
		witnessAction{},
		endBlockAction{},
		endEpochAction{},
		newServeAction(),
	}

	for _, action := range actions {
		ctx, _ := makeContext(t, fake.NewBadDB(), flags)

		err := action.Execute(ctx)
		require.EqualError(t, err, fake.Err("failed to read snapshot"))
	}

	dir := t.TempDir()
	proofPath := filepath.Join(dir, "proof.json")
	require.NoError(t, os.WriteFile(proofPath, []byte("{}"), 0600))

	ctx, _ := makeContext(t, fake.NewBadDB(), fakeFlags{
		paths: map[string]string{"proof": proofPath},
	})

	err := verifyAction{}.Execute(ctx)
	require.EqualError(t, err, fake.Err("failed to read snapshot"))
}

func TestEndBlockAction_CommitFailure(t *testing.T) {
	db := fake.NewDB()
	db.ErrUpdate = fake.GetError()

	ctx, _ := makeContext(t, db, fakeFlags{})

	err := endBlockAction{}.Execute(ctx)
	require.EqualError(t, err, fake.Err("failed to commit"))
}

func TestEndBlockAction_Full(t *testing.T) {
	db := fake.NewDB()
	store := state.NewStore(db)

	acc := accumulator.New()
	require.NoError(t, acc.InsertEpochRoot(accumulator.EpochRoot{1}))
	require.NoError(t, store.Save(acc))

	ctx, _ := makeContext(t, db, fakeFlags{})

	err := endBlockAction{}.Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to end block: failed to insert block: ")
}

func TestAnchorsActions_Failures(t *testing.T) {
	ctx, _ := makeContext(t, fake.NewBadDB(), fakeFlags{})

	err := listAnchorsAction{}.Execute(ctx)
	require.EqualError(t, err, fake.Err("failed to read anchors"))

	err = lastAnchorAction{}.Execute(ctx)
	require.EqualError(t, err, fake.Err("failed to read anchors"))

	err = getAnchorAction{}.Execute(ctx)
	require.EqualError(t, err, fake.Err("failed to read anchor"))
}

func TestLastAnchorAction_Execute(t *testing.T) {
	db := fake.NewDB()

	ctx, out := makeContext(t, db, fakeFlags{})

	err := lastAnchorAction{}.Execute(ctx)
	require.NoError(t, err)
	require.Empty(t, out.String())

	root := accumulator.Root{2}
	require.NoError(t, ctx.Store.PutAnchor(256, root))

	err = lastAnchorAction{}.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, "256 "+root.String()+"\n", out.String())
}

func TestServeAction_Execute(t *testing.T) {
	db, err := kv.New(filepath.Join(t.TempDir(), "tree.db"))
	require.NoError(t, err)

	defer db.Close()

	ctx, _ := makeContext(t, db, fakeFlags{
		strings: map[string]string{"listen": "127.0.0.1:0"},
	})

	action := newServeAction()
	action.sigs <- os.Interrupt

	err = action.Execute(ctx)
	require.NoError(t, err)
}

func TestServeAction_BadAddress(t *testing.T) {
	ctx, _ := makeContext(t, fake.NewDB(), fakeFlags{
		strings: map[string]string{"listen": "not an address"},
	})

	err := newServeAction().Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "server failed: failed to listen on 'not an address': ")
}

// -----------------------------------------------------------------------------
// Utility functions

func makeContext(t *testing.T, db kv.DB, flags fakeFlags) (Context, *bytes.Buffer) {
	out := new(bytes.Buffer)

	config := DefaultConfig()
	require.NoError(t, config.validate())

	ctx := Context{
		Flags:  flags,
		Out:    out,
		Config: config,
		Store:  state.NewStore(db),
	}

	return ctx, out
}
