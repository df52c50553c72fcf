package cmd

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/tct/core/digest"
	"go.dedis.ch/tct/crypto"
)

func TestNewApp(t *testing.T) {
	app := NewApp(new(bytes.Buffer), NewController(nil)).(*urfave.App)

	require.Equal(t, "tct", app.Name)
	require.Equal(t, "config", app.Flags[0].Names()[0])
	require.Equal(t, "db", app.Flags[1].Names()[0])
	require.Equal(t, "log-level", app.Flags[2].Names()[0])

	names := make([]string, 0, len(app.Commands))
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}

	require.Equal(t, []string{"insert", "forget", "root", "witness", "verify",
		"end-block", "end-epoch", "anchors", "serve", "help"}, names)

	anchors := app.Commands[7]

	names = names[:0]
	for _, cmd := range anchors.Subcommands {
		names = append(names, cmd.Name)
	}

	require.Equal(t, []string{"list", "get", "last"}, names)
}

func TestNewDefaultApp(t *testing.T) {
	app := NewDefaultApp().(*urfave.App)
	require.Len(t, app.Commands, 10)
}

func TestApp_InsertAndRoot(t *testing.T) {
	db := filepath.Join(t.TempDir(), "tree.db")
	c := makeHex(1)

	out, err := run(t, "--db", db, "insert", "--commitment", c, "--data", "hello")
	require.NoError(t, err)

	derived, err := digest.Derive(crypto.NewSha256Factory(), []byte("hello"))
	require.NoError(t, err)

	require.Equal(t, "inserted "+c+" at 0/0/0\ninserted "+derived.String()+" at 0/0/1\n", out)

	out, err = run(t, "--db", db, "insert", "--discard", "--commitment", makeHex(2))
	require.NoError(t, err)
	require.Equal(t, "inserted "+makeHex(2)+"\n", out)

	out, err = run(t, "--db", db, "root")
	require.NoError(t, err)
	require.Contains(t, out, "len: 3\n")
	require.Contains(t, out, "witnessed: 2\n")
}

func TestApp_Insert_Failures(t *testing.T) {
	db := filepath.Join(t.TempDir(), "tree.db")

	_, err := run(t, "--db", db, "insert")
	require.EqualError(t, err, "no commitment provided")

	_, err = run(t, "--db", db, "insert", "--commitment", "abc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed commitment 'abc': ")

	_, err = run(t, "--db", db, "--log-level", "nope", "insert")
	require.Error(t, err)
	require.Contains(t, err.Error(), "config: invalid log-level: ")

	_, err = run(t, "--db", filepath.Join(t.TempDir(), "missing", "tree.db"), "root")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to open database: ")
}

func TestApp_Forget(t *testing.T) {
	db := filepath.Join(t.TempDir(), "tree.db")

	_, err := run(t, "--db", db, "insert", "--commitment", makeHex(1))
	require.NoError(t, err)

	out, err := run(t, "--db", db, "forget", "--commitment", makeHex(1), "--commitment", makeHex(2))
	require.NoError(t, err)
	require.Equal(t, "forgot "+makeHex(1)+"\n"+makeHex(2)+" is not witnessed\n", out)

	out, err = run(t, "--db", db, "root")
	require.NoError(t, err)
	require.Contains(t, out, "len: 1\n")
	require.Contains(t, out, "witnessed: 0\n")

	_, err = run(t, "--db", db, "forget", "--commitment", "zz")
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed commitment 'zz': ")
}

func TestApp_WitnessAndVerify(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "tree.db")

	_, err := run(t, "--db", db, "insert", "--commitment", makeHex(1), "--commitment", makeHex(2))
	require.NoError(t, err)

	out, err := run(t, "--db", db, "witness", "--commitment", makeHex(2))
	require.NoError(t, err)

	proofPath := filepath.Join(dir, "proof.json")
	err = os.WriteFile(proofPath, []byte(out), 0600)
	require.NoError(t, err)

	out, err = run(t, "--db", db, "verify", "--proof", proofPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, makeHex(2)+" is at 0/0/1 in "))

	root := strings.TrimSpace(strings.TrimPrefix(out, makeHex(2)+" is at 0/0/1 in "))

	_, err = run(t, "--db", db, "verify", "--proof", proofPath, "--root", root)
	require.NoError(t, err)

	_, err = run(t, "--db", db, "insert", "--commitment", makeHex(3))
	require.NoError(t, err)

	// The tree has moved on but the proof is still valid for the old root.
	_, err = run(t, "--db", db, "verify", "--proof", proofPath, "--root", root)
	require.NoError(t, err)

	_, err = run(t, "--db", db, "verify", "--proof", proofPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid proof: root mismatch: ")

	_, err = run(t, "--db", db, "verify", "--proof", proofPath, "--root", "abc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed root: ")

	_, err = run(t, "--db", db, "verify", "--proof", filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read proof: ")

	err = os.WriteFile(proofPath, []byte("{"), 0600)
	require.NoError(t, err)

	_, err = run(t, "--db", db, "verify", "--proof", proofPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode proof: ")

	_, err = run(t, "--db", db, "witness", "--commitment", makeHex(4))
	require.EqualError(t, err, "commitment "+makeHex(4)+" is not witnessed")

	_, err = run(t, "--db", db, "witness", "--commitment", "abc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed commitment: ")
}

func TestApp_Anchors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "tree.db")

	_, err := run(t, "--db", db, "insert", "--commitment", makeHex(1))
	require.NoError(t, err)

	out, err := run(t, "--db", db, "end-block")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "0 "))

	first := out

	out, err = run(t, "--db", db, "end-epoch")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "1 "))

	second := out

	out, err = run(t, "--db", db, "anchors", "list")
	require.NoError(t, err)
	require.Equal(t, first+second, out)

	out, err = run(t, "--db", db, "anchors", "get", "--height", "1")
	require.NoError(t, err)
	require.Equal(t, second, out)

	out, err = run(t, "--db", db, "anchors", "last")
	require.NoError(t, err)
	require.Equal(t, second, out)

	_, err = run(t, "--db", db, "anchors", "get", "--height", "5")
	require.EqualError(t, err, "failed to read anchor: anchor 5 not found")

	_, err = run(t, "--db", db, "anchors", "get")
	require.Error(t, err)
	require.Contains(t, err.Error(), "height")

	// The snapshot is saved with the anchor.
	out, err = run(t, "--db", db, "insert", "--commitment", makeHex(2))
	require.NoError(t, err)
	require.Equal(t, "inserted "+makeHex(2)+" at 1/0/0\n", out)
}

func TestApp_Config(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")

	err := os.WriteFile(config, []byte("db: "+filepath.Join(dir, "tree.db")+"\nhash: sha3-256\n"), 0600)
	require.NoError(t, err)

	out, err := run(t, "--config", config, "insert", "--data", "hello")
	require.NoError(t, err)

	derived, err := digest.Derive(crypto.NewHashFactory(crypto.Sha3_256), []byte("hello"))
	require.NoError(t, err)

	require.Equal(t, "inserted "+derived.String()+" at 0/0/0\n", out)

	_, err = os.Stat(filepath.Join(dir, "tree.db"))
	require.NoError(t, err)

	_, err = run(t, "--config", filepath.Join(dir, "missing.yaml"), "root")
	require.Error(t, err)
	require.Contains(t, err.Error(), "config: failed to read config: ")
}

// -----------------------------------------------------------------------------
// Utility functions

func run(t *testing.T, args ...string) (string, error) {
	out := new(bytes.Buffer)

	app := NewApp(out, NewController(out))

	err := app.Run(append([]string{"tct"}, args...))

	return out.String(), err
}

func makeHex(i byte) string {
	c := make([]byte, digest.Size)
	c[0] = i
	c[digest.Size-1] = 0xaa

	return hex.EncodeToString(c)
}
