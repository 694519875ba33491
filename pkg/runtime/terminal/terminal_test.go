package terminal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolveFixture(t *testing.T) (*CLI, *cobra.Command) {
	cli := NewCLI(Options{Output: os.Stdout})
	cli.sessionPath = filepath.Join(t.TempDir(), "session.json")

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cli, cmd
}

func TestResolve_ProfileFileBypassesRcmrc(t *testing.T) {
	cli, cmd := newResolveFixture(t)

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"host: https://staging.rcm.example.com\ntoken: svc-token\ntimeout_seconds: 45\n",
	), 0o600))

	cli.profileFile = path
	// Nonexistent on purpose: with a profile file the registry is never read.
	cli.rcmrcPath = filepath.Join(t.TempDir(), "does-not-exist")

	deps, err := cli.resolve(cmd)
	require.NoError(t, err)
	require.NotNil(t, deps.Client)
	assert.NotNil(t, deps.Auth)
}

func TestResolve_ProfileFileWithoutHost_Fails(t *testing.T) {
	cli, cmd := newResolveFixture(t)

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: svc-token\n"), 0o600))
	cli.profileFile = path

	_, err := cli.resolve(cmd)
	require.Error(t, err)
}

func TestResolve_MissingRcmrc_Fails(t *testing.T) {
	cli, cmd := newResolveFixture(t)
	cli.rcmrcPath = filepath.Join(t.TempDir(), "does-not-exist")

	_, err := cli.resolve(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rcmrc")
}
