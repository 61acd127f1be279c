package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/turing/internal/config"
	"github.com/aretw0/turing/pkg/adapters/file"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/ports"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns what it printed on
// stdout. The command tree is global, so flags are reset around each run.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvPath, "")
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestRun(t *testing.T) {
	out, err := execute(t, "run", "testdata/increment.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "successful after 8 steps")
	assert.Contains(t, out, "step 8/8  state done  halted (successful)")
	assert.Contains(t, out, "| 1 | 1 | 0 | 0 | _ |")
}

func TestRun_FailedHalt(t *testing.T) {
	out, err := execute(t, "run", "testdata/reject.yaml")
	assert.ErrorIs(t, err, errFailedHalt)
	assert.Contains(t, out, "failed after 0 steps")
}

func TestRun_StepLimit(t *testing.T) {
	_, err := execute(t, "run", "--max-steps", "5", "testdata/loop.yaml")
	require.ErrorIs(t, err, domain.ErrStepLimit)
	assert.Contains(t, err.Error(), "stopped after 5 steps")
}

func TestRun_Errors(t *testing.T) {
	tests := map[string][]string{
		"missing file":   {"run", "testdata/missing.tm"},
		"unknown format": {"run", "testdata/README"},
		"dangling":       {"run", "testdata/dangling.yaml"},
		"no args":        {"run"},
		"bad log level":  {"--log-level", "loud", "version"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := execute(t, args...); err == nil {
				t.Errorf("turing %s succeeded, want an error", strings.Join(args, " "))
			}
		})
	}
}

func TestTrace(t *testing.T) {
	out, err := execute(t, "trace", "--cells", "5", "testdata/flip.tm")
	require.NoError(t, err)

	assert.Equal(t, 5, strings.Count(out, "step "), out)
	assert.Contains(t, out, "step 0/0  state q0")
	assert.Contains(t, out, "successful after 4 steps")
}

func TestGraph(t *testing.T) {
	out, err := execute(t, "graph", "testdata/flip.tm")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.Contains(t, out, `s0(("q0"))`)
	assert.Contains(t, out, `s1((("done")))`)
	assert.NotContains(t, out, "classDef")

	out, err = execute(t, "graph", "--run", "testdata/flip.tm")
	require.NoError(t, err)
	assert.Contains(t, out, "class s0 visited;")
	assert.Contains(t, out, "class s1 current;")
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", "testdata/flip.tm")
	require.NoError(t, err)
	assert.Contains(t, out, "Machine is valid")

	out, err = execute(t, "validate", "testdata/dangling.yaml")
	assert.Error(t, err)
	assert.Contains(t, out, "no start state")
	assert.Contains(t, out, `targets unknown state "nowhere"`)

	out, err = execute(t, "validate", "testdata/nondeterministic.yaml")
	require.NoError(t, err, "conflicts are warnings")
	assert.Contains(t, out, `warning: state "q0": 2 transitions read "a"`)
	assert.Contains(t, out, "Machine is valid")
}

func TestConvert(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "flip.yaml")
	out, err := execute(t, "convert", "testdata/flip.tm", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "start_state: q0")

	out, err = execute(t, "run", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "successful after 4 steps")
}

func TestDescribe(t *testing.T) {
	out, err := execute(t, "describe", "--raw", "testdata/flip.tm")
	require.NoError(t, err)
	assert.Contains(t, out, "# flip.tm")
	assert.Contains(t, out, "| q0 | `a` | `b` | R | q0 |")

	out, err = execute(t, "describe", "testdata/increment.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "increment.yaml")
}

func TestMachines(t *testing.T) {
	dir := t.TempDir()
	store := file.New(filepath.Join(dir, "machines"))
	require.NoError(t, store.Save(context.Background(), "m1", &domain.Snapshot{Tape: "ab"}))

	cfgPath := filepath.Join(dir, "turing.yaml")
	doc := "store:\n  kind: file\n  dir: " + filepath.Join(dir, "machines") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(doc), 0o644))

	out, err := execute(t, "--config", cfgPath, "machines", "ls")
	require.NoError(t, err)
	assert.Equal(t, "m1\n", out)

	out, err = execute(t, "--config", cfgPath, "machines", "inspect", "--format", "json", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, `"tape": "ab"`)

	out, err = execute(t, "--config", cfgPath, "machines", "rm", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed machine 'm1'")

	out, err = execute(t, "--config", cfgPath, "machines", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored machines found.")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Regexp(t, `^turing version \d+\.\d+\.\d+\n$`, out)
}

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		name   string
		store  config.StoreConfig
		locked bool
	}{
		{"memory", config.StoreConfig{Kind: config.StoreMemory}, false},
		{"file", config.StoreConfig{Kind: config.StoreFile, Dir: filepath.Join(dir, "files")}, false},
		{"sqlite", config.StoreConfig{Kind: config.StoreSQLite, Path: filepath.Join(dir, "db", "machines.db")}, false},
		{"redis", config.StoreConfig{Kind: config.StoreRedis, Addr: mr.Addr(), Prefix: "t:"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, opts, closeStore, err := openStore(tt.store)
			require.NoError(t, err)
			defer closeStore()

			assert.Equal(t, tt.locked, len(opts) > 0, "only redis brings a locker")
			ports.RunMachineStoreContract(t, store)
		})
	}
}

func TestNewManager(t *testing.T) {
	cfg = config.Default()
	cfg.Store = config.StoreConfig{Kind: config.StoreFile, Dir: t.TempDir()}
	t.Cleanup(func() { cfg = config.Default() })

	sessions, closeStore, err := newManager(nil)
	require.NoError(t, err)
	defer closeStore()

	ctx := context.Background()
	id, m, err := sessions.Create(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, m.SetTape("ab"))
	require.NoError(t, sessions.CloseAll(ctx))

	snap, err := sessions.Store().Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ab", snap.Tape)
}
