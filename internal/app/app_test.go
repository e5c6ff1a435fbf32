package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/neix/internal/nix"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `{
  "legacyPackages.x86_64-linux.hello": {
    "pname": "hello",
    "version": "2.12.1",
    "description": "A program that produces a familiar, friendly greeting"
  },
  "legacyPackages.x86_64-linux.hello-wayland": {
    "pname": "hello-wayland",
    "version": "0.1",
    "description": "Hello world Wayland client"
  },
  "legacyPackages.x86_64-linux.shello": {
    "pname": "shello",
    "version": "1.0"
  },
  "legacyPackages.x86_64-linux.python311": {
    "pname": "python3",
    "version": "3.11.9"
  },
  "legacyPackages.x86_64-linux.python312": {
    "pname": "python3",
    "version": "3.12.4"
  }
}`

// setupEnv points every neix directory into a temp dir and returns a
// snapshot file holding fixture.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("NEIX_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("NEIX_LIMIT", "")
	t.Setenv("NEIX_PRUNE", "")
	t.Setenv("NEIX_VERSION_ORDER", "")
	t.Setenv("NEIX_LOG_LEVEL", "")
	return writeSnapshot(t, dir, "packages.json", fixture)
}

func writeSnapshot(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// resetFlags restores every flag to its default so state from one
// execution does not leak into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(RootCmd)

	var stdout, stderr bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(args)

	err := RootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "neix [TERM]", RootCmd.Use)
	assert.NotEmpty(t, RootCmd.Short)
	assert.NotEmpty(t, RootCmd.Long)

	found := map[string]bool{}
	for _, c := range RootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"search", "update", "info", "export", "restore"} {
		assert.True(t, found[name], "expected command %q to be registered", name)
	}

	for _, name := range []string{"db", "data-dir", "config", "log-level", "log-format", "version-order"} {
		f := RootCmd.PersistentFlags().Lookup(name)
		if assert.NotNil(t, f, "expected --%s", name) {
			assert.NotEmpty(t, f.Usage)
		}
	}
	assert.NotNil(t, RootCmd.Flags().ShorthandLookup("l"))
}

func TestCommandHelpIsDedented(t *testing.T) {
	for _, c := range append(RootCmd.Commands(), RootCmd) {
		if c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		t.Run(c.Name(), func(t *testing.T) {
			for field, text := range map[string]string{"Long": c.Long, "Example": c.Example} {
				require.NotEmpty(t, text, "%s must be set", field)
				assert.NotContains(t, text, "\n\t", "%s keeps source indentation", field)
				assert.False(t, strings.HasPrefix(text, "\t"), "%s keeps source indentation", field)
			}
		})
	}
}

func TestRoot_NoArgsPrintsHint(t *testing.T) {
	setupEnv(t)

	out, _, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "neix --update")
}

func TestSearch_BeforeFirstUpdate(t *testing.T) {
	setupEnv(t)

	out, _, err := execute(t, "hello")
	require.NoError(t, err)
	assert.Equal(t, "No packages found\nRun neix --update to create the database\n", out)
}

func TestUpdateThenSearch_RanksTiers(t *testing.T) {
	snap := setupEnv(t)

	out, _, err := execute(t, "update", "--from-file", snap)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ index updated: 5 packages from file "+snap)

	out, _, err = execute(t, "hello")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Found 3 package(s):\n"), out)

	exact := strings.Index(out, "[1] legacyPackages.x86_64-linux.hello\n")
	prefix := strings.Index(out, "[2] legacyPackages.x86_64-linux.hello-wayland\n")
	substr := strings.Index(out, "[3] legacyPackages.x86_64-linux.shello\n")
	require.True(t, exact >= 0 && prefix >= 0 && substr >= 0, out)
	assert.Less(t, exact, prefix)
	assert.Less(t, prefix, substr)
	assert.Contains(t, out, "Version: no version")
	assert.Contains(t, out, "Description: no description")
}

func TestRoot_UpdateFlagThenQuery(t *testing.T) {
	snap := setupEnv(t)

	out, _, err := execute(t, "--update", "--from-file", snap, "python3")
	require.NoError(t, err)
	assert.Contains(t, out, "index updated")
	assert.Contains(t, out, "Found 1 package(s):")
	assert.Contains(t, out, "legacyPackages.x86_64-linux.python312")
	assert.NotContains(t, out, "3.11.9")
}

func TestSearch_JSONAndLimit(t *testing.T) {
	snap := setupEnv(t)
	_, _, err := execute(t, "update", "--from-file", snap)
	require.NoError(t, err)

	out, _, err := execute(t, "search", "--json", "-l", "2", "hello")
	require.NoError(t, err)

	var got []struct {
		Attr    string  `json:"attr"`
		Name    string  `json:"name"`
		Version *string `json:"version"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "hello", got[0].Name)
	assert.Equal(t, "hello-wayland", got[1].Name)
}

func TestSearch_NoMatch(t *testing.T) {
	snap := setupEnv(t)
	_, _, err := execute(t, "update", "--from-file", snap)
	require.NoError(t, err)

	out, _, err := execute(t, "search", "zzz")
	require.NoError(t, err)
	assert.Contains(t, out, "No packages found")

	out, _, err = execute(t, "search", "--json", "zzz")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestSearch_IgnoresCaseBeyondExactMatch(t *testing.T) {
	snap := setupEnv(t)
	_, _, err := execute(t, "update", "--from-file", snap)
	require.NoError(t, err)

	out, _, err := execute(t, "search", "--json", "HELLO")
	require.NoError(t, err)

	var got []struct {
		Attr string `json:"attr"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "legacyPackages.x86_64-linux.hello", got[0].Attr)
	assert.Equal(t, "legacyPackages.x86_64-linux.hello-wayland", got[1].Attr)
	assert.Equal(t, "legacyPackages.x86_64-linux.shello", got[2].Attr)
}

func TestInvalidLimit(t *testing.T) {
	setupEnv(t)

	_, _, err := execute(t, "-l", "0", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must be positive")
}

func TestFlagOverridesInvalidEnvironment(t *testing.T) {
	setupEnv(t)
	t.Setenv("NEIX_VERSION_ORDER", "semver")

	_, _, err := execute(t, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown version order")

	out, _, err := execute(t, "--version-order", "natural", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "No packages found")
}

func TestUpdate_FailureKeepsIndex(t *testing.T) {
	snap := setupEnv(t)
	_, _, err := execute(t, "update", "--from-file", snap)
	require.NoError(t, err)

	broken := writeSnapshot(t, t.TempDir(), "broken.json", `{"a": `)
	_, _, err = execute(t, "update", "--from-file", broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index update failed")

	out, _, err := execute(t, "search", "--json", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "legacyPackages.x86_64-linux.shello")
}

func TestUpdate_KeepsMissingByDefault(t *testing.T) {
	snap := setupEnv(t)
	_, _, err := execute(t, "update", "--from-file", snap)
	require.NoError(t, err)

	small := writeSnapshot(t, t.TempDir(), "small.json",
		`{"legacyPackages.x86_64-linux.hello": {"pname": "hello", "version": "2.12.2"}}`)
	_, _, err = execute(t, "update", "--from-file", small)
	require.NoError(t, err)

	out, _, err := execute(t, "info")
	require.NoError(t, err)
	assert.Regexp(t, `Packages:\s+5`, out)
	assert.Regexp(t, `Last snapshot:\s+1 packages`, out)

	out, _, err = execute(t, "info", "legacyPackages.x86_64-linux.hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: 2.12.2")
	assert.Contains(t, out, "Description: no description")
}

func TestUpdate_PruneBacksUpAndRestore(t *testing.T) {
	snap := setupEnv(t)
	_, _, err := execute(t, "update", "--from-file", snap)
	require.NoError(t, err)

	small := writeSnapshot(t, t.TempDir(), "small.json",
		`{"legacyPackages.x86_64-linux.hello": {"pname": "hello", "version": "2.12.1"}}`)
	out, _, err := execute(t, "update", "--from-file", small, "--prune")
	require.NoError(t, err)
	assert.Contains(t, out, "previous index saved to")

	out, _, err = execute(t, "info")
	require.NoError(t, err)
	assert.Regexp(t, `Packages:\s+1\n`, out)
	assert.Contains(t, out, "Backups:")
	assert.Contains(t, out, "1 (latest")

	out, _, err = execute(t, "restore")
	require.NoError(t, err)
	assert.Contains(t, out, "index restored: 5 packages")

	out, _, err = execute(t, "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 3 package(s):")
}

func TestUpdate_PruneRefusesEmptySnapshot(t *testing.T) {
	snap := setupEnv(t)
	_, _, err := execute(t, "update", "--from-file", snap)
	require.NoError(t, err)

	empty := writeSnapshot(t, t.TempDir(), "empty.json", `{}`)
	_, _, err = execute(t, "update", "--from-file", empty, "--prune")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to prune")

	out, _, err := execute(t, "info")
	require.NoError(t, err)
	assert.Regexp(t, `Packages:\s+5`, out)
}

func TestUpdate_WatchNeedsLocalSource(t *testing.T) {
	setupEnv(t)

	_, _, err := execute(t, "update", "--watch", "--source", "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--watch requires")
}

func TestUpdate_UnknownSource(t *testing.T) {
	setupEnv(t)

	_, _, err := execute(t, "update", "--source", "channel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source must be")
}

func TestRestore_NoBackups(t *testing.T) {
	setupEnv(t)

	_, _, err := execute(t, "restore")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no backups found")
}

func TestInfo_NeverIndexed(t *testing.T) {
	setupEnv(t)

	out, _, err := execute(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "never")

	_, _, err = execute(t, "info", "legacyPackages.x86_64-linux.hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestExport_RoundTrip(t *testing.T) {
	snap := setupEnv(t)
	_, _, err := execute(t, "update", "--from-file", snap)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	_, stderr, err := execute(t, "export", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "exported 5 packages")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got, err := nix.Parse(data, nix.ParseOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, "python3", got["legacyPackages.x86_64-linux.python311"].Name)
}

func TestVersionOrderFlag(t *testing.T) {
	dir := t.TempDir()
	setupEnv(t)
	snap := writeSnapshot(t, dir, "versions.json", `{
  "a.foo9": {"pname": "foo", "version": "1.9"},
  "a.foo10": {"pname": "foo", "version": "1.10"}
}`)
	_, _, err := execute(t, "update", "--from-file", snap)
	require.NoError(t, err)

	out, _, err := execute(t, "search", "--json", "foo")
	require.NoError(t, err)
	assert.Contains(t, out, `"1.9"`)

	out, _, err = execute(t, "search", "--version-order", "natural", "--json", "foo")
	require.NoError(t, err)
	assert.Contains(t, out, `"1.10"`)
}
