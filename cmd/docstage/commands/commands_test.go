package commands

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docstage/internal/config"
	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/manifest"
	"git.home.luguber.info/inful/docstage/internal/workspace"
)

// execute parses args like main does and runs the selected command.
func execute(t *testing.T, args ...string) (string, int, error) {
	t.Helper()
	var stdout bytes.Buffer
	cli := &CLI{Stdout: &stdout, Stdin: strings.NewReader(""), LogSink: io.Discard}
	parser, err := kong.New(cli,
		kong.Name("docstage"),
		kong.Vars{"version": "test"},
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	runErr := kctx.Run(&Global{Logger: slog.Default()}, cli)

	var stderr bytes.Buffer
	code := errors.NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(io.Discard, nil))).Report(&stderr, runErr)
	return stdout.String(), code, runErr
}

func sourceTree(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	src := filepath.Join(base, "src")
	require.NoError(t, os.MkdirAll(src, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "index.md"), []byte("# Home\n\nHello.\n"), 0o600))
	return src, filepath.Join(base, "out")
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		verbose bool
		level   string
		want    slog.Level
	}{
		{false, "", slog.LevelInfo},
		{false, "debug", slog.LevelDebug},
		{false, "WARN", slog.LevelWarn},
		{false, "warning", slog.LevelWarn},
		{false, "error", slog.LevelError},
		{false, "bogus", slog.LevelInfo},
		{true, "error", slog.LevelDebug},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, parseLogLevel(tc.verbose, tc.level), "%v/%q", tc.verbose, tc.level)
	}
}

func TestBuild(t *testing.T) {
	src, out := sourceTree(t)

	stdout, code, err := execute(t, "build", "--source", src, "--output", out)
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "success: 1 documents")
	require.FileExists(t, filepath.Join(out, "index.md"))
	require.FileExists(t, filepath.Join(out, manifest.FileName))
	require.True(t, workspace.IsOwned(out))
}

func TestBuild_FlagsFromEnvironment(t *testing.T) {
	src, out := sourceTree(t)
	t.Setenv("DOCSTAGE_SOURCE", src)
	t.Setenv("DOCSTAGE_OUTPUT", out)
	t.Setenv("DOCSTAGE_DRY_RUN", "true")

	_, code, err := execute(t, "build")
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.NoDirExists(t, out)
}

func TestBuild_UnmanagedOutputRoot(t *testing.T) {
	src, out := sourceTree(t)
	require.NoError(t, os.MkdirAll(out, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(out, "keep.txt"), []byte("x"), 0o600))

	_, code, err := execute(t, "build", "-s", src, "-o", out)
	require.True(t, errors.HasCategory(err, errors.CategorySafety))
	require.Equal(t, 4, code)
	require.FileExists(t, filepath.Join(out, "keep.txt"))

	_, code, err = execute(t, "build", "-s", src, "-o", out, "--yes")
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.NoFileExists(t, filepath.Join(out, "keep.txt"))
}

func TestBuild_SafetyRefusal(t *testing.T) {
	src, _ := sourceTree(t)

	_, code, err := execute(t, "build", "-s", src, "-o", filepath.Join(src, "out"), "--yes")
	require.True(t, errors.HasCategory(err, errors.CategorySafety))
	require.Equal(t, 4, code)
}

func TestBuild_InvalidLink(t *testing.T) {
	src, out := sourceTree(t)

	_, code, err := execute(t, "build", "-s", src, "-o", out, "--link", "site=../escape")
	require.Error(t, err)
	require.Equal(t, 2, code)
	require.NoDirExists(t, out)
}

func TestBuild_Links(t *testing.T) {
	src, out := sourceTree(t)

	link := filepath.Join(filepath.Dir(out), "site", "docs")

	_, _, err := execute(t, "build", "-s", src, "-o", out, "--link", link)
	require.NoError(t, err)
	fi, err := os.Lstat(link)
	require.NoError(t, err)
	require.NotZero(t, fi.Mode()&os.ModeSymlink)
	require.FileExists(t, filepath.Join(link, "index.md"))
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	stdout, code, err := execute(t, "init", dir, "--site-name", "Handbook")
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Contains(t, stdout, config.FileName)
	require.FileExists(t, filepath.Join(dir, config.FileName))

	_, code, err = execute(t, "init", dir)
	require.Error(t, err)
	require.Equal(t, 2, code)

	_, _, err = execute(t, "init", dir, "--force")
	require.NoError(t, err)
}

func TestVersion(t *testing.T) {
	stdout, code, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.True(t, strings.HasPrefix(stdout, "docstage "))
}
