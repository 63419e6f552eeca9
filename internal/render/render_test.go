package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const description = "digraph \"t\" {\n  \"A\";\n}\n"

// fakeDot writes a shell script standing in for Graphviz and returns its path.
func fakeDot(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake dot binary needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "dot")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestNewClient_Defaults(t *testing.T) {
	assert.Equal(t, "dot", NewClient("").DotBin)
	assert.Equal(t, "/opt/graphviz/dot", NewClient("/opt/graphviz/dot").DotBin)
}

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{"png", "JPG", " svg ", "pdf", "plain", "dot", "jpeg"} {
		_, err := ValidateFormat(f)
		assert.NoError(t, err, f)
	}

	_, err := ValidateFormat("bmp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "png")
	assert.Contains(t, err.Error(), "svg")
}

func TestRender_PipesDescriptionToDot(t *testing.T) {
	bin := fakeDot(t, "echo \"args:$*\"\ncat\n")
	c := NewClient(bin)

	out, err := c.Render(context.Background(), description, "svg")
	require.NoError(t, err)
	assert.Equal(t, "args:-Tsvg\n"+description, string(out))
}

func TestRender_DotFormatSkipsBinary(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing"))

	out, err := c.Render(context.Background(), description, "dot")
	require.NoError(t, err)
	assert.Equal(t, description, string(out))
}

func TestRender_FailureIncludesStderr(t *testing.T) {
	bin := fakeDot(t, "echo 'syntax error in line 1' >&2\nexit 3\n")
	c := NewClient(bin)

	_, err := c.Render(context.Background(), description, "png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRenderer))
	assert.Contains(t, err.Error(), "syntax error in line 1")
	assert.Contains(t, err.Error(), "-Tpng")
}

func TestRender_MissingBinary(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "no-such-dot"))

	_, err := c.Render(context.Background(), description, "png")
	assert.ErrorIs(t, err, ErrRenderer)
}

func TestWriteFile_CreatesOutputDir(t *testing.T) {
	bin := fakeDot(t, "cat\n")
	c := NewClient(bin)
	dir := filepath.Join(t.TempDir(), "out", "nested")

	path, err := c.WriteFile(context.Background(), description, dir, "project", "pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "project.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, description, string(data))
}

func TestOutputPath(t *testing.T) {
	p, err := OutputPath("", "project", "png")
	require.NoError(t, err)
	assert.Equal(t, "project.png", p)

	p, err = OutputPath("out", "plan", "svg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "plan.svg"), p)
}

func TestOutputPath_RejectsPathTitles(t *testing.T) {
	for _, title := range []string{"", ".", "..", "../../x", "a/b", `a\b`} {
		_, err := OutputPath("out", title, "svg")
		assert.Error(t, err, "title %q", title)
	}
}

func TestWriteFile_TitleCannotLeaveOutputDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "a", "b")
	c := NewClient("/nonexistent/dot")

	_, err := c.WriteFile(context.Background(), description, dir, "../../x", FormatDOT)
	require.ErrorContains(t, err, "invalid title")
	assert.NoFileExists(t, filepath.Join(root, "x.dot"))
	assert.NoDirExists(t, dir)
}

func TestVersion(t *testing.T) {
	bin := fakeDot(t, "echo 'dot - graphviz version 2.43.0' >&2\n")
	c := NewClient(bin)

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dot - graphviz version 2.43.0", v)
}
