// Package render hands DOT descriptions to the Graphviz dot binary.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ErrRenderer indicates the external renderer is missing or failed.
var ErrRenderer = errors.New("renderer error")

// FormatDOT returns the description unchanged, without invoking Graphviz.
const FormatDOT = "dot"

// graphvizFormats maps output formats to the dot -T flag value.
var graphvizFormats = map[string]string{
	"png":   "png",
	"jpg":   "jpg",
	"jpeg":  "jpg",
	"pdf":   "pdf",
	"svg":   "svg",
	"plain": "plain",
}

// Formats lists every accepted output format, sorted.
func Formats() []string {
	out := []string{FormatDOT}
	for f := range graphvizFormats {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ValidateFormat returns the canonical name for format or an error listing
// the valid ones.
func ValidateFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == FormatDOT {
		return f, nil
	}
	if _, ok := graphvizFormats[f]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (valid: %s)", format, strings.Join(Formats(), ", "))
}

// Client wraps the Graphviz dot binary.
type Client struct {
	DotBin string // path to dot binary (default: "dot")
}

// NewClient creates a Client using the given dot binary path.
func NewClient(dotBin string) *Client {
	if dotBin == "" {
		dotBin = "dot"
	}
	return &Client{DotBin: dotBin}
}

// Render converts a DOT description into the requested format.
func (c *Client) Render(ctx context.Context, description, format string) ([]byte, error) {
	f, err := ValidateFormat(format)
	if err != nil {
		return nil, err
	}
	if f == FormatDOT {
		return []byte(description), nil
	}
	return c.run(ctx, description, "-T"+graphvizFormats[f])
}

// Version returns the version banner of the dot binary.
func (c *Client) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, c.DotBin, "-V")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s -V: %w\n%s", ErrRenderer, c.DotBin, err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *Client) run(ctx context.Context, stdin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.DotBin, args...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w\n%s", ErrRenderer, c.DotBin, strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// OutputPath returns <dir>/<title>.<format>. The title must name a file
// directly inside dir.
func OutputPath(dir, title, format string) (string, error) {
	if title == "" || title == "." || title == ".." || strings.ContainsAny(title, `/\`) {
		return "", fmt.Errorf("invalid title %q for an output file name", title)
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, title+"."+format), nil
}

// WriteFile renders description and writes it to OutputPath(dir, title, format),
// creating dir if needed. It returns the written path.
func (c *Client) WriteFile(ctx context.Context, description, dir, title, format string) (string, error) {
	f, err := ValidateFormat(format)
	if err != nil {
		return "", err
	}
	path, err := OutputPath(dir, title, f)
	if err != nil {
		return "", err
	}
	data, err := c.Render(ctx, description, f)
	if err != nil {
		return "", err
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
