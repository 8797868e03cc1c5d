package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cli runs commands against a sqlite-backed config so state survives
// between invocations.
type cli struct {
	t          *testing.T
	configPath string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := "logging:\n  level: ERROR\nclient:\n  handle_owner: \"300:21.T12345/USER01\"\nstore:\n  type: sqlite\n  sqlite:\n    path: " +
		filepath.Join(dir, "handles.db") + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return &cli{t: t, configPath: configPath}
}

func (c *cli) run(args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"-config", c.configPath}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLI_Lifecycle(t *testing.T) {
	c := newCLI(t)
	const name = "21.T12345/cli-0001"

	code, out, errOut := c.run("register", "-url", "https://example.org/a", "-checksum", "abc", "-kv", "EMAIL=a@example.org", name)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, name+"\n", out)

	code, _, _ = c.run("register", "-url", "https://example.org/b", name)
	assert.Equal(t, 4, code)

	code, out, _ = c.run("get", "-key", "URL", name)
	require.Equal(t, 0, code)
	assert.Equal(t, "https://example.org/a\n", out)

	code, out, _ = c.run("get", name)
	require.Equal(t, 0, code)
	var rec handle.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, name, rec.Handle)
	assert.Equal(t, []int{100}, handle.IndicesForType(handle.TypeAdmin, rec.Values))

	code, _, errOut = c.run("modify", "-ttl", "600", name, "URL=https://example.org/moved", "NEW=v")
	require.Equal(t, 0, code, errOut)

	code, out, _ = c.run("get", "-flat", name)
	require.Equal(t, 0, code)
	var flat map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &flat))
	assert.Equal(t, "https://example.org/moved", flat["URL"])
	assert.Equal(t, "v", flat["NEW"])

	code, _, _ = c.run("add", name, "NEW=other")
	assert.Equal(t, 4, code)

	code, _, errOut = c.run("delete", "-key", "NEW", "-key", "EMAIL", name)
	require.Equal(t, 0, code, errOut)
	code, _, _ = c.run("get", "-key", "EMAIL", name)
	assert.Equal(t, 3, code)

	code, out, _ = c.run("search", "URL=*moved")
	require.Equal(t, 0, code)
	assert.Equal(t, name+"\n", out)

	code, out, _ = c.run("list", "-prefix", "21.T12345")
	require.Equal(t, 0, code)
	assert.Equal(t, name+"\n", out)

	code, _, _ = c.run("delete", name)
	require.Equal(t, 0, code)
	code, _, errOut = c.run("get", name)
	assert.Equal(t, 3, code)
	assert.Contains(t, errOut, "handle not found")
}

func TestCLI_Generate(t *testing.T) {
	c := newCLI(t)

	code, out, errOut := c.run("generate", "-url", "https://example.org/g", "21.T12345")
	require.Equal(t, 0, code, errOut)
	name := strings.TrimSpace(out)
	assert.Equal(t, "21.T12345", handle.Prefix(name))
	assert.Len(t, handle.Suffix(name), 36)
}

func TestCLI_ModifyNoAdd(t *testing.T) {
	c := newCLI(t)
	const name = "21.T12345/cli-0002"

	code, _, _ := c.run("register", "-url", "https://example.org/a", name)
	require.Equal(t, 0, code)

	code, _, _ = c.run("modify", "-no-add", name, "MISSING=x")
	require.Equal(t, 0, code)

	code, _, _ = c.run("get", "-key", "MISSING", name)
	assert.Equal(t, 3, code)
}

func TestCLI_Refusals(t *testing.T) {
	c := newCLI(t)
	const name = "21.T12345/cli-0003"

	code, _, _ := c.run("register", "-url", "https://example.org/a", name)
	require.Equal(t, 0, code)

	code, _, errOut := c.run("delete", "-key", "HS_ADMIN", name)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "illegal operation")

	code, _, _ = c.run("search", "EMAIL=x")
	assert.Equal(t, 1, code)

	code, _, _ = c.run("register", "-url", "https://x", "not-a-handle")
	assert.Equal(t, 1, code)
}

func TestCLI_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Commands:")

	stderr.Reset()
	assert.Equal(t, 2, run(context.Background(), []string{"frobnicate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "frobnicate"`)

	c := newCLI(t)
	code, _, _ := c.run("modify", "21.T12345/x")
	assert.Equal(t, 2, code)

	code, _, _ = c.run("get", "-h")
	assert.Equal(t, 0, code)
}

func TestCLI_Init(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-config", path, "init"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), path)
	assert.FileExists(t, path)

	code = run(context.Background(), []string{"-config", path, "init"}, &stdout, &stderr)
	assert.Equal(t, 1, code)

	code = run(context.Background(), []string{"-config", path, "init", "-force"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
}

func TestParsePairs(t *testing.T) {
	changes, err := parsePairs([]string{"URL=https://x/?a=b", "EMAIL=a@b", "URL=https://y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"URL", "EMAIL"}, changes.Types())
	assert.Equal(t, "https://y", changes[0].Value.String())

	_, err = parsePairs([]string{"novalue"})
	assert.Error(t, err)

	_, err = parsePairs([]string{"=value"})
	assert.Error(t, err)
}
