package main

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arawak/toolshelf/internal/config"
	"github.com/arawak/toolshelf/internal/httpapi"
	"github.com/arawak/toolshelf/internal/store"
	"github.com/arawak/toolshelf/migrations"
)

const ctlKey = "ctl-secret"

// newTestServer runs a real server over a throwaway SQLite database.
func newTestServer(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	dbPath := filepath.Join(dir, "tags.db")
	require.NoError(t, migrations.Up(migrations.DriverSQLite, dbPath))
	db, err := store.Open(store.DriverSQLite, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	keysPath := filepath.Join(dir, "keys.yaml")
	require.NoError(t, os.WriteFile(keysPath, []byte(`
- id: ctl
  key: `+ctlKey+`
  permissions: [can_create_tags]
`), 0o600))
	keys, err := httpapi.LoadAPIKeys(keysPath)
	require.NoError(t, err)

	cfg := &config.Config{AuthMode: config.AuthAPIKey}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(httpapi.NewRouter(cfg, store.New(db), keys, logger))
	t.Cleanup(srv.Close)
	return srv.URL
}

func runCtl(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TOOLSHELF_LOG_LEVEL", "error")

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := execute(root)
	return out.String() + errOut.String(), err
}

func TestTagsAddAndList(t *testing.T) {
	url := newTestServer(t)

	out, err := runCtl(t, "", "--url", url, "--api-key", ctlKey, "tags", "add", "  Design  ")
	require.NoError(t, err)
	assert.Equal(t, "created\tdesign\n", out)

	out, err = runCtl(t, "", "--url", url, "--api-key", ctlKey, "tags", "add", "DESIGN")
	require.NoError(t, err)
	assert.Equal(t, "existed\tdesign\n", out)

	_, err = runCtl(t, "", "--url", url, "--api-key", ctlKey, "tags", "add", "ai")
	require.NoError(t, err)

	out, err = runCtl(t, "", "--url", url, "tags", "ls")
	require.NoError(t, err)
	assert.Equal(t, "ai\ndesign\n", out)
}

func TestTagsListEmpty(t *testing.T) {
	url := newTestServer(t)

	out, err := runCtl(t, "", "--url", url, "tags", "ls")
	require.NoError(t, err)
	assert.Equal(t, "No tags found.\n", out)
}

func TestTagsAddWithoutKey(t *testing.T) {
	url := newTestServer(t)

	out, err := runCtl(t, "", "--url", url, "--api-key", "", "tags", "add", "design")
	require.Error(t, err)
	assert.Contains(t, out, "error:")
}

func TestTagsEnsure(t *testing.T) {
	url := newTestServer(t)

	_, err := runCtl(t, "", "--url", url, "--api-key", ctlKey, "tags", "add", "design")
	require.NoError(t, err)

	out, err := runCtl(t, "", "--url", url, "--api-key", ctlKey, "tags", "ensure", "Design", "ai", " AI ", "ops", "  ")
	require.NoError(t, err)
	assert.Contains(t, out, "created\tai\n")
	assert.Contains(t, out, "created\tops\n")
	assert.Contains(t, out, "existed\tdesign\n")
	assert.NotContains(t, out, "failed")

	out, err = runCtl(t, "", "--url", url, "tags", "ls")
	require.NoError(t, err)
	assert.Equal(t, "ai\ndesign\nops\n", out)
}

func TestTagsEnsureReportsFailures(t *testing.T) {
	url := newTestServer(t)

	out, err := runCtl(t, "", "--url", url, "--api-key", "wrong", "tags", "ensure", "design", "ai")
	require.Error(t, err)
	assert.Contains(t, out, "failed\tai\t")
	assert.Contains(t, out, "failed\tdesign\t")
	assert.Contains(t, out, "2 of 2 tags failed")
}

func TestTagsEnsureFailuresAreSorted(t *testing.T) {
	url := newTestServer(t)

	names := []string{"ops", "marketing", "design", "ai", "zeta", "brand"}
	args := append([]string{"--url", url, "--api-key", "wrong", "tags", "ensure"}, names...)
	for i := 0; i < 5; i++ {
		out, err := runCtl(t, "", args...)
		require.Error(t, err)

		var failed []string
		for _, line := range strings.Split(out, "\n") {
			if rest, ok := strings.CutPrefix(line, "failed\t"); ok {
				failed = append(failed, strings.SplitN(rest, "\t", 2)[0])
			}
		}
		assert.Equal(t, []string{"ai", "brand", "design", "marketing", "ops", "zeta"}, failed)
	}
}

func TestTagsEdit(t *testing.T) {
	url := newTestServer(t)
	_, err := runCtl(t, "", "--url", url, "--api-key", ctlKey, "tags", "ensure", "design", "devops", "marketing")
	require.NoError(t, err)

	script := strings.Join([]string{
		"?de",
		"#1",
		"Brand New",
		"-design",
		".",
	}, "\n") + "\n"
	out, err := runCtl(t, script, "--url", url, "--api-key", ctlKey, "tags", "edit", "--selected", "ops")
	require.NoError(t, err)

	assert.Contains(t, out, "1\tdesign\n2\tdevops\n+\tde\n")
	assert.Contains(t, out, "selected: ops, design\n")
	assert.Contains(t, out, "selected: ops, design, brand new\n")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "ops,brand new", lines[len(lines)-1])

	out, err = runCtl(t, "", "--url", url, "tags", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "brand new\n")
}

func TestTagsEditKeepsDraftOnFailure(t *testing.T) {
	url := newTestServer(t)

	out, err := runCtl(t, "fresh\n", "--url", url, "--api-key", "wrong", "tags", "edit")
	require.NoError(t, err)
	assert.Contains(t, out, `could not create "fresh"`)
}

func TestImageConvertFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	pngPath := filepath.Join(dir, "cover.png")
	require.NoError(t, os.WriteFile(pngPath, buf.Bytes(), 0o600))

	out, err := runCtl(t, "", "image", "convert", "--verify", pngPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "data:image/png;base64,"), out)

	gifPath := filepath.Join(dir, "anim.gif")
	require.NoError(t, os.WriteFile(gifPath, []byte("GIF89a\x01\x00\x01\x00"), 0o600))
	out, err = runCtl(t, "", "image", "convert", gifPath)
	require.Error(t, err)
	assert.Contains(t, out, "Only JPEG, PNG, and WebP images are supported.")
}

func TestImageConvertDataURLPassthrough(t *testing.T) {
	in := "data:image/webp;base64,UklGRg=="
	out, err := runCtl(t, "", "image", "convert", "  "+in+"  ")
	require.NoError(t, err)
	assert.Equal(t, in+"\n", out)
}

func TestImageConvertMissingFile(t *testing.T) {
	_, err := runCtl(t, "", "image", "convert", filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
}
