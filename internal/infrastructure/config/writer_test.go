package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteConfigOrdered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Library.Dirs = []string{"/srv/zim"}

	require.NoError(t, WriteConfigOrdered(cfg, path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.True(t, strings.HasPrefix(text, "# kiwix-reader configuration."))

	// Sections follow the struct order.
	var sections []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			sections = append(sections, line)
		}
	}
	assert.Equal(t, []string{"[database]", "[logging]", "[session]", "[reader]", "[library]", "[metrics]"}, sections)

	got, err := ReadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	assert.Error(t, WriteConfigOrdered(nil, path))
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var doc struct {
		Title      string                     `json:"title"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "kiwix-reader configuration", doc.Title)
	for _, section := range []string{"database", "logging", "session", "reader", "library", "metrics"} {
		assert.Contains(t, doc.Properties, section)
	}
	assert.Contains(t, string(doc.Properties["session"]), "undo_window_ms")
}
