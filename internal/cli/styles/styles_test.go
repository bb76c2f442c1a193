package styles

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 MiB", FormatBytes(3<<19))
	assert.Equal(t, "2.0 GiB", FormatBytes(2<<30))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "Encyclo…", Truncate("Encyclopedia", 8))
	assert.Equal(t, "…", Truncate("abc", 1))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestProgressBar(t *testing.T) {
	theme := NewTheme()
	assert.Empty(t, theme.ProgressBar(50, 0))
	assert.NotEmpty(t, theme.ProgressBar(150, 10))
}

func TestReaderKeyMap_NoDuplicateKeys(t *testing.T) {
	km := DefaultReaderKeyMap()
	seen := map[string]string{}
	for _, group := range km.FullHelp() {
		for _, b := range group {
			for _, k := range b.Keys() {
				prev, dup := seen[k]
				assert.False(t, dup, "key %q bound to %q and %q", k, prev, b.Help().Desc)
				seen[k] = b.Help().Desc
			}
		}
	}
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}, km.CloseTab))
}
