package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nagarbot/internal/complaint"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	require.Len(t, c.Categories, 4)
	assert.Equal(t, complaint.CategorySanitation, c.Categories[0].Key)

	water, ok := c.Lookup(complaint.CategoryWater)
	require.True(t, ok)
	assert.Equal(t, "💧", water.Emoji)
	assert.Equal(t, "Water Supply Issue", water.Name)
	assert.Contains(t, water.Examples, "pipe leaks")

	assert.Contains(t, c.Texts.Welcome, "Welcome to Nagar Palika")
	assert.Contains(t, c.Texts.NoComplaints, "No complaints found")
	assert.Equal(t, "📝", c.Emoji(complaint.Category("unknown")))
}

func TestParseRejectsBrokenCatalogs(t *testing.T) {
	_, err := Parse([]byte("categories: [\n"))
	assert.Error(t, err)

	missing := `
categories:
  - {key: water, emoji: "💧", name: Water}
texts: {welcome: a, menu: b, guidance: c, no_complaints: d, clarify_resolution: e}
`
	_, err = Parse([]byte(missing))
	assert.ErrorContains(t, err, "missing category")

	unknown := `
categories:
  - {key: electricity, emoji: "⚡", name: Power}
`
	_, err = Parse([]byte(unknown))
	assert.ErrorContains(t, err, "unknown category")
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.Categories, 4)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, defaultYAML, 0o644))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Categories, 4)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
