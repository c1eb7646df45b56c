// SPDX-License-Identifier: GPL-3.0-or-later
package vocabulary

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/CrawX/go-spam-trainer/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suffixPattern = regexp.MustCompile(`^[a-z]{10}$`)

func TestGenerate(t *testing.T) {
	replacements, err := Generate()
	require.NoError(t, err)

	assert.Len(t, replacements, len(domain.ReplacementKeys))
	for _, key := range domain.ReplacementKeys {
		value := replacements[key]
		require.True(t, len(value) > len(key), "placeholder for %s too short", key)
		assert.Equal(t, string(key), value[:len(key)])
		assert.Regexp(t, suffixPattern, value[len(key):])
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		replacements, err := Generate()
		require.NoError(t, err)
		for _, v := range replacements {
			assert.False(t, seen[v], "placeholder %s generated twice", v)
			seen[v] = true
		}
	}
}

func TestLoadOrCreateMissing(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "replacements.json")

	replacements, generated, err := LoadOrCreate(filename)
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Len(t, replacements, 6)

	_, err = os.Stat(filename)
	assert.True(t, os.IsNotExist(err), "loading must not write the file")
}

func TestLoadOrCreateRoundtrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "replacements.json")

	first, _, err := LoadOrCreate(filename)
	require.NoError(t, err)
	require.NoError(t, Save(filename, first))

	second, generated, err := LoadOrCreate(filename)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, first, second)

	require.NoError(t, Save(filename, second))
	third, _, err := LoadOrCreate(filename)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestLoadOrCreateCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"notjson", "{url"},
		{"incomplete", `{"url": "urlabcdefghij"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), "replacements.json")
			require.NoError(t, os.WriteFile(filename, []byte(tc.content), 0644))

			_, err := Load(filename)
			assert.Error(t, err)
			assert.NotErrorIs(t, err, ErrNotFound)

			replacements, generated, err := LoadOrCreate(filename)
			require.NoError(t, err)
			assert.True(t, generated)
			assert.Len(t, replacements, 6)
		})
	}
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadPersisted(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "replacements.json")
	require.NoError(t, os.WriteFile(filename, []byte(`{
  "url": "urlaaaaaaaaaa",
  "email": "emailbbbbbbbbbb",
  "number": "numbercccccccccc",
  "currency": "currencydddddddddd",
  "initialism": "initialismeeeeeeeeee",
  "abbreviation": "abbreviationffffffffff"
}`), 0644))

	replacements, generated, err := LoadOrCreate(filename)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, "urlaaaaaaaaaa", replacements[domain.ReplaceUrl])
	assert.Equal(t, "abbreviationffffffffff", replacements[domain.ReplaceAbbreviation])
}
