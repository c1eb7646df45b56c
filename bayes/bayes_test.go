// SPDX-License-Identifier: GPL-3.0-or-later
package bayes

import (
	"testing"

	"github.com/CrawX/go-spam-trainer/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLearn(t *testing.T) {
	m := New()
	m.Learn([]string{"a", "b"}, domain.Spam)
	m.Learn([]string{"c", "a"}, domain.Spam)

	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, m.Vocabulary)
	assert.Equal(t, 3, m.VocabularySize)
	assert.Equal(t, 2, m.Frequency("a", domain.Spam))
	assert.Equal(t, 1, m.Frequency("b", domain.Spam))
	assert.Equal(t, 1, m.Frequency("c", domain.Spam))
	assert.Equal(t, 0, m.Frequency("a", domain.Ham))
	assert.Equal(t, 2, m.DocCount[domain.Spam])
	assert.Equal(t, 2, m.TotalDocuments)
	assert.Equal(t, 4, m.WordCount[domain.Spam])
	assert.False(t, m.Categories[domain.Ham])
}

func TestLearnRepeatedTokens(t *testing.T) {
	m := New()
	m.Learn([]string{"a", "a", "b", "a"}, domain.Ham)

	assert.Equal(t, 3, m.Frequency("a", domain.Ham))
	assert.Equal(t, 4, m.WordCount[domain.Ham])
	assert.Equal(t, 1, m.DocCount[domain.Ham])
}

func TestLearnOrderIndependent(t *testing.T) {
	docs := [][]string{{"a", "b"}, {"b", "c", "c"}, {"d"}, {"a"}}

	forward := New()
	for _, d := range docs {
		forward.Learn(d, domain.Spam)
	}

	backward := New()
	for i := len(docs) - 1; i >= 0; i-- {
		backward.Learn(docs[i], domain.Spam)
	}

	assert.Equal(t, forward, backward)
}

func TestMerge(t *testing.T) {
	all := New()
	a, b := New(), New()

	for _, d := range [][]string{{"a", "b"}, {"c"}} {
		a.Learn(d, domain.Spam)
		all.Learn(d, domain.Spam)
	}
	for _, d := range [][]string{{"b", "x"}} {
		b.Learn(d, domain.Ham)
		all.Learn(d, domain.Ham)
	}
	b.Learn([]string{"a"}, domain.Spam)
	all.Learn([]string{"a"}, domain.Spam)

	a.Merge(b)
	assert.Equal(t, all, a)
}

func TestEncodeDecode(t *testing.T) {
	m := New()
	m.Learn([]string{"a", "b", "a"}, domain.Spam)
	m.Learn([]string{"c"}, domain.Ham)

	data, err := m.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)

	decoded.Learn([]string{"a"}, domain.Spam)
	assert.Equal(t, 3, decoded.Frequency("a", domain.Spam))
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		err  string
	}{
		{"notjson", `{"categories"`, "could not parse model: unexpected end of JSON input"},
		{"empty", `{}`, "model is incomplete"},
		{
			"vocabularysize",
			`{"categories":{},"docCount":{},"vocabulary":{"a":true},"vocabularySize":2,"wordCount":{},"wordFrequencyCount":{}}`,
			"vocabulary size 2 does not match 1 vocabulary entries",
		},
		{
			"category",
			`{"categories":{"eggs":true},"docCount":{},"vocabulary":{},"vocabularySize":0,"wordCount":{},"wordFrequencyCount":{}}`,
			`invalid model: unsupported category "eggs", expected ham or spam`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Decode([]byte(tc.data))
			assert.Nil(t, m)
			assert.EqualError(t, err, tc.err)
		})
	}
}

func TestDecodeDefaultsSmoothing(t *testing.T) {
	m, err := Decode([]byte(`{"categories":{},"docCount":{},"totalDocuments":0,"vocabulary":{},"vocabularySize":0,"wordCount":{},"wordFrequencyCount":{}}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultSmoothing, m.Options.Smoothing)
}

func TestCategorize(t *testing.T) {
	m := New()
	category, _ := m.Categorize([]string{"viagra"})
	assert.Equal(t, domain.Category(""), category)

	m.Learn([]string{"cheap", "viagra", "buy", "now"}, domain.Spam)
	m.Learn([]string{"viagra", "offer", "cheap"}, domain.Spam)
	m.Learn([]string{"meeting", "tomorrow", "agenda"}, domain.Ham)
	m.Learn([]string{"lunch", "tomorrow"}, domain.Ham)

	category, probabilities := m.Categorize([]string{"cheap", "viagra"})
	assert.Equal(t, domain.Spam, category)
	assert.Greater(t, probabilities[domain.Spam], probabilities[domain.Ham])

	category, _ = m.Categorize([]string{"agenda", "tomorrow"})
	assert.Equal(t, domain.Ham, category)
}
