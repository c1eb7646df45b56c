// SPDX-License-Identifier: GPL-3.0-or-later

// Package bayes implements a multinomial naive bayes text classifier over pre-tokenized input.
//
// A Model is not safe for concurrent use. Learning only ever adds to the counts, so learning the
// same documents in any order yields the same model.
package bayes

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/CrawX/go-spam-trainer/domain"
)

const DefaultSmoothing = 1.0

type Options struct {
	Smoothing float64 `json:"smoothing"`
}

// Model is the full classifier state. The json form is what gets persisted between runs.
type Model struct {
	Categories         map[domain.Category]bool           `json:"categories"`
	DocCount           map[domain.Category]int            `json:"docCount"`
	TotalDocuments     int                                `json:"totalDocuments"`
	Vocabulary         map[string]bool                    `json:"vocabulary"`
	VocabularySize     int                                `json:"vocabularySize"`
	WordCount          map[domain.Category]int            `json:"wordCount"`
	WordFrequencyCount map[domain.Category]map[string]int `json:"wordFrequencyCount"`
	Options            Options                            `json:"options"`
}

func New() *Model {
	return &Model{
		Categories:         map[domain.Category]bool{},
		DocCount:           map[domain.Category]int{},
		Vocabulary:         map[string]bool{},
		WordCount:          map[domain.Category]int{},
		WordFrequencyCount: map[domain.Category]map[string]int{},
		Options:            Options{Smoothing: DefaultSmoothing},
	}
}

func (m *Model) initializeCategory(category domain.Category) {
	if m.Categories[category] {
		return
	}
	m.Categories[category] = true
	if _, ok := m.DocCount[category]; !ok {
		m.DocCount[category] = 0
	}
	if _, ok := m.WordCount[category]; !ok {
		m.WordCount[category] = 0
	}
	if m.WordFrequencyCount[category] == nil {
		m.WordFrequencyCount[category] = map[string]int{}
	}
}

// Learn adds one document to category. Every occurrence of a token counts, repeated tokens are
// not collapsed.
func (m *Model) Learn(tokens []string, category domain.Category) {
	m.initializeCategory(category)

	m.DocCount[category]++
	m.TotalDocuments++

	frequencies := frequencyTable(tokens)
	for token, frequency := range frequencies {
		if !m.Vocabulary[token] {
			m.Vocabulary[token] = true
			m.VocabularySize++
		}

		m.WordFrequencyCount[category][token] += frequency
		m.WordCount[category] += frequency
	}
}

// Merge adds all counts of other to m.
func (m *Model) Merge(other *Model) {
	for category := range other.Categories {
		m.initializeCategory(category)
		m.DocCount[category] += other.DocCount[category]
		m.WordCount[category] += other.WordCount[category]
		for token, frequency := range other.WordFrequencyCount[category] {
			m.WordFrequencyCount[category][token] += frequency
		}
	}
	m.TotalDocuments += other.TotalDocuments

	for token := range other.Vocabulary {
		if !m.Vocabulary[token] {
			m.Vocabulary[token] = true
			m.VocabularySize++
		}
	}
}

// Frequency returns how often token was learned for category.
func (m *Model) Frequency(token string, category domain.Category) int {
	return m.WordFrequencyCount[category][token]
}

// Categorize returns the most probable category for tokens together with the log probability
// of every known category. It returns an empty category if nothing was learned yet.
func (m *Model) Categorize(tokens []string) (domain.Category, map[domain.Category]float64) {
	probabilities := map[domain.Category]float64{}
	if m.TotalDocuments == 0 {
		return "", probabilities
	}

	categories := make([]domain.Category, 0, len(m.Categories))
	for category := range m.Categories {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	frequencies := frequencyTable(tokens)

	var best domain.Category
	bestProbability := math.Inf(-1)
	for _, category := range categories {
		probability := math.Log(float64(m.DocCount[category]) / float64(m.TotalDocuments))
		for token, frequency := range frequencies {
			probability += float64(frequency) * math.Log(m.tokenProbability(token, category))
		}

		probabilities[category] = probability
		if probability > bestProbability {
			bestProbability = probability
			best = category
		}
	}

	return best, probabilities
}

func (m *Model) tokenProbability(token string, category domain.Category) float64 {
	smoothing := m.Options.Smoothing
	frequency := float64(m.WordFrequencyCount[category][token])
	total := float64(m.WordCount[category])

	return (frequency + smoothing) / (total + smoothing*float64(m.VocabularySize))
}

// Decode reconstructs a model from its json form.
func Decode(data []byte) (*Model, error) {
	m := &Model{}
	err := json.Unmarshal(data, m)
	if err != nil {
		return nil, fmt.Errorf("could not parse model: %w", err)
	}

	if m.Categories == nil || m.DocCount == nil || m.Vocabulary == nil || m.WordCount == nil || m.WordFrequencyCount == nil {
		return nil, fmt.Errorf("model is incomplete")
	}

	if m.VocabularySize != len(m.Vocabulary) {
		return nil, fmt.Errorf("vocabulary size %d does not match %d vocabulary entries", m.VocabularySize, len(m.Vocabulary))
	}

	for category := range m.Categories {
		if _, err := domain.ParseCategory(string(category)); err != nil {
			return nil, fmt.Errorf("invalid model: %w", err)
		}
		if m.WordFrequencyCount[category] == nil {
			m.WordFrequencyCount[category] = map[string]int{}
		}
	}

	if m.Options.Smoothing <= 0 {
		m.Options.Smoothing = DefaultSmoothing
	}

	return m, nil
}

func (m *Model) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("could not serialize model: %w", err)
	}

	return data, nil
}

func frequencyTable(tokens []string) map[string]int {
	table := map[string]int{}
	for _, token := range tokens {
		table[token]++
	}

	return table
}
