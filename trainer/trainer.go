// SPDX-License-Identifier: GPL-3.0-or-later
package trainer

import (
	"fmt"
	"time"

	"github.com/CrawX/go-spam-trainer/bayes"
	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/log"

	"github.com/sirupsen/logrus"
)

type Stats struct {
	Sources int
	Learned int
	Empty   int
	Failed  int
	Skipped int
}

// Trainer is the only writer of its model. It is not safe for concurrent use, Consume applies the
// results of the concurrent tokenization one at a time.
type Trainer struct {
	model    *bayes.Model
	category domain.Category

	// hashes of sources learned before, nil if sources are not tracked
	known   map[string]bool
	learned []domain.TrainedSource

	l *logrus.Logger
}

// NewTrainer trains model with sources of category. known holds the content hashes of sources
// learned in earlier runs, they are skipped. Pass nil to learn every source. known is not modified.
func NewTrainer(model *bayes.Model, category domain.Category, known map[string]bool) (*Trainer, error) {
	if _, err := domain.ParseCategory(string(category)); err != nil {
		return nil, err
	}

	return &Trainer{
		model:    model,
		category: category,
		known:    known,
		l:        log.Logger(log.LOG_TRAINER),
	}, nil
}

// Learn adds one token sequence to the model. Ham tokens are learned twice to bias the model
// against false positives. Empty sequences are ignored, Learn reports whether the model changed.
func (t *Trainer) Learn(tokens domain.TokenSequence, category domain.Category) bool {
	if len(tokens) == 0 {
		return false
	}

	if category == domain.Ham {
		doubled := make(domain.TokenSequence, 0, 2*len(tokens))
		doubled = append(doubled, tokens...)
		doubled = append(doubled, tokens...)
		tokens = doubled
	}

	t.model.Learn(tokens, category)
	return true
}

// Consume learns every successful result until results is closed.
func (t *Trainer) Consume(results <-chan domain.TaskResult) Stats {
	stats := Stats{}
	start := time.Now()

	for r := range results {
		stats.Sources++
		baseLogger := t.l.WithFields(logrus.Fields{"source": r.Source, "category": t.category})

		if r.Error != nil {
			// already logged by the pool
			stats.Failed++
			continue
		}

		if len(r.Tokens) == 0 {
			stats.Empty++
			continue
		}

		// only earlier runs count, identical sources within this run are all learned
		if len(r.Hash) > 0 && t.known[r.Hash] {
			baseLogger.Debug("Source was learned in an earlier run, skipping")
			stats.Skipped++
			continue
		}

		t.Learn(r.Tokens, t.category)
		stats.Learned++
		t.learned = append(t.learned, domain.TrainedSource{
			Hash:      r.Hash,
			Category:  t.category,
			Path:      r.Source,
			TrainedAt: time.Now(),
		})
		baseLogger.WithField("tokens", len(r.Tokens)).Debug("Learned source")
	}

	t.l.WithFields(logrus.Fields{
		"category": t.category,
		"sources":  stats.Sources,
		"learned":  stats.Learned,
		"empty":    stats.Empty,
		"failed":   stats.Failed,
		"skipped":  stats.Skipped,
		"duration": time.Since(start),
	}).Info("Training finished")

	return stats
}

// Learned returns the sources learned so far.
func (t *Trainer) Learned() []domain.TrainedSource {
	return t.learned
}

func (t *Trainer) Model() *bayes.Model {
	return t.model
}

// Commit records the learned sources in ledger so later runs skip them. persist writes the model
// and runs before the ledger commits, a failing persist leaves the ledger unchanged.
func (t *Trainer) Commit(ledger domain.SourceLedger, runId string, persist func() error) error {
	if len(t.learned) == 0 {
		return persist()
	}

	var persistErr error
	err := ledger.SaveTrained(runId, t.learned, func() error {
		persistErr = persist()
		return persistErr
	})
	if persistErr != nil {
		return persistErr
	}
	if err != nil {
		return fmt.Errorf("could not record learned sources: %w", err)
	}

	return nil
}
