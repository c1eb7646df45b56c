// SPDX-License-Identifier: GPL-3.0-or-later

// Package training runs one training pass: load the previous state, tokenize the scan directory,
// learn the results and persist the new state.
package training

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/CrawX/go-spam-trainer/config"
	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/log"
	"github.com/CrawX/go-spam-trainer/mirror"
	"github.com/CrawX/go-spam-trainer/modelstore"
	"github.com/CrawX/go-spam-trainer/pool"
	"github.com/CrawX/go-spam-trainer/tokenizer"
	"github.com/CrawX/go-spam-trainer/trainer"
	"github.com/CrawX/go-spam-trainer/vocabulary"
	"github.com/CrawX/go-spam-trainer/walker"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TokenizeCommand is the hidden command a ProcessRunner starts for every task.
const TokenizeCommand = "tokenize"

type Result struct {
	RunId       string
	Stats       trainer.Stats
	MaxInFlight int
	Mirrored    int
}

type Training struct {
	config  *config.Config
	runner  domain.TaskRunner
	ledger  domain.SourceLedger
	learner domain.SpamLearner

	l *logrus.Logger
}

// NewTraining prepares a run for cfg. ledger and learner are optional and may be nil.
func NewTraining(cfg *config.Config, runner domain.TaskRunner, ledger domain.SourceLedger, learner domain.SpamLearner) *Training {
	return &Training{
		config:  cfg,
		runner:  runner,
		ledger:  ledger,
		learner: learner,
		l:       log.Logger(log.LOG_TRAINER),
	}
}

// NewRunner returns the task runner for the configured isolation.
func NewRunner(cfg *config.Config) (domain.TaskRunner, error) {
	switch cfg.Isolation {
	case config.IsolationGoroutine:
		return pool.NewInProcessRunner(tokenizer.New()), nil
	case config.IsolationProcess:
		executable, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("could not determine executable for tokenize workers: %w", err)
		}
		return pool.NewProcessRunner(executable, []string{TokenizeCommand}), nil
	default:
		return nil, fmt.Errorf("unsupported isolation %q", cfg.Isolation)
	}
}

// Run trains on every file below the scan directory. If ctx is cancelled before all sources were
// learned nothing is persisted and the previous state stays untouched.
func (t *Training) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runId := uuid.New().String()
	category := t.config.Category

	baseLogger := t.l.WithFields(logrus.Fields{"run": runId, "category": category})

	replacements, _, err := vocabulary.LoadOrCreate(t.config.ReplacementsFile)
	if err != nil {
		return nil, err
	}

	model, loaded := modelstore.LoadOrNew(t.config.ModelFile)

	// a fresh model knows none of the recorded sources, retraining learns all of them again
	var known map[string]bool
	if t.ledger != nil && !loaded {
		baseLogger.Info("Starting with an empty model, ignoring previously learned sources")
	} else if t.ledger != nil {
		known, err = t.ledger.TrainedHashes(category)
		if err != nil {
			return nil, fmt.Errorf("could not list learned sources: %w", err)
		}
	}

	tr, err := trainer.NewTrainer(model, category, known)
	if err != nil {
		return nil, err
	}

	sources, err := walker.Walk(t.config.ScanDirectory, t.config.Ignore)
	if err != nil {
		return nil, fmt.Errorf("could not scan %s: %w", t.config.ScanDirectory, err)
	}
	baseLogger.WithFields(logrus.Fields{"directory": t.config.ScanDirectory, "sources": len(sources)}).Info("Scanned directory")

	p, err := pool.NewPool(
		t.runner,
		pool.Concurrency(t.config.Concurrency),
		pool.TaskTimeout(t.config.TaskTimeout),
	)
	if err != nil {
		return nil, err
	}

	stats := tr.Consume(p.Run(ctx, sources, replacements))

	if err := ctx.Err(); err != nil {
		baseLogger.WithField("learned", stats.Learned).Warn("Training aborted, nothing was saved")
		return nil, fmt.Errorf("training aborted: %w", err)
	}

	persist := func() error {
		err := modelstore.Save(t.config.ModelFile, tr.Model())
		if err != nil {
			return err
		}
		return vocabulary.Save(t.config.ReplacementsFile, replacements)
	}

	if t.ledger != nil {
		err = tr.Commit(t.ledger, runId, persist)
	} else {
		err = persist()
	}
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunId:       runId,
		Stats:       stats,
		MaxInFlight: p.MaxInFlight(),
	}

	if t.learner != nil && len(tr.Learned()) > 0 {
		m, err := mirror.NewMirror(t.learner, t.config.MirrorConcurrency)
		if err != nil {
			return nil, err
		}
		result.Mirrored = m.Sources(category, tr.Learned())
	}

	baseLogger.WithFields(logrus.Fields{
		"learned":  stats.Learned,
		"failed":   stats.Failed,
		"duration": time.Since(start),
	}).Info("Training run complete")

	return result, nil
}
