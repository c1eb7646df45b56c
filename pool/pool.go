// SPDX-License-Identifier: GPL-3.0-or-later

// Package pool tokenizes many sources with a fixed number of workers. Every task runs through a
// domain.TaskRunner so a source that crashes the tokenizer only fails its own task.
package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/log"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Pool struct {
	runner        domain.TaskRunner
	configuration *configuration

	inFlight    int64
	maxInFlight int64

	l *logrus.Logger
}

func NewPool(runner domain.TaskRunner, configFunc ...ConfigFunc) (*Pool, error) {
	config := &configuration{
		Concurrency: runtime.NumCPU(),
	}
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}

	return &Pool{
		runner:        runner,
		configuration: config,
		l:             log.Logger(log.LOG_POOL),
	}, nil
}

// Run tokenizes all sources and returns the results in completion order. The channel is closed
// once every started task finished. Cancelling ctx stops handing out sources that were not
// started yet.
func (p *Pool) Run(ctx context.Context, sources []string, replacements domain.ReplacementMap) <-chan domain.TaskResult {
	tasks := make(chan string)
	results := make(chan domain.TaskResult, p.configuration.Concurrency)

	p.l.WithFields(logrus.Fields{"sources": len(sources), "concurrency": p.configuration.Concurrency}).Info("Starting tokenization")

	g := &errgroup.Group{}
	for i := 0; i < p.configuration.Concurrency; i++ {
		g.Go(func() error {
			for source := range tasks {
				results <- p.runTask(ctx, source, replacements)
			}
			return nil
		})
	}

	go func() {
		defer close(tasks)
		for _, source := range sources {
			select {
			case tasks <- source:
			case <-ctx.Done():
				p.l.WithField("error", ctx.Err()).Warn("Tokenization cancelled, skipping remaining sources")
				return
			}
		}
	}()

	go func() {
		_ = g.Wait()
		close(results)
	}()

	return results
}

// MaxInFlight is the highest number of tasks that ran at the same time.
func (p *Pool) MaxInFlight() int {
	return int(atomic.LoadInt64(&p.maxInFlight))
}

func (p *Pool) runTask(ctx context.Context, source string, replacements domain.ReplacementMap) domain.TaskResult {
	current := atomic.AddInt64(&p.inFlight, 1)
	defer atomic.AddInt64(&p.inFlight, -1)
	for {
		max := atomic.LoadInt64(&p.maxInFlight)
		if current <= max || atomic.CompareAndSwapInt64(&p.maxInFlight, max, current) {
			break
		}
	}

	taskCtx := ctx
	if p.configuration.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, p.configuration.TaskTimeout)
		defer cancel()
	}

	start := time.Now()
	tokenized, err := p.runner.Run(taskCtx, source, replacements)
	if err != nil {
		p.l.WithFields(logrus.Fields{"source": source, "error": err}).Error("Could not tokenize source")
		return domain.TaskResult{Source: source, Error: err}
	}

	p.l.WithFields(logrus.Fields{"source": source, "tokens": len(tokenized.Tokens), "duration": time.Since(start)}).Debug("Tokenized source")
	return domain.TaskResult{Source: source, Tokenized: *tokenized}
}
