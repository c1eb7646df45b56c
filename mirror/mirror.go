// SPDX-License-Identifier: GPL-3.0-or-later

// Package mirror teaches the sources learned by a training run to an external spam filter as
// well, so SpamAssassin or rspamd keep up with the trained model.
package mirror

import (
	"fmt"
	"os"
	"time"

	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/log"

	"github.com/sirupsen/logrus"
)

const (
	BatchSize          = 50
	DefaultConcurrency = 4
)

type Mirror struct {
	learner     domain.SpamLearner
	concurrency int

	l *logrus.Logger
}

func NewMirror(learner domain.SpamLearner, concurrency int) (*Mirror, error) {
	if concurrency < 1 {
		return nil, fmt.Errorf("mirror concurrency must be at least 1")
	}

	return &Mirror{
		learner:     learner,
		concurrency: concurrency,
		l:           log.Logger(log.LOG_MIRROR),
	}, nil
}

// Connect returns the learner for whichever filter is configured, nil if none is.
func Connect(spamassassinHost, rspamdController, rspamdPassword string) (domain.SpamLearner, error) {
	switch {
	case len(spamassassinHost) > 0 && len(rspamdController) > 0:
		return nil, fmt.Errorf("only one of SpamAssassin and rspamd can be mirrored to")
	case len(spamassassinHost) > 0:
		sa, err := NewSpamAssassin(spamassassinHost)
		if err != nil {
			return nil, err
		}
		return sa, nil
	case len(rspamdController) > 0:
		rs, err := NewRspamd(rspamdController, rspamdPassword)
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		return nil, nil
	}
}

// LearnAll teaches all mails with at most concurrency requests in flight. A failed mail is retried
// once, the returned errors are in the order of mails.
func LearnAll(learner domain.SpamLearner, category domain.Category, mails [][]byte, concurrency int) []error {
	semaphore := make(chan bool, concurrency)
	results := make([]error, len(mails))
	for i := 0; i < len(mails); i++ {
		semaphore <- true
		go func(index int) {
			results[index] = learner.Learn(category, mails[index])
			if results[index] != nil {
				results[index] = learner.Learn(category, mails[index])
			}
			<-semaphore
		}(i)
	}

	for i := 0; i < concurrency; i++ {
		semaphore <- true
	}

	return results
}

// Sources reads and teaches the given files batch by batch. Failures are logged, the number of
// mirrored sources is returned.
func (m *Mirror) Sources(category domain.Category, sources []domain.TrainedSource) int {
	mirrored := 0
	start := time.Now()

	for offset := 0; offset < len(sources); offset += BatchSize {
		end := offset + BatchSize
		if end > len(sources) {
			end = len(sources)
		}
		batch := sources[offset:end]

		mails := make([][]byte, 0, len(batch))
		paths := make([]string, 0, len(batch))
		for _, source := range batch {
			raw, err := os.ReadFile(source.Path)
			if err != nil {
				m.l.WithFields(logrus.Fields{"source": source.Path, "error": err}).Error("Could not read source for mirroring")
				continue
			}
			mails = append(mails, raw)
			paths = append(paths, source.Path)
		}

		for i, err := range LearnAll(m.learner, category, mails, m.concurrency) {
			if err != nil {
				m.l.WithFields(logrus.Fields{"source": paths[i], "error": err}).Error("Could not mirror source")
				continue
			}
			mirrored++
		}
	}

	m.l.WithFields(logrus.Fields{
		"category": category,
		"sources":  len(sources),
		"mirrored": mirrored,
		"duration": time.Since(start),
	}).Info("Mirrored learned sources")

	return mirrored
}
