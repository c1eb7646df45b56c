// SPDX-License-Identifier: GPL-3.0-or-later

//go:generate mockgen -destination=mocks/learner.go -package=mocks . SpamLearner,SourceLedger
package domain

import "time"

// SpamLearner is an external spam filter that can be taught a raw message.
type SpamLearner interface {
	Learn(category Category, rawMail []byte) error
}

type TrainedSource struct {
	Hash      string
	Category  Category
	Path      string
	TrainedAt time.Time
}

// SourceLedger remembers which sources were already learned in previous runs. SaveTrained calls
// persist before the sources are committed and records nothing if persist fails.
type SourceLedger interface {
	TrainedHashes(category Category) (map[string]bool, error)
	SaveTrained(runId string, sources []TrainedSource, persist func() error) error
}
