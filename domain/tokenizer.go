// SPDX-License-Identifier: GPL-3.0-or-later

//go:generate mockgen -destination=mocks/tokenizer.go -package=mocks . Tokenizer,TaskRunner
package domain

import "context"

// TokenSequence is the ordered list of normalized tokens of one source. It may be empty.
type TokenSequence []string

// Tokenized is what a tokenization task hands back to the coordinator.
type Tokenized struct {
	Tokens TokenSequence `json:"tokens"`
	// Hash is the sha256 of the raw source, used to recognize sources across runs.
	Hash string `json:"hash"`
}

type TaskResult struct {
	Source string
	Tokenized
	Error error
}

type Tokenizer interface {
	Tokenize(source string, replacements ReplacementMap) (*Tokenized, error)
}

// TaskRunner executes a single tokenization in an isolation boundary. A fault while tokenizing
// must surface as an error and never affect other tasks.
type TaskRunner interface {
	Run(ctx context.Context, source string, replacements ReplacementMap) (*Tokenized, error)
}
