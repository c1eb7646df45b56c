// SPDX-License-Identifier: GPL-3.0-or-later
package pool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/CrawX/go-spam-trainer/domain"
)

// ProcessRunner tokenizes every source in a child process, by default the tokenize command of
// this very binary. A crash, a fatal runtime error or a kill of the child fails only that task.
type ProcessRunner struct {
	executable string
	args       []string
	env        []string
}

// NewProcessRunner runs "executable args... <source>" per task with env added to the current
// environment. The child reads the replacements as json on stdin and has to print the
// domain.Tokenized result as json on stdout, see ServeTask.
func NewProcessRunner(executable string, args []string, env ...string) *ProcessRunner {
	return &ProcessRunner{
		executable: executable,
		args:       args,
		env:        env,
	}
}

func (pr *ProcessRunner) Run(ctx context.Context, source string, replacements domain.ReplacementMap) (*domain.Tokenized, error) {
	input, err := json.Marshal(replacements)
	if err != nil {
		return nil, fmt.Errorf("could not serialize replacements: %w", err)
	}

	args := append(append([]string{}, pr.args...), source)
	cmd := exec.CommandContext(ctx, pr.executable, args...)
	cmd.Env = append(os.Environ(), pr.env...)
	cmd.Stdin = bytes.NewReader(input)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("tokenizing aborted: %w", ctxErr)
	}
	if err != nil {
		return nil, fmt.Errorf("tokenize worker failed: %w: %s", err, lastLine(stderr.String()))
	}

	tokenized := &domain.Tokenized{}
	err = json.Unmarshal(stdout.Bytes(), tokenized)
	if err != nil {
		return nil, fmt.Errorf("could not read tokenize worker result: %w", err)
	}

	return tokenized, nil
}

// ServeTask is the child side of ProcessRunner.
func ServeTask(tokenizer domain.Tokenizer, source string, in io.Reader, out io.Writer) error {
	replacements := domain.ReplacementMap{}
	err := json.NewDecoder(in).Decode(&replacements)
	if err != nil {
		return fmt.Errorf("could not read replacements: %w", err)
	}

	tokenized, err := tokenizer.Tokenize(source, replacements)
	if err != nil {
		return fmt.Errorf("could not tokenize %s: %w", source, err)
	}
	if tokenized.Tokens == nil {
		tokenized.Tokens = domain.TokenSequence{}
	}

	err = json.NewEncoder(out).Encode(tokenized)
	if err != nil {
		return fmt.Errorf("could not write result: %w", err)
	}

	return nil
}

// InProcessRunner tokenizes in the calling goroutine's process. Panics are turned into task
// errors. A tokenizer that never returns keeps its goroutine alive after the task timed out.
type InProcessRunner struct {
	tokenizer domain.Tokenizer
}

func NewInProcessRunner(tokenizer domain.Tokenizer) *InProcessRunner {
	return &InProcessRunner{tokenizer: tokenizer}
}

type outcome struct {
	tokenized *domain.Tokenized
	err       error
}

func (ir *InProcessRunner) Run(ctx context.Context, source string, replacements domain.ReplacementMap) (*domain.Tokenized, error) {
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		returned := false
		// sends on every exit path, runtime.Goexit included
		defer func() {
			if r := recover(); r != nil {
				o = outcome{err: fmt.Errorf("tokenizer panicked: %v", r)}
			} else if !returned {
				o = outcome{err: fmt.Errorf("tokenizer exited without a result")}
			}
			done <- o
		}()

		o.tokenized, o.err = ir.tokenizer.Tokenize(source, replacements)
		returned = true
	}()

	select {
	case o := <-done:
		if o.err == nil && o.tokenized == nil {
			return nil, fmt.Errorf("tokenizer returned no result")
		}
		return o.tokenized, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("tokenizing aborted: %w", ctx.Err())
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
