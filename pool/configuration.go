// SPDX-License-Identifier: GPL-3.0-or-later
package pool

import (
	"fmt"
	"time"
)

type ConfigFunc func(c *configuration) error

func Concurrency(concurrency int) ConfigFunc {
	return func(c *configuration) error {
		if concurrency < 1 {
			return fmt.Errorf("Concurrency must be at least 1")
		}

		c.Concurrency = concurrency
		return nil
	}
}

// TaskTimeout aborts a single tokenization after timeout. Zero disables the timeout.
func TaskTimeout(timeout time.Duration) ConfigFunc {
	return func(c *configuration) error {
		if timeout < 0 {
			return fmt.Errorf("TaskTimeout cannot be negative")
		}

		c.TaskTimeout = timeout
		return nil
	}
}

type configuration struct {
	Concurrency int
	TaskTimeout time.Duration
}
