// SPDX-License-Identifier: GPL-3.0-or-later
package fetcher

type ConfigFunc func(c *configuration) error

// DryRun only logs what would be exported, nothing is written, persisted or deleted.
func DryRun() ConfigFunc {
	return func(c *configuration) error {
		c.DryRun = true

		return nil
	}
}

// DeleteFetched removes exported mails from the server.
func DeleteFetched() ConfigFunc {
	return func(c *configuration) error {
		c.DeleteFetched = true
		return nil
	}
}

type configuration struct {
	DryRun        bool
	DeleteFetched bool
}
