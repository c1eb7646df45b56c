// SPDX-License-Identifier: GPL-3.0-or-later
package walker

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/CrawX/go-spam-trainer/log"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
)

var walkDir = filepath.WalkDir

// Walk returns all regular files below root, recursively. Paths whose root-relative slash path
// matches one of the ignore patterns are skipped, a matching directory is not descended into.
// Only a root that cannot be read fails the walk, unreadable entries below it are logged and left out.
func Walk(root string, ignore []string) ([]string, error) {
	for _, pattern := range ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("could not resolve %s: %w", root, err)
	}

	l := log.Logger(log.LOG_WALKER)

	sources := []string{}
	err = walkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}

			l.WithFields(logrus.Fields{"path": path, "error": err}).Warn("Could not read entry, skipping")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if ignored(filepath.ToSlash(rel), ignore) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not walk %s: %w", root, err)
	}

	sort.Strings(sources)
	return sources, nil
}

func ignored(rel string, ignore []string) bool {
	for _, pattern := range ignore {
		// patterns are validated upfront, Match cannot fail
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}

	return false
}
