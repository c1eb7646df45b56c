// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/CrawX/go-spam-trainer/domain"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	IsolationProcess   = "process"
	IsolationGoroutine = "goroutine"
)

var DefaultIgnore = []string{
	"**/Summary.txt",
	"**/cmds",
	"**/cmd",
	"**/index",
	"**/.DS_Store",
	"**/*.mbox",
}

type Config struct {
	Category      domain.Category
	ScanDirectory string

	ModelFile        string
	ReplacementsFile string
	Database         string
	// skip sources recorded in Database by earlier runs
	SkipLearned bool

	Concurrency int
	TaskTimeout time.Duration
	Isolation   string
	Ignore      []string

	MirrorSpamassassinHost string
	MirrorRspamdController string
	MirrorRspamdPassword   string
	MirrorConcurrency      int

	ImapHost         string
	User             string
	Password         string
	SpamFetchFolders []string
	HamFetchFolders  []string
	FetchDirectory   string
	DeleteFetched    bool
	DryRun           bool

	Loglevel *string
}

// ReadConfig loads .env, decodes the optional toml file and applies environment overrides. A
// missing toml file is not an error, the environment alone is enough to train.
func ReadConfig(filename string) (*Config, error) {
	config := &Config{
		ModelFile:         "classifier.json",
		ReplacementsFile:  "replacements.json",
		Database:          "spamtrain.db",
		Concurrency:       runtime.NumCPU(),
		Isolation:         IsolationProcess,
		Ignore:            DefaultIgnore,
		MirrorConcurrency: 4,
		FetchDirectory:    "corpus",
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("could not read .env file: %w", err)
	}

	if len(filename) > 0 {
		_, err = toml.DecodeFile(filename, config)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	err = config.applyEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("SPAM_CATEGORY"); ok {
		c.Category = domain.Category(strings.TrimSpace(v))
	}
	if v, ok := lookup("SCAN_DIRECTORY"); ok {
		c.ScanDirectory = v
	}
	if v, ok := lookup("CONCURRENCY"); ok {
		concurrency, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("CONCURRENCY must be a number: %w", err)
		}
		c.Concurrency = concurrency
	}
	if v, ok := lookup("TASK_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("TASK_TIMEOUT must be a duration: %w", err)
		}
		c.TaskTimeout = timeout
	}
	if v, ok := lookup("SKIP_LEARNED"); ok {
		skip, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SKIP_LEARNED must be a boolean: %w", err)
		}
		c.SkipLearned = skip
	}
	if v, ok := lookup("LOGLEVEL"); ok {
		c.Loglevel = &v
	}

	return nil
}

func (c *Config) validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("Concurrency must be at least 1, got %d", c.Concurrency)
	}

	if c.TaskTimeout < 0 {
		return fmt.Errorf("TaskTimeout must not be negative")
	}

	if c.Isolation != IsolationProcess && c.Isolation != IsolationGoroutine {
		return fmt.Errorf("Isolation must be %s or %s, got %q", IsolationProcess, IsolationGoroutine, c.Isolation)
	}

	spamassassinSet := len(strings.TrimSpace(c.MirrorSpamassassinHost)) > 0
	rspamdSet := len(strings.TrimSpace(c.MirrorRspamdController)) > 0
	if rspamdSet && spamassassinSet {
		return fmt.Errorf("MirrorSpamassassinHost and MirrorRspamdController cannot be set at the same time")
	}

	if rspamdSet {
		if err := validateNonEmptyStringField(c.MirrorRspamdPassword, "MirrorRspamdPassword must be set if MirrorRspamdController is set"); err != nil {
			return err
		}
	}

	if c.MirrorConcurrency < 1 {
		return fmt.Errorf("MirrorConcurrency must be at least 1, got %d", c.MirrorConcurrency)
	}

	return nil
}

// ValidateTrain checks the settings the train command cannot run without.
func (c *Config) ValidateTrain() error {
	if _, err := domain.ParseCategory(string(c.Category)); err != nil {
		return fmt.Errorf("SPAM_CATEGORY environment variable missing or invalid: %w", err)
	}

	if err := validateNonEmptyStringField(c.ScanDirectory, "SCAN_DIRECTORY environment variable missing, set to the directory to train from"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.ModelFile, "ModelFile must not be empty"); err != nil {
		return err
	}

	if c.SkipLearned {
		if err := validateNonEmptyStringField(c.Database, "Database must be set if SkipLearned is set"); err != nil {
			return err
		}
	}

	return validateNonEmptyStringField(c.ReplacementsFile, "ReplacementsFile must not be empty")
}

// ValidateFetch checks the settings the fetch command cannot run without.
func (c *Config) ValidateFetch() error {
	if err := validateNonEmptyStringField(c.Database, "Database name must not be empty, set to a filename for the sqlite database"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.ImapHost, "ImapHost must not be empty, set to host:port of the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.User, "User must not be empty, set to username on the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.Password, "Password must not be empty, set to password of User on the imap server"); err != nil {
		return err
	}

	if len(c.SpamFetchFolders) == 0 && len(c.HamFetchFolders) == 0 {
		return fmt.Errorf("set SpamFetchFolders or HamFetchFolders to fetch mails")
	}

	return validateNonEmptyStringField(c.FetchDirectory, "FetchDirectory must not be empty")
}

func validateNonEmptyStringField(field string, err string) error {
	if len(strings.TrimSpace(field)) == 0 {
		return errors.New(err)
	}

	return nil
}
