// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"os"

	"github.com/CrawX/go-spam-trainer/config"
	"github.com/CrawX/go-spam-trainer/log"

	"github.com/spf13/cobra"
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:   "spamtrain",
		Short: "Trains a ham/spam bag-of-words classifier from a directory of messages",
		Long: `spamtrain tokenizes every file of a directory with isolated workers and adds
the result to a naive bayes model that is reused by the next run.

Set SPAM_CATEGORY (ham or spam) and SCAN_DIRECTORY, either in the environment,
a .env file or the config file.`,
		SilenceUsage: true,
	}

	trainCmd = &cobra.Command{
		Use:   "train",
		Short: "Learns all files of the scan directory as the configured category",
		Args:  cobra.NoArgs,
		Run:   runTrain,
	}

	fetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "Exports new mails from the configured imap folders into the corpus directory",
		Args:  cobra.NoArgs,
		Run:   runFetch,
	}

	// tokenizeCmd is started by the worker pool, once per source.
	tokenizeCmd = &cobra.Command{
		Use:    "tokenize <source>",
		Short:  "Tokenizes a single source, replacements are read as json from stdin",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		Run:    runTokenize,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "spamtrain.toml", "optional toml config file")
	rootCmd.AddCommand(trainCmd, fetchCmd, tokenizeCmd)
}

// loadConfig reads the configuration and applies its log level. Invalid configuration is fatal.
func loadConfig(validate func(c *config.Config) error) *config.Config {
	logger := log.Logger(log.LOG_MAIN)

	conf, err := config.ReadConfig(configFile)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not load config")
	}

	if conf.Loglevel != nil {
		log.SetLogLevel(*conf.Loglevel)
	}

	err = validate(conf)
	if err != nil {
		logger.WithField("error", err).Fatal("Invalid config")
	}

	return conf
}

func main() {
	log.InitLogging("info")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
