// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"os"

	"github.com/CrawX/go-spam-trainer/log"
	"github.com/CrawX/go-spam-trainer/pool"
	"github.com/CrawX/go-spam-trainer/tokenizer"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// runTokenize must only write the result to stdout, logs go to stderr.
func runTokenize(cmd *cobra.Command, args []string) {
	log.SetOutput(os.Stderr)
	if level, ok := os.LookupEnv("LOGLEVEL"); ok {
		log.SetLogLevel(level)
	}

	err := pool.ServeTask(tokenizer.New(), args[0], os.Stdin, os.Stdout)
	if err != nil {
		log.Logger(log.LOG_POOL).WithFields(logrus.Fields{"source": args[0], "error": err}).Error("Could not tokenize source")
		os.Exit(1)
	}
}
