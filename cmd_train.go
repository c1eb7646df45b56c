// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/CrawX/go-spam-trainer/config"
	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/log"
	"github.com/CrawX/go-spam-trainer/mirror"
	"github.com/CrawX/go-spam-trainer/persistence"
	"github.com/CrawX/go-spam-trainer/training"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runTrain(cmd *cobra.Command, args []string) {
	logger := log.Logger(log.LOG_MAIN)
	conf := loadConfig((*config.Config).ValidateTrain)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := training.NewRunner(conf)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not start tokenize workers")
	}

	var ledger domain.SourceLedger
	if conf.SkipLearned {
		p, err := persistence.NewPersistence(conf.Database)
		if err != nil {
			logger.WithField("error", err).Fatal("Could not connect to database")
		}
		defer p.Close()
		ledger = p
	} else {
		logger.Info("SkipLearned not set, every source is learned")
	}

	learner, err := mirror.Connect(conf.MirrorSpamassassinHost, conf.MirrorRspamdController, conf.MirrorRspamdPassword)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not connect to mirror")
	}

	logger.WithFields(logrus.Fields{
		"category":    conf.Category,
		"directory":   conf.ScanDirectory,
		"concurrency": conf.Concurrency,
		"isolation":   conf.Isolation,
		"mirror":      learner != nil,
	}).Info("Training")

	result, err := training.NewTraining(conf, runner, ledger, learner).Run(ctx)
	if err != nil {
		logger.WithField("error", err).Fatal("Training failed")
	}

	logger.WithFields(logrus.Fields{
		"run":      result.RunId,
		"sources":  result.Stats.Sources,
		"learned":  result.Stats.Learned,
		"empty":    result.Stats.Empty,
		"failed":   result.Stats.Failed,
		"skipped":  result.Stats.Skipped,
		"mirrored": result.Mirrored,
	}).Info("Done")
}
