// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/CrawX/go-spam-trainer/config"
	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/fetcher"
	"github.com/CrawX/go-spam-trainer/imapconnection"
	"github.com/CrawX/go-spam-trainer/log"
	"github.com/CrawX/go-spam-trainer/persistence"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runFetch(cmd *cobra.Command, args []string) {
	logger := log.Logger(log.LOG_MAIN)
	conf := loadConfig((*config.Config).ValidateFetch)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := persistence.NewPersistence(conf.Database)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not connect to database")
	}
	defer p.Close()

	imapConn, err := imapconnection.NewImapConnection(conf.ImapHost, conf.User, conf.Password)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not start imap connector")
	}
	defer imapConn.Close()

	configs := []fetcher.ConfigFunc{}
	if conf.DryRun {
		configs = append(configs, fetcher.DryRun())
	}
	if conf.DeleteFetched {
		configs = append(configs, fetcher.DeleteFetched())
	}

	f, err := fetcher.NewFetcher(p, imapConn, conf.FetchDirectory, configs...)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not start fetcher")
	}

	logger.WithFields(logrus.Fields{
		"spamfolders":   conf.SpamFetchFolders,
		"hamfolders":    conf.HamFetchFolders,
		"directory":     conf.FetchDirectory,
		"deletefetched": conf.DeleteFetched,
		"dryrun":        conf.DryRun,
	}).Info("Fetching mails")
	if conf.DeleteFetched {
		if conf.DryRun {
			logger.Warn("Skipping deletion of fetched mails due to dry-run")
		} else {
			logger.Info("Fetched mails will be deleted from server afterwards")
		}
	}

	for _, job := range []struct {
		category domain.Category
		folders  []string
	}{
		{domain.Spam, conf.SpamFetchFolders},
		{domain.Ham, conf.HamFetchFolders},
	} {
		if len(job.folders) == 0 {
			continue
		}

		fetched, err := f.Fetch(ctx, job.category, job.folders)
		if err != nil {
			logger.WithFields(logrus.Fields{"category": job.category, "error": err}).Fatal("Fetching failed")
		}
		logger.WithFields(logrus.Fields{"category": job.category, "fetched": fetched}).Info("Fetched mails")
	}
}
