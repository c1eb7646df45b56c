// SPDX-License-Identifier: GPL-3.0-or-later

// Package fetcher exports mails from imap folders into a corpus directory that can be trained on.
// Exported mails are remembered so every mail is only exported once.
package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/log"
	"github.com/CrawX/go-spam-trainer/mail"

	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"
)

const BatchSize = 50

type Fetcher struct {
	persistence    domain.Persistence
	imapConnection domain.ImapConnector
	directory      string

	configuration *configuration

	l *logrus.Logger
}

func NewFetcher(persistence domain.Persistence, imapConnection domain.ImapConnector, directory string, configFunc ...ConfigFunc) (*Fetcher, error) {
	if len(directory) == 0 {
		return nil, fmt.Errorf("fetch directory cannot be empty")
	}

	config := &configuration{}
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}

	return &Fetcher{
		persistence:    persistence,
		imapConnection: imapConnection,
		directory:      directory,
		configuration:  config,
		l:              log.Logger(log.LOG_FETCHER),
	}, nil
}

// Fetch exports the new mails of folders as category and returns the number of exported mails.
// Mails end up in <directory>/<category>/<folder>/<mail id hash>.eml.
func (fe *Fetcher) Fetch(ctx context.Context, category domain.Category, folders []string) (int, error) {
	if _, err := domain.ParseCategory(string(category)); err != nil {
		return 0, err
	}

	knownFolders, err := fe.persistence.AllFolders()
	if err != nil {
		return 0, fmt.Errorf("could not list known folders: %w", err)
	}

	total := 0
	for _, f := range folders {
		uidvalidity, err := fe.imapConnection.Select(f)
		if err != nil {
			return total, fmt.Errorf("could not select folder %s: %w", f, err)
		}

		baseFolderLogger := fe.l.WithFields(logrus.Fields{"folder": f, "category": category})

		if !fe.configuration.DryRun && fe.configuration.DeleteFetched {
			notDeleteReadyReason, err := fe.imapConnection.DeleteReady()
			if err != nil {
				return total, fmt.Errorf("could not check for delete readiness: %w", err)
			}

			if notDeleteReadyReason != nil {
				baseFolderLogger.WithField("error", notDeleteReadyReason).Warn("Folder is not ready for mail deletion, skipping")
				continue
			}
		}

		newMailUids, err := fe.getNewMailUids(f, category, knownFolders, uidvalidity)
		if err != nil {
			return total, fmt.Errorf("could not determine new mail uids: %w", err)
		}

		if len(newMailUids) == 0 {
			baseFolderLogger.WithField("newmails", 0).Info("Folder contains no new mails to fetch")
			continue
		}

		target := filepath.Join(fe.directory, string(category), folderDirectory(f))
		if !fe.configuration.DryRun {
			err = os.MkdirAll(target, 0755)
			if err != nil {
				return total, fmt.Errorf("could not create directory %s: %w", target, err)
			}
		}

		batches := partitionUids(newMailUids, BatchSize)
		baseFolderLogger.WithFields(logrus.Fields{"newmails": len(newMailUids), "batches": len(batches)}).Info("Found mails to fetch")

		for _, batch := range batches {
			if err := ctx.Err(); err != nil {
				return total, fmt.Errorf("fetching aborted: %w", err)
			}

			start := time.Now()
			mails, err := fe.imapConnection.FetchMails(batch)
			if err != nil {
				return total, fmt.Errorf("could not fetch mail batch: %w", err)
			}

			if fe.configuration.DryRun {
				for _, m := range mails {
					baseFolderLogger.WithField("subject", mail.ShortSubject(m.Subject)).Info("Not exporting mail due to dry-run")
				}
				continue
			}

			saveMails := []domain.SaveMail{}
			for _, m := range mails {
				filename := filepath.Join(target, m.MailIdHash+".eml")
				err = renameio.WriteFile(filename, m.RawMail, 0644)
				if err != nil {
					return total, fmt.Errorf(`could not write mail "%s": %w`, mail.ShortSubject(m.Subject), err)
				}
				baseFolderLogger.WithFields(logrus.Fields{"subject": mail.ShortSubject(m.Subject), "file": filename}).Debug("Exported mail")

				saveMails = append(
					saveMails,
					domain.SaveMail{
						Category:   category,
						Uid:        m.Uid,
						MailIdHash: m.MailIdHash,
						FolderName: f,
						Subject:    m.Subject,
					},
				)
			}
			err = fe.persistence.SaveMails(saveMails)
			if err != nil {
				return total, fmt.Errorf("could not save mails: %w", err)
			}
			total += len(saveMails)

			baseFolderLogger.WithFields(logrus.Fields{"duration": time.Since(start), "batchsize": len(batch)}).Info("Fetched batch")

			if fe.configuration.DeleteFetched {
				err = fe.imapConnection.Delete(batch)
				if err != nil {
					return total, fmt.Errorf("could not delete batch after fetching: %w", err)
				}
				baseFolderLogger.WithFields(logrus.Fields{"duration": time.Since(start), "batchsize": len(batch)}).Info("Deleted fetched batch")
			}
		}

		if fe.configuration.DryRun {
			continue
		}

		err = fe.persistence.SaveFolder(f, uidvalidity)
		if err != nil {
			return total, fmt.Errorf("could not save uidvalidity for %s: %w", f, err)
		}

		baseFolderLogger.WithFields(logrus.Fields{"newmails": len(newMailUids), "batches": len(batches)}).Info("Fetched mails")
	}

	return total, nil
}

func (fe *Fetcher) getNewMailUids(folder string, category domain.Category, knownFolders []*domain.ImapFolder, uidValidity uint32) ([]uint32, error) {
	knownFolder := folderByName(knownFolders, folder)

	newMails, err := fe.imapConnection.ListUids()
	if err != nil {
		return nil, fmt.Errorf("could not list uids in folder: %w", err)
	}
	fe.l.WithFields(logrus.Fields{"folder": folder, "known": knownFolder != nil, "mails": len(newMails)}).Debug("Listed all uids in folder")
	if knownFolder != nil && knownFolder.UidValidity == uidValidity {
		fe.l.WithFields(logrus.Fields{"folder": folder}).Debug("Folder is a known folder and the uid validity hasn't changed, fast uid-based scan is possible")
		knownMails, err := fe.persistence.GetMailsInFolder(category, folder)
		if err != nil {
			return nil, fmt.Errorf("could not list known uids: %w", err)
		}

		for _, m := range knownMails {
			newMails = removeUid(newMails, m.Uid)
		}
	} else if knownFolder != nil && len(newMails) > 0 {
		fe.l.WithFields(logrus.Fields{"folder": folder}).Debug("Folder is a known folder but the uid validity has changed, header-based scan is necessary")
		mailIds, err := fe.imapConnection.FetchIdHeaders(newMails)
		if err != nil {
			return nil, fmt.Errorf("could not list mail headers for folder: %w", err)
		}

		for _, m := range mailIds {
			knownMail, err := fe.persistence.FindMailByHash(category, folder, m.MailIdHash)
			if err != nil {
				return nil, fmt.Errorf("could not lookup mail via mailIdHash: %w", err)
			}

			if knownMail != nil {
				fe.l.WithFields(logrus.Fields{"folder": folder, "subject": mail.ShortSubject(knownMail.Subject)}).Debug("Is known by hash, updating uid")
				err = fe.persistence.UpdateUid(knownMail.Id, m.Uid)
				if err != nil {
					return nil, fmt.Errorf("could not update uid: %w", err)
				}

				newMails = removeUid(newMails, m.Uid)
			}
		}
	} else {
		fe.l.WithFields(logrus.Fields{"folder": folder}).Debug("Folder is a previously unknown folder, no diff possible")
	}

	sort.Slice(newMails, func(i, j int) bool { return newMails[i] > newMails[j] })
	return newMails, nil
}

// folderDirectory maps an imap folder name to a single directory name.
func folderDirectory(folder string) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(folder)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

func folderByName(knownFolders []*domain.ImapFolder, folder string) *domain.ImapFolder {
	for i := 0; i < len(knownFolders); i++ {
		if knownFolders[i].Name == folder {
			return knownFolders[i]
		}
	}
	return nil
}

func removeUid(newMails []uint32, uid uint32) []uint32 {
	for i := 0; i < len(newMails); i++ {
		if uid == newMails[i] {
			newMails[len(newMails)-1], newMails[i] = newMails[i], newMails[len(newMails)-1]
			newMails = newMails[:len(newMails)-1]
			break
		}
	}
	return newMails
}

// taken from https://github.com/golang/go/wiki/SliceTricks
func partitionUids(uids []uint32, partitionSize int) [][]uint32 {
	batches := make([][]uint32, 0, (len(uids)+partitionSize-1)/partitionSize)

	for partitionSize < len(uids) {
		uids, batches = uids[partitionSize:], append(batches, uids[0:partitionSize:partitionSize])
	}
	batches = append(batches, uids)

	return batches
}
