// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"fmt"
	"io"

	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/log"
	"github.com/CrawX/go-spam-trainer/mail"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap-compress"
	"github.com/emersion/go-imap-uidplus"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"
)

type ImapConnection struct {
	connection    *client.Client
	uidplusClient *uidplus.Client
	mailDeleter   deleter

	server string

	selectedFolder string

	l *logrus.Logger
}

func NewImapConnection(server string, user string, password string) (*ImapConnection, error) {
	imapClient, err := client.DialTLS(server, nil)
	if err != nil {
		return nil, fmt.Errorf("could not dial to imap: %w", err)
	}

	err = imapClient.Login(user, password)
	if err != nil {
		imapClient.Logout()
		return nil, fmt.Errorf("could not login to imap: %w", err)
	}

	conn := &ImapConnection{
		connection: imapClient,
		server:     server,
		l:          log.Logger(log.LOG_IMAP),
	}

	baseLogger := conn.l.WithFields(logrus.Fields{"server": server})
	baseLogger.Debug("Logged in to server")

	compressClient := compress.NewClient(imapClient)
	compressSupported, err := compressClient.SupportCompress(compress.Deflate)
	if err != nil {
		imapClient.Logout()
		return nil, fmt.Errorf("could not check for COMPRESS support: %w", err)
	}
	if compressSupported {
		err = compressClient.Compress(compress.Deflate)
		if err != nil {
			imapClient.Logout()
			return nil, fmt.Errorf("could not enable compression: %w", err)
		}
		baseLogger.Debug("COMPRESS supported on server, enabled deflate")
	}

	uidPlusClient := uidplus.NewClient(imapClient)
	uidPlusSupported, err := uidPlusClient.SupportUidPlus()
	if err != nil {
		imapClient.Logout()
		return nil, fmt.Errorf("could not check for UIDPLUS support: %w", err)
	}

	if uidPlusSupported {
		baseLogger.Debug("UIDPLUS supported on server, using UID delete")
		conn.uidplusClient = uidPlusClient
		conn.mailDeleter = &uidPlusDeleter{
			imapConn: conn,
		}
	} else {
		baseLogger.Info("UIDPLUS not supported on server, falling back to flag&expunge")
		conn.mailDeleter = &compatibilityDeleter{
			imapConn: conn,
		}
	}

	return conn, nil
}

func (ic *ImapConnection) Select(folder string) (uint32, error) {
	m, err := ic.connection.Select(folder, false)
	if err != nil {
		return 0, fmt.Errorf("could not select folder: %w", err)
	}

	ic.selectedFolder = folder
	return m.UidValidity, nil
}

func (ic *ImapConnection) ListUids() ([]uint32, error) {
	// Get all UIDs in folder (empty search criteria)
	criteria := imap.NewSearchCriteria()
	ids, err := ic.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("could not list folder: %w", err)
	}

	return ids, nil
}

func (ic *ImapConnection) FetchMails(uids []uint32) ([]*domain.RawImapMail, error) {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)

	messages := make(chan *imap.Message, 10)
	fullBodySection := &imap.BodySectionName{
		Peek: true,
	}

	fetchItems := []imap.FetchItem{fullBodySection.FetchItem()}
	done := make(chan error, 1)
	go func() {
		done <- ic.connection.UidFetch(seqset, fetchItems, messages)
	}()

	mails := []*domain.RawImapMail{}
	var readErr error
	for msg := range messages {
		// keep draining so UidFetch can finish
		if readErr != nil {
			continue
		}

		r := msg.GetBody(fullBodySection)
		if r == nil {
			readErr = fmt.Errorf("server did not return a body for uid %d", msg.Uid)
			continue
		}
		rawBody, err := io.ReadAll(r)
		if err != nil {
			readErr = fmt.Errorf("could not read mail body: %w", err)
			continue
		}

		identity, err := mail.Identify(rawBody)
		if err != nil {
			readErr = fmt.Errorf("could not parse mail header infos: %w", err)
			continue
		}

		mails = append(
			mails,
			&domain.RawImapMail{
				Uid:        msg.Uid,
				Subject:    identity.Subject,
				MailIdHash: identity.IdHash,
				RawMail:    rawBody,
			},
		)
	}

	err := <-done
	if err != nil {
		return nil, fmt.Errorf("could not fetch mails: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}

	return mails, nil
}

func (ic *ImapConnection) FetchIdHeaders(uids []uint32) ([]*domain.ImapIdInfo, error) {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{
			Specifier: imap.HeaderSpecifier,
			Fields: []string{
				"Received",
				"Message-Id",
				"Subject",
			},
		},
		Peek: true,
	}
	fetchItems := []imap.FetchItem{section.FetchItem()}

	out := make(chan *imap.Message)
	done := make(chan error, 1)
	go func() {
		done <- ic.connection.UidFetch(seqset, fetchItems, out)
	}()

	results := []*domain.ImapIdInfo{}
	var readErr error
	for msg := range out {
		if readErr != nil {
			continue
		}

		r := msg.GetBody(section)
		if r == nil {
			readErr = fmt.Errorf("server did not return headers for uid %d", msg.Uid)
			continue
		}

		rawHeaders, err := io.ReadAll(r)
		if err != nil {
			readErr = fmt.Errorf("could not read mail body: %w", err)
			continue
		}

		identity, err := mail.Identify(rawHeaders)
		if err != nil {
			readErr = fmt.Errorf("could not parse mail header infos: %w", err)
			continue
		}

		results = append(
			results,
			&domain.ImapIdInfo{
				Uid:        msg.Uid,
				Subject:    identity.Subject,
				MailIdHash: identity.IdHash,
			},
		)
	}

	err := <-done
	if err != nil {
		return nil, fmt.Errorf("could not fetch mails: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}

	return results, nil
}

func (ic *ImapConnection) Close() error {
	return ic.connection.Logout()
}

func (ic *ImapConnection) Delete(uids []uint32) error {
	return ic.mailDeleter.delete(uids)
}

func (ic *ImapConnection) DeleteReady() (error, error) {
	return ic.mailDeleter.deleteReady()
}

func (ic *ImapConnection) flagDeleted(uids []uint32) (*imap.SeqSet, error) {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err := ic.connection.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.DeletedFlag}, nil)
	if err != nil {
		return nil, fmt.Errorf("could set delete flag: %w", err)
	}

	return seqset, nil
}

func (ic *ImapConnection) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	return ic.connection.UidSearch(criteria)
}

func (ic *ImapConnection) Expunge(ch chan uint32) error {
	return ic.connection.Expunge(ch)
}

// UidExpunge is only available if the server supports UIDPLUS.
func (ic *ImapConnection) UidExpunge(seqSet *imap.SeqSet, ch chan uint32) error {
	if ic.uidplusClient == nil {
		close(ch)
		return fmt.Errorf("UIDPLUS is not supported on %s", ic.server)
	}
	return ic.uidplusClient.UidExpunge(seqSet, ch)
}
