// SPDX-License-Identifier: GPL-3.0-or-later
package domain

//go:generate mockgen -destination=mocks/persistence.go -package=mocks . Persistence
type ImapFolder struct {
	Name        string
	UidValidity uint32
}

type SavedImapMail struct {
	Id         int64
	Category   Category
	Uid        uint32
	MailIdHash string
	FolderName string
	Subject    string
}

type SaveMail struct {
	Category   Category
	Uid        uint32
	MailIdHash string
	FolderName string
	Subject    string
}

// Persistence keeps track of the mails that were already exported from imap folders.
type Persistence interface {
	AllFolders() ([]*ImapFolder, error)
	SaveFolder(name string, uidValidity uint32) error
	GetMailsInFolder(category Category, folder string) ([]*SavedImapMail, error)
	FindMailByHash(category Category, folder string, mailIdHash string) (*SavedImapMail, error)
	UpdateUid(id int64, uid uint32) error
	SaveMails(mails []SaveMail) error
}
