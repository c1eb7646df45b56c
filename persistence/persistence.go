// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/log"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

//go:embed sql/*.sql
var migrations embed.FS

type Persistence struct {
	db *sqlx.DB
	l  *logrus.Logger
}

func NewPersistence(datasource string) (*Persistence, error) {
	db, err := sqlx.Connect("sqlite3", datasource)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := log.Logger(log.LOG_PERSISTENCE)
	l.WithField("file", datasource).Info("Connected")

	migrationSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations,
		Root:       "sql",
	}

	_, err = db.Exec(`PRAGMA journal_mode=WAL`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not set journal mode: %w", err)
	}
	_, err = db.Exec(`PRAGMA synchronous=normal`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not set synchronous mode: %w", err)
	}

	appliedMigrations, err := migrate.Exec(db.DB, "sqlite3", migrationSource, migrate.Up)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not migrate to newest version: %w", err)
	}

	l.WithField("migrations", appliedMigrations).Debug("Executed migrations")

	return &Persistence{
		db: db,
		l:  l,
	}, nil
}

func (p *Persistence) Close() error {
	err := p.db.Close()
	if err != nil {
		return fmt.Errorf("could not close db: %w", err)
	}
	p.l.Info("Disconnected")
	return nil
}

// TrainedHashes returns the content hashes of all sources of category that were learned before.
func (p *Persistence) TrainedHashes(category domain.Category) (map[string]bool, error) {
	hashes := []string{}
	err := p.db.Select(
		&hashes,
		`SELECT hash FROM trained_sources WHERE category = ?`,
		string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	result := make(map[string]bool, len(hashes))
	for _, hash := range hashes {
		result[hash] = true
	}

	p.l.WithFields(logrus.Fields{"category": category, "count": len(result)}).Debug("Found trained sources")

	return result, nil
}

// SaveTrained records sources as learned by run runId. persist runs after the sources were inserted
// and before the transaction commits, if it fails nothing is recorded. persist may be nil.
func (p *Persistence) SaveTrained(runId string, sources []domain.TrainedSource, persist func() error) error {
	tx, err := p.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO trained_sources(hash, category, path, run_id, trained_at) VALUES(?, ?, ?, ?, ?)",
	)
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not prepare statement: %w", err))
	}
	defer stmt.Close()

	for _, source := range sources {
		trainedAt := source.TrainedAt
		if trainedAt.IsZero() {
			trainedAt = time.Now()
		}

		_, err := stmt.Exec(source.Hash, string(source.Category), source.Path, runId, trainedAt.UTC())
		if err != nil {
			return txEnd(tx, fmt.Errorf("could not save trained source %s: %w", source.Path, err))
		}
	}

	if persist != nil {
		err = persist()
		if err != nil {
			return txEnd(tx, err)
		}
	}

	err = txEnd(tx, nil)
	if err != nil {
		return err
	}

	p.l.WithFields(logrus.Fields{"run": runId, "count": len(sources)}).Info("Persisted trained sources")
	return nil
}

func (p *Persistence) AllFolders() ([]*domain.ImapFolder, error) {
	dbFolders := []struct {
		Name        string
		UidValidity uint32
	}{}

	err := p.db.Select(
		&dbFolders,
		`SELECT name, uidvalidity from folders`,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	folders := []*domain.ImapFolder{}
	for _, f := range dbFolders {
		folders = append(
			folders,
			&domain.ImapFolder{
				Name:        f.Name,
				UidValidity: f.UidValidity,
			},
		)
	}

	p.l.WithField("Count", len(folders)).Debug("Found folders")

	return folders, nil
}

func (p *Persistence) SaveFolder(name string, uidValidity uint32) error {
	_, err := p.db.Exec(
		"INSERT OR REPLACE INTO folders (name, uidvalidity) VALUES (?, ?)",
		name,
		uidValidity,
	)

	if err != nil {
		return fmt.Errorf("could not save folder: %w", err)
	}

	p.l.WithFields(logrus.Fields{"Name": name, "UidValidity": uidValidity}).Info("Persisted folder")
	return nil
}

type dbMail struct {
	Id         int64
	Category   string
	Uid        uint32
	MailIdHash string
	FolderName string
	Subject    string
}

func (m dbMail) toDomain() *domain.SavedImapMail {
	return &domain.SavedImapMail{
		Id:         m.Id,
		Category:   domain.Category(m.Category),
		Uid:        m.Uid,
		MailIdHash: m.MailIdHash,
		FolderName: m.FolderName,
		Subject:    m.Subject,
	}
}

func (p *Persistence) GetMailsInFolder(category domain.Category, folder string) ([]*domain.SavedImapMail, error) {
	dbMessages := []dbMail{}

	err := p.db.Select(
		&dbMessages,
		`SELECT id, category, uid, mailidhash, foldername, subject from messages WHERE category = ? AND foldername = ?`,
		string(category),
		folder,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	messages := make([]*domain.SavedImapMail, 0, len(dbMessages))
	for _, m := range dbMessages {
		messages = append(messages, m.toDomain())
	}

	return messages, nil
}

// FindMailByHash returns nil without an error if no such mail is known.
func (p *Persistence) FindMailByHash(category domain.Category, folder string, mailIdHash string) (*domain.SavedImapMail, error) {
	m := dbMail{}

	err := p.db.Get(
		&m,
		"SELECT id, category, uid, mailidhash, foldername, subject from messages WHERE category = ? AND foldername = ? AND mailidhash = ?",
		string(category),
		folder,
		mailIdHash,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	return m.toDomain(), nil
}

func (p *Persistence) UpdateUid(id int64, uid uint32) error {
	result, err := p.db.Exec(
		"UPDATE messages set uid = ? WHERE id = ?",
		uid, id,
	)
	if err != nil {
		return fmt.Errorf("could not update uid: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get num of affected rows: %w", err)
	}

	if affected != 1 {
		return fmt.Errorf("unexpected number of affected rows, expected 1 got %d", affected)
	}

	return nil
}

func (p *Persistence) SaveMails(mails []domain.SaveMail) error {
	tx, err := p.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO messages(category, uid, mailidhash, foldername, subject) VALUES(?, ?, ?, ?, ?)",
	)
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not prepare statement: %w", err))
	}
	defer stmt.Close()

	for _, mail := range mails {
		_, err := stmt.Exec(
			string(mail.Category), mail.Uid, mail.MailIdHash, mail.FolderName, mail.Subject,
		)

		if err != nil {
			return txEnd(tx, fmt.Errorf("could not save mail: %w", err))
		}
	}

	return txEnd(tx, nil)
}

func txEnd(tx *sqlx.Tx, err error) error {
	if err == nil {
		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("could not commit tx: %w", err)
		}
	} else {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			errStr := err.Error()
			return fmt.Errorf("%s, could not rollback tx: %w", errStr, rollbackErr)
		} else {
			return err
		}
	}

	return nil
}
