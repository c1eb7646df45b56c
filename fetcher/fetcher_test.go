// SPDX-License-Identifier: GPL-3.0-or-later
package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/domain/mocks"
	"github.com/CrawX/go-spam-trainer/log"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	TEST_FOLDER_1 = "test1"
	TEST_FOLDER_2 = "test2"
)

func setupThreeMails(t *testing.T, cfg *configuration) (*gomock.Controller, *Fetcher, *mocks.MockPersistence, *mocks.MockImapConnector) {
	ctrl := gomock.NewController(t)

	persistence := mocks.NewMockPersistence(ctrl)
	imapConnection := mocks.NewMockImapConnector(ctrl)

	fetcher := &Fetcher{
		persistence:    persistence,
		imapConnection: imapConnection,
		directory:      t.TempDir(),
		configuration:  cfg,
		l:              nullLogger(),
	}

	persistence.EXPECT().
		AllFolders().
		Return(nil, nil)

	imapConnection.EXPECT().
		Select(gomock.Eq(TEST_FOLDER_1)).
		Return(u32(123), nil)

	imapConnection.EXPECT().
		ListUids().
		Return(u32a(1, 2, 3), nil)

	imapConnection.EXPECT().
		FetchMails(gomock.Eq(u32a(3, 2, 1))).
		Return([]*domain.RawImapMail{
			{Uid: 1, MailIdHash: "a", RawMail: []byte{1}},
			{Uid: 2, MailIdHash: "b", RawMail: []byte{2}},
			{Uid: 3, MailIdHash: "c", RawMail: []byte{3}},
		}, nil)

	return ctrl, fetcher, persistence, imapConnection
}

func TestNewFetcher(t *testing.T) {
	log.InitLogging("error")
	tests := []struct {
		name      string
		directory string
		cfgs      []ConfigFunc
		err       string
	}{
		{"ok", "corpus", []ConfigFunc{DryRun(), DeleteFetched()}, ""},
		{"nodirectory", "", nil, "fetch directory cannot be empty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fetcher, err := NewFetcher(nil, nil, tc.directory, tc.cfgs...)
			if len(tc.err) == 0 {
				assert.NotNil(t, fetcher)
				assert.NoError(t, err)
			} else {
				assert.Nil(t, fetcher)
				assert.EqualError(t, err, tc.err)
			}
		})
	}
}

func TestFetcher_Fetch(t *testing.T) {
	for _, category := range domain.Categories {
		t.Run(string(category), func(t *testing.T) {
			ctrl, fetcher, persistence, _ := setupThreeMails(t, &configuration{})
			defer ctrl.Finish()

			persistence.EXPECT().
				SaveMails(gomock.Any()).
				DoAndReturn(func(mails []domain.SaveMail) error {
					assert.ElementsMatch(t,
						mails,
						[]domain.SaveMail{
							saveMail(category, 1, "a"),
							saveMail(category, 2, "b"),
							saveMail(category, 3, "c"),
						},
					)
					return nil
				})

			persistence.EXPECT().
				SaveFolder(TEST_FOLDER_1, u32(123)).
				Return(nil)

			fetched, err := fetcher.Fetch(context.Background(), category, []string{TEST_FOLDER_1})
			assert.NoError(t, err)
			assert.Equal(t, 3, fetched)

			for i, hash := range []string{"a", "b", "c"} {
				raw, err := os.ReadFile(filepath.Join(fetcher.directory, string(category), TEST_FOLDER_1, hash+".eml"))
				require.NoError(t, err)
				assert.Equal(t, []byte{byte(i + 1)}, raw)
			}
		})
	}
}

func TestFetcher_FetchDelete(t *testing.T) {
	ctrl, fetcher, persistence, imapConnection := setupThreeMails(t, &configuration{DeleteFetched: true})
	defer ctrl.Finish()

	imapConnection.EXPECT().
		DeleteReady().
		Return(nil, nil)

	persistence.EXPECT().
		SaveMails(gomock.Any()).
		Return(nil)

	imapConnection.EXPECT().
		Delete(u32a(3, 2, 1)).
		Return(nil)

	persistence.EXPECT().
		SaveFolder(TEST_FOLDER_1, u32(123)).
		Return(nil)

	fetched, err := fetcher.Fetch(context.Background(), domain.Spam, []string{TEST_FOLDER_1})
	assert.NoError(t, err)
	assert.Equal(t, 3, fetched)
}

func TestFetcher_FetchDryRun(t *testing.T) {
	ctrl, fetcher, _, _ := setupThreeMails(t, &configuration{DryRun: true, DeleteFetched: true})
	defer ctrl.Finish()

	fetched, err := fetcher.Fetch(context.Background(), domain.Ham, []string{TEST_FOLDER_1})
	assert.NoError(t, err)
	assert.Equal(t, 0, fetched)

	entries, err := os.ReadDir(fetcher.directory)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetcher_FetchNotDeleteReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	persistence := mocks.NewMockPersistence(ctrl)
	imapConnection := mocks.NewMockImapConnector(ctrl)

	fetcher := &Fetcher{
		persistence:    persistence,
		imapConnection: imapConnection,
		directory:      t.TempDir(),
		configuration:  &configuration{DeleteFetched: true},
		l:              nullLogger(),
	}

	persistence.EXPECT().AllFolders().Return(nil, nil)
	imapConnection.EXPECT().Select(gomock.Eq(TEST_FOLDER_1)).Return(u32(1), nil)
	imapConnection.EXPECT().Select(gomock.Eq(TEST_FOLDER_2)).Return(u32(2), nil)
	imapConnection.EXPECT().DeleteReady().Return(assert.AnError, nil)
	imapConnection.EXPECT().DeleteReady().Return(nil, nil)
	imapConnection.EXPECT().ListUids().Return(u32a(), nil)

	fetched, err := fetcher.Fetch(context.Background(), domain.Spam, []string{TEST_FOLDER_1, TEST_FOLDER_2})
	assert.NoError(t, err)
	assert.Equal(t, 0, fetched)
}

func TestFetcher_FetchCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	persistence := mocks.NewMockPersistence(ctrl)
	imapConnection := mocks.NewMockImapConnector(ctrl)

	fetcher := &Fetcher{
		persistence:    persistence,
		imapConnection: imapConnection,
		directory:      t.TempDir(),
		configuration:  &configuration{},
		l:              nullLogger(),
	}

	persistence.EXPECT().AllFolders().Return(nil, nil)
	imapConnection.EXPECT().Select(gomock.Eq(TEST_FOLDER_1)).Return(u32(1), nil)
	imapConnection.EXPECT().ListUids().Return(u32a(1), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Fetch(ctx, domain.Spam, []string{TEST_FOLDER_1})
	assert.EqualError(t, err, "fetching aborted: context canceled")
}

func TestFetcher_FetchInvalidCategory(t *testing.T) {
	fetcher := &Fetcher{configuration: &configuration{}, l: nullLogger()}

	_, err := fetcher.Fetch(context.Background(), "eggs", []string{TEST_FOLDER_1})
	assert.EqualError(t, err, `unsupported category "eggs", expected ham or spam`)
}

func TestFetcher_getNewMailUids(t *testing.T) {
	tests := []struct {
		name string

		folder       string
		knownFolders []*domain.ImapFolder
		uidValidity  uint32

		imapUids []uint32

		knownUids []uint32

		idHeaders   map[string]uint32
		knownHashes []string

		expectedNew []uint32
	}{
		{
			"unknownfolder",
			TEST_FOLDER_1, imapFolder(TEST_FOLDER_2, 123), 123,
			u32a(1, 2),
			nil,
			nil, nil,
			u32a(1, 2),
		},
		{
			"knownfolder_uidvalidity_unchanged",
			TEST_FOLDER_1, imapFolder(TEST_FOLDER_1, 123), 123,
			u32a(1, 2, 3),
			u32a(1, 3),
			nil, nil,
			u32a(2),
		},
		{
			"knownfolder_uidvalidity_changed",
			TEST_FOLDER_1, imapFolder(TEST_FOLDER_1, 123), 124,
			u32a(1, 2, 3),
			nil,
			map[string]uint32{"a": 1, "b": 2, "c": 3}, []string{"a", "c"},
			u32a(2),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			persistence := mocks.NewMockPersistence(ctrl)
			imapConnection := mocks.NewMockImapConnector(ctrl)

			fetcher := &Fetcher{
				persistence:    persistence,
				imapConnection: imapConnection,
				l:              nullLogger(),
			}

			imapConnection.EXPECT().ListUids().Return(tc.imapUids, nil)

			// known & uidvalidity unchanged
			if tc.knownUids != nil {
				stubMails := []*domain.SavedImapMail{}
				for _, uid := range tc.knownUids {
					stubMails = append(stubMails, &domain.SavedImapMail{Uid: uid})
				}
				persistence.EXPECT().GetMailsInFolder(gomock.Eq(domain.Spam), gomock.Eq(TEST_FOLDER_1)).Return(stubMails, nil)
			}

			// known & uidvalidity has changed
			if tc.idHeaders != nil {
				stubMails := []*domain.ImapIdInfo{}
				for hash, uid := range tc.idHeaders {
					stubMails = append(stubMails, &domain.ImapIdInfo{Uid: uid, MailIdHash: hash})

					known := -1
					for i := 0; i < len(tc.knownHashes); i++ {
						if hash == tc.knownHashes[i] {
							known = i
							break
						}
					}

					if known > -1 {
						persistence.EXPECT().FindMailByHash(gomock.Eq(domain.Spam), gomock.Eq(tc.folder), gomock.Eq(hash)).
							Return(&domain.SavedImapMail{Id: int64(known)}, nil)
						persistence.EXPECT().UpdateUid(gomock.Eq(int64(known)), gomock.Eq(uid))
					} else {
						persistence.EXPECT().FindMailByHash(gomock.Eq(domain.Spam), gomock.Eq(tc.folder), gomock.Eq(hash)).
							Return(nil, nil)
					}
				}
				imapConnection.EXPECT().FetchIdHeaders(gomock.Eq(tc.imapUids)).Return(stubMails, nil)
			}

			uids, err := fetcher.getNewMailUids(tc.folder, domain.Spam, tc.knownFolders, tc.uidValidity)
			assert.NoError(t, err)
			assert.ElementsMatch(t, tc.expectedNew, uids)
		})
	}
}

func Test_partitionUids(t *testing.T) {
	tests := []struct {
		name     string
		input    []uint32
		expected [][]uint32
	}{
		{"singlepartition", u32a(1), [][]uint32{u32a(1)}},
		{"multiple", u32a(1, 2, 3, 4, 5), [][]uint32{u32a(1, 2), u32a(3, 4), u32a(5)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			uids := partitionUids(tc.input, 2)
			assert.Equal(t, tc.expected, uids)
		})
	}
}

func Test_folderDirectory(t *testing.T) {
	assert.Equal(t, "INBOX", folderDirectory("INBOX"))
	assert.Equal(t, "INBOX_Junk", folderDirectory("INBOX/Junk"))
	assert.Equal(t, "_", folderDirectory(".."))
	assert.Equal(t, "_", folderDirectory(""))
}

func nullLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func u32(val int) uint32 {
	return uint32(val)
}

func u32a(val ...int) []uint32 {
	a := []uint32{}
	for _, v := range val {
		a = append(a, u32(v))
	}

	return a
}

func saveMail(category domain.Category, uid uint32, mailIdHash string) domain.SaveMail {
	return domain.SaveMail{
		Category:   category,
		Uid:        uid,
		MailIdHash: mailIdHash,
		FolderName: TEST_FOLDER_1,
	}
}

func imapFolder(name string, uidValidity int) []*domain.ImapFolder {
	return []*domain.ImapFolder{{
		Name:        name,
		UidValidity: u32(uidValidity),
	}}
}
