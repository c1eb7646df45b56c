// SPDX-License-Identifier: GPL-3.0-or-later
package mirror

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/mail"
)

const RspamdTimeout = 20 * time.Second

type Rspamd struct {
	client   *http.Client
	host     string
	password string
}

// NewRspamd connects to the rspamd controller at host, e.g. http://localhost:11334.
func NewRspamd(host, password string) (*Rspamd, error) {
	rspamd := &Rspamd{
		client: &http.Client{
			Timeout: RspamdTimeout,
		},
		host:     strings.TrimRight(host, "/"),
		password: password,
	}
	err := rspamd.Ping()
	if err != nil {
		return nil, fmt.Errorf("could not ping rspamd: %w", err)
	}

	return rspamd, nil
}

func (rs *Rspamd) Ping() error {
	resp, err := rs.client.Get(rs.host + "/ping")
	if err != nil {
		return fmt.Errorf("could not ping rspamd: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from rspamd, expected 200", resp.StatusCode)
	}

	return nil
}

func (rs *Rspamd) Learn(category domain.Category, rawMail []byte) error {
	suffix := ""
	switch category {
	case domain.Spam:
		suffix = "learnspam"
	case domain.Ham:
		suffix = "learnham"
	default:
		return fmt.Errorf("unsupported category %q", category)
	}

	unwrapped, err := mail.UnwrapReport(rawMail)
	if err != nil {
		return fmt.Errorf("could not unwrap SpamAssassin-style report: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, rs.host+"/"+suffix, bytes.NewReader(unwrapped))
	if err != nil {
		return fmt.Errorf("could not create learn request: %w", err)
	}

	resp, err := rs.doAuthenticated(req)
	if err != nil {
		return fmt.Errorf("could not perform learn request: %w", err)
	}
	defer resp.Body.Close()

	// 208 means rspamd has learned this message before
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAlreadyReported && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d from rspamd, expected 200/204/208", resp.StatusCode)
	}

	return nil
}

func (rs *Rspamd) doAuthenticated(req *http.Request) (*http.Response, error) {
	req.Header.Set("Password", rs.password)
	resp, err := rs.client.Do(req)

	if err != nil {
		return nil, fmt.Errorf("could not send request to rspamd: %w", err)
	}

	return resp, nil
}
