// SPDX-License-Identifier: GPL-3.0-or-later
package mirror

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/mail"

	"github.com/teamwork/spamc"
)

const SpamAssassinTimeout = 20 * time.Second

type SpamAssassin struct {
	client *spamc.Client
}

func NewSpamAssassin(host string) (*SpamAssassin, error) {
	client := spamc.New(host, &net.Dialer{
		Timeout: SpamAssassinTimeout,
	})
	err := client.Ping(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("could not ping SpamAssassin: %w", err)
	}

	return &SpamAssassin{client: client}, nil
}

// Learn tells spamd to learn rawMail into its local bayes database.
func (sa *SpamAssassin) Learn(category domain.Category, rawMail []byte) error {
	header, err := tellHeader(category)
	if err != nil {
		return err
	}

	unwrapped, err := mail.UnwrapReport(rawMail)
	if err != nil {
		return fmt.Errorf("could not unwrap SpamAssassin-style report: %w", err)
	}
	_, err = sa.client.Tell(context.TODO(), bytes.NewReader(unwrapped), header)
	if err != nil {
		return fmt.Errorf("could not learn SpamAssassin: %w", err)
	}
	return nil
}

func tellHeader(category domain.Category) (spamc.Header, error) {
	header := spamc.Header{}.Set("Set", "local")
	switch category {
	case domain.Spam:
		return header.Set("Message-class", "spam"), nil
	case domain.Ham:
		return header.Set("Message-class", "ham"), nil
	default:
		return nil, fmt.Errorf("unsupported category %q", category)
	}
}
