// SPDX-License-Identifier: GPL-3.0-or-later

// Package mail reads the parts of a raw message the trainer cares about: the text it learns from,
// the hashes that identify it and the original message inside a SpamAssassin report.
package mail

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	stdmail "net/mail"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// ContentHash identifies a source by its raw content.
func ContentHash(raw []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(raw))
}

// Identity names a mail on the imap server. IdHash only covers the Message-Id and Received
// headers, it survives uid changes and moves between folders.
type Identity struct {
	Subject string
	IdHash  string
}

// Identify reads the identity from the header block of rawMail, the body may be missing.
func Identify(rawMail []byte) (*Identity, error) {
	msg, err := stdmail.ReadMessage(bytes.NewReader(rawMail))
	if err != nil {
		return nil, fmt.Errorf("could not parse mail: %w", err)
	}

	messageIds := msg.Header["Message-Id"]
	received := msg.Header["Received"]
	if len(messageIds) == 0 && len(received) == 0 {
		return nil, fmt.Errorf("neither Message-Id nor Received header found")
	}

	dec := &mime.WordDecoder{CharsetReader: charset.Reader}
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		return nil, fmt.Errorf("could not decode subject header: %w", err)
	}

	return &Identity{
		Subject: subject,
		IdHash:  headerHash(messageIds, received),
	}, nil
}

func headerHash(headers ...[]string) string {
	sha := sha256.New()
	for _, values := range headers {
		for _, v := range values {
			// writes to a hash never fail
			sha.Write([]byte(v))
		}
	}
	return fmt.Sprintf("%x", sha.Sum(nil))
}

// UnwrapReport returns the original message attached to a SpamAssassin report. Any other mail is
// returned unchanged.
func UnwrapReport(rawMail []byte) ([]byte, error) {
	msg, err := stdmail.ReadMessage(bytes.NewReader(rawMail))
	if err != nil {
		return nil, fmt.Errorf("could not parse mail: %w", err)
	}

	boundary, ok := reportBoundary(msg.Header)
	if !ok {
		return rawMail, nil
	}

	original, err := originalPart(multipart.NewReader(msg.Body, boundary))
	if err != nil {
		return nil, err
	}
	if original == nil {
		return rawMail, nil
	}

	return original, nil
}

// reportBoundary returns the multipart boundary of a mail that carries SpamAssassin report
// headers.
func reportBoundary(header stdmail.Header) (string, bool) {
	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return "", false
	}

	spamHeaders := 0
	for key := range header {
		if strings.Contains(key, "X-Spam-") {
			spamHeaders++
		}
	}

	return params["boundary"], spamHeaders >= 2
}

func originalPart(mr *multipart.Reader) ([]byte, error) {
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("could not read report part: %w", err)
		}

		if !strings.Contains(p.Header.Get("Content-Type"), "x-spam-type=original") {
			continue
		}

		original, err := io.ReadAll(p)
		if err != nil {
			return nil, fmt.Errorf("could not read original message: %w", err)
		}
		return original, nil
	}
}

type TextPart struct {
	Html bool
	Text string
}

// TextParts returns the decoded subject and all inline text/plain and text/html parts of
// rawMail. Attachments are skipped. Parts in unknown charsets are returned undecoded.
func TextParts(rawMail []byte) (string, []TextPart, error) {
	mr, err := mail.CreateReader(bytes.NewReader(rawMail))
	if err != nil && !message.IsUnknownCharset(err) {
		return "", nil, fmt.Errorf("could not parse mail: %w", err)
	}

	subject, err := mr.Header.Subject()
	if err != nil {
		subject = mr.Header.Get("Subject")
	}

	parts := []TextPart{}
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", nil, fmt.Errorf("could not read mail part: %w", err)
		}
		if p == nil {
			break
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, err := h.ContentType()
		if err != nil || len(contentType) == 0 {
			contentType = "text/plain"
		}
		if !strings.HasPrefix(contentType, "text/") {
			continue
		}

		body, err := io.ReadAll(p.Body)
		if err != nil {
			return "", nil, fmt.Errorf("could not read mail body: %w", err)
		}

		parts = append(parts, TextPart{
			Html: contentType == "text/html",
			Text: string(body),
		})
	}

	return subject, parts, nil
}

// LooksLikeMail reports whether raw starts with a header block.
func LooksLikeMail(raw []byte) bool {
	end := bytes.Index(raw, []byte("\n\n"))
	if end < 0 {
		end = bytes.Index(raw, []byte("\r\n\r\n"))
	}
	if end <= 0 {
		return false
	}

	firstLine := raw[:end]
	if i := bytes.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}

	colon := bytes.IndexByte(firstLine, ':')
	return colon > 0 && !bytes.ContainsAny(firstLine[:colon], " \t")
}

// ShortSubject cuts subject to a length that fits a log line.
func ShortSubject(subject string) string {
	if len(subject) > 30 {
		return subject[:30] + "..."
	}
	return subject
}
