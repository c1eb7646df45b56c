// SPDX-License-Identifier: GPL-3.0-or-later

// Package tokenizer turns a message file into the normalized tokens the classifier learns. Volatile
// literals are replaced by the placeholders of a domain.ReplacementMap first so the vocabulary
// never contains concrete urls, addresses or numbers.
package tokenizer

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/mail"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const MaxTokenLength = 50

type replacement struct {
	key     domain.ReplacementKey
	pattern *regexp.Regexp
}

// order matters, urls may contain addresses and numbers, currencies contain numbers
var replacements = []replacement{
	{domain.ReplaceUrl, regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"']+`)},
	{domain.ReplaceEmail, regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	{domain.ReplaceCurrency, regexp.MustCompile(`(?i)[$€£¥]\s?\d+(?:[.,]\d+)*|\b\d+(?:[.,]\d+)*\s?(?:usd|eur|gbp|dollars?|euros?)\b`)},
	{domain.ReplaceNumber, regexp.MustCompile(`\b\d+(?:[.,:]\d+)*\b`)},
	{domain.ReplaceInitialism, regexp.MustCompile(`\b(?:[A-Za-z]\.){2,}`)},
	{domain.ReplaceAbbreviation, regexp.MustCompile(`(?i)\b(?:mr|mrs|ms|dr|prof|sr|jr|st|inc|ltd|co|corp|etc|vs|approx|dept|est)\.`)},
}

// MessageTokenizer is stateless and safe for concurrent use.
type MessageTokenizer struct{}

func New() *MessageTokenizer {
	return &MessageTokenizer{}
}

func (mt *MessageTokenizer) Tokenize(source string, replacementMap domain.ReplacementMap) (*domain.Tokenized, error) {
	raw, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("could not read source: %w", err)
	}

	return &domain.Tokenized{
		Tokens: mt.TokenizeBytes(raw, replacementMap),
		Hash:   mail.ContentHash(raw),
	}, nil
}

// TokenizeBytes tokenizes a raw message. Content that is no mail is tokenized as plain text.
func (mt *MessageTokenizer) TokenizeBytes(raw []byte, replacementMap domain.ReplacementMap) domain.TokenSequence {
	return mt.TokenizeText(extractText(raw), replacementMap)
}

func (mt *MessageTokenizer) TokenizeText(text string, replacementMap domain.ReplacementMap) domain.TokenSequence {
	for _, r := range replacements {
		placeholder := " " + replacementMap.Placeholder(r.key) + " "
		text = r.pattern.ReplaceAllLiteralString(text, placeholder)
	}

	text = cases.Fold().String(norm.NFKC.String(text))

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := domain.TokenSequence{}
	for _, word := range words {
		if replacementMap.IsPlaceholder(word) {
			tokens = append(tokens, word)
			continue
		}

		if len([]rune(word)) < 2 || len(word) > MaxTokenLength || stopWords[word] {
			continue
		}

		tokens = append(tokens, english.Stem(word, false))
	}

	return tokens
}

func extractText(raw []byte) string {
	if !mail.LooksLikeMail(raw) {
		return string(raw)
	}

	unwrapped, err := mail.UnwrapReport(raw)
	if err == nil {
		raw = unwrapped
	}

	subject, parts, err := mail.TextParts(raw)
	if err != nil {
		return string(raw)
	}

	b := &strings.Builder{}
	b.WriteString(subject)
	for _, p := range parts {
		b.WriteString("\n")
		if p.Html {
			b.WriteString(stripHtml(p.Text))
		} else {
			b.WriteString(p.Text)
		}
	}

	return b.String()
}
