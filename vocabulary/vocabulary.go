// SPDX-License-Identifier: GPL-3.0-or-later

// Package vocabulary owns the replacement map: the placeholder tokens substituted for urls, email
// addresses, numbers and similar volatile literals. The map is generated once and must stay
// identical for as long as a model trained with it is in use. Delete the file to generate a new
// one (and retrain from scratch).
package vocabulary

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/CrawX/go-spam-trainer/domain"
	"github.com/CrawX/go-spam-trainer/log"

	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"
)

const (
	SuffixLength = 10
	alphabet     = "abcdefghijklmnopqrstuvwxyz"
)

var ErrNotFound = errors.New("replacements file not found")

// LoadOrCreate returns the persisted map or, if it cannot be loaded, a freshly generated one. The
// second return value is true if the map was generated. Nothing is written here, see Save.
func LoadOrCreate(filename string) (domain.ReplacementMap, bool, error) {
	l := log.Logger(log.LOG_VOCABULARY)

	replacements, err := Load(filename)
	if err == nil {
		l.WithField("file", filename).Info("Loaded replacements")
		return replacements, false, nil
	}

	if errors.Is(err, ErrNotFound) {
		l.WithField("file", filename).Info("No replacements found, generating new replacements")
	} else {
		l.WithFields(logrus.Fields{"file": filename, "error": err}).Error("Could not load replacements, generating new replacements")
	}

	replacements, err = Generate()
	if err != nil {
		return nil, false, fmt.Errorf("could not generate replacements: %w", err)
	}

	return replacements, true, nil
}

func Load(filename string) (domain.ReplacementMap, error) {
	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read replacements: %w", err)
	}

	replacements := domain.ReplacementMap{}
	err = json.Unmarshal(data, &replacements)
	if err != nil {
		return nil, fmt.Errorf("could not parse replacements: %w", err)
	}

	for _, key := range domain.ReplacementKeys {
		if len(replacements[key]) == 0 {
			return nil, fmt.Errorf("replacement for %s missing", key)
		}
	}

	return replacements, nil
}

// Generate creates a placeholder "<key><suffix>" for every replacement key, the suffix being
// SuffixLength random lowercase letters.
func Generate() (domain.ReplacementMap, error) {
	replacements := domain.ReplacementMap{}
	for _, key := range domain.ReplacementKeys {
		suffix, err := randomString(SuffixLength)
		if err != nil {
			return nil, err
		}
		replacements[key] = string(key) + suffix
	}

	return replacements, nil
}

func Save(filename string, replacements domain.ReplacementMap) error {
	data, err := json.MarshalIndent(replacements, "", "  ")
	if err != nil {
		return fmt.Errorf("could not serialize replacements: %w", err)
	}

	err = renameio.WriteFile(filename, append(data, '\n'), 0644)
	if err != nil {
		return fmt.Errorf("could not write replacements: %w", err)
	}

	log.Logger(log.LOG_VOCABULARY).WithField("file", filename).Info("Wrote replacements")
	return nil
}

func randomString(length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("could not read random: %w", err)
		}
		result[i] = alphabet[n.Int64()]
	}

	return string(result), nil
}
