// SPDX-License-Identifier: GPL-3.0-or-later

// Package modelstore persists the classifier model between training runs.
package modelstore

import (
	"errors"
	"fmt"
	"os"

	"github.com/CrawX/go-spam-trainer/bayes"
	"github.com/CrawX/go-spam-trainer/log"

	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("model file not found")

func Load(filename string) (*bayes.Model, error) {
	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read model: %w", err)
	}

	model, err := bayes.Decode(data)
	if err != nil {
		return nil, err
	}

	log.Logger(log.LOG_MODELSTORE).WithFields(logrus.Fields{
		"file":       filename,
		"documents":  model.TotalDocuments,
		"vocabulary": model.VocabularySize,
	}).Info("Loaded model")

	return model, nil
}

// LoadOrNew returns the persisted model or an empty one if there is none or it cannot be read.
// loaded is false whenever the empty model was returned.
func LoadOrNew(filename string) (model *bayes.Model, loaded bool) {
	l := log.Logger(log.LOG_MODELSTORE)

	model, err := Load(filename)
	if err == nil {
		return model, true
	}

	if errors.Is(err, ErrNotFound) {
		l.WithField("file", filename).Info("No model found, starting with an empty model")
	} else {
		l.WithFields(logrus.Fields{"file": filename, "error": err}).Error("Could not load model, starting with an empty model")
	}

	return bayes.New(), false
}

// Save replaces the model file atomically, a crash leaves the previous model in place.
func Save(filename string, model *bayes.Model) error {
	data, err := model.Encode()
	if err != nil {
		return err
	}

	err = renameio.WriteFile(filename, data, 0644)
	if err != nil {
		return fmt.Errorf("could not write model: %w", err)
	}

	log.Logger(log.LOG_MODELSTORE).WithFields(logrus.Fields{
		"file":       filename,
		"documents":  model.TotalDocuments,
		"vocabulary": model.VocabularySize,
	}).Info("Wrote model")
	return nil
}
