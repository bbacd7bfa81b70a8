// Package ingest turns an uploaded quiz document and answer key into stored
// questions, skipping inputs that were already imported.
package ingest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/qbank/internal/extract"
	"github.com/pavelanni/qbank/internal/model"
	"github.com/pavelanni/qbank/internal/source"
	"github.com/pavelanni/qbank/internal/store"
)

// ErrNoQuestions is returned when the question document yields no records.
var ErrNoQuestions = errors.New("question document contains no questions")

// Document is one input file.
type Document struct {
	Name string
	Data []byte
}

// Text returns the document as plain text, converting HTML by file name.
func (d Document) Text() (string, error) {
	if source.IsHTML(d.Name) {
		text, err := source.HTMLText(d.Data)
		if err != nil {
			return "", fmt.Errorf("convert %s: %w", d.Name, err)
		}
		return text, nil
	}
	return string(d.Data), nil
}

// Request describes one import.
type Request struct {
	Questions Document
	Answers   Document
	Rules     extract.Rules
	// Force re-imports even when the inputs are unchanged.
	Force bool
}

// Outcome reports what an import did.
type Outcome struct {
	Batch     model.ImportBatch  `json:"batch"`
	Stats     model.ExtractStats `json:"stats"`
	Unchanged bool               `json:"unchanged"`
}

// Import extracts the request's documents and replaces the subject's stored
// questions with the result.
func Import(db *store.Store, req Request) (Outcome, error) {
	subject := req.Rules.Subject
	hash := Digest(req.Questions.Data, req.Answers.Data, []byte(fmt.Sprintf("%v", req.Rules)))

	if !req.Force {
		stored, err := db.GetImportedFileHash(subject)
		if err != nil {
			return Outcome{}, fmt.Errorf("check import status for %s: %w", subject, err)
		}
		if stored == hash {
			slog.Info("inputs unchanged, skipping import", "subject", subject)
			return Outcome{Unchanged: true, Batch: model.ImportBatch{Subject: subject, Hash: hash}}, nil
		}
	}

	qText, err := req.Questions.Text()
	if err != nil {
		return Outcome{}, err
	}
	aText, err := req.Answers.Text()
	if err != nil {
		return Outcome{}, err
	}

	res := extract.Run(qText, aText, req.Rules)
	if res.Stats.Questions == 0 {
		return Outcome{Stats: res.Stats}, fmt.Errorf("%s: %w", req.Questions.Name, ErrNoQuestions)
	}

	batch, err := db.ReplaceSubject(model.ImportBatch{
		Subject:       subject,
		QuestionsPath: req.Questions.Name,
		AnswersPath:   req.Answers.Name,
		Hash:          hash,
	}, res.Bank.MCQ)
	if err != nil {
		return Outcome{}, fmt.Errorf("store %s: %w", subject, err)
	}
	if err := db.SetImportedFileHash(subject, hash); err != nil {
		return Outcome{}, fmt.Errorf("record import for %s: %w", subject, err)
	}

	slog.Info("imported questions",
		"subject", subject,
		"batch", batch.ID,
		"count", res.Stats.Questions,
		"unanswered", res.Stats.Unanswered,
		"padded", res.Stats.Padded,
	)
	return Outcome{Batch: batch, Stats: res.Stats}, nil
}

// Digest is the sha256 of parts, each length-prefixed so that moving bytes
// between parts changes the result.
func Digest(parts ...[]byte) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
