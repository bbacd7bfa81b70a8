package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/qbank/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS import_batches (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		questions_path TEXT NOT NULL DEFAULT '',
		answers_path TEXT NOT NULL DEFAULT '',
		hash TEXT NOT NULL DEFAULT '',
		question_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		subject TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		unit INTEGER NOT NULL,
		topic TEXT NOT NULL,
		topic_slug TEXT NOT NULL,
		prompt TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'mcq',
		options TEXT NOT NULL,
		correct_option_index INTEGER NOT NULL DEFAULT 0,
		explanation TEXT NOT NULL DEFAULT '',
		batch_id TEXT NOT NULL,
		PRIMARY KEY (subject, id),
		FOREIGN KEY (batch_id) REFERENCES import_batches(id)
	);

	CREATE INDEX IF NOT EXISTS idx_questions_order ON questions(subject, position);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReplaceSubject atomically replaces all questions of batch.Subject with
// records, keeping their order. A record id repeated within records keeps the
// last occurrence at the position of the first. The batch ID and creation time
// are filled in when empty.
func (s *Store) ReplaceSubject(batch model.ImportBatch, records []model.MCQQuestion) (model.ImportBatch, error) {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now()
	}
	// Repeated ids collapse into one row.
	ids := make(map[string]struct{}, len(records))
	for _, q := range records {
		ids[q.ID] = struct{}{}
	}
	batch.QuestionCount = len(ids)

	tx, err := s.db.Begin()
	if err != nil {
		return batch, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO import_batches (id, subject, questions_path, answers_path, hash, question_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.Subject, batch.QuestionsPath, batch.AnswersPath, batch.Hash, batch.QuestionCount, batch.CreatedAt,
	)
	if err != nil {
		return batch, fmt.Errorf("insert batch: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM questions WHERE subject = ?`, batch.Subject); err != nil {
		return batch, fmt.Errorf("clear subject %s: %w", batch.Subject, err)
	}

	for i, q := range records {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return batch, fmt.Errorf("encode options of %s: %w", q.ID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO questions (subject, id, position, unit, topic, topic_slug, prompt, kind, options, correct_option_index, explanation, batch_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(subject, id) DO UPDATE SET
				unit = excluded.unit,
				topic = excluded.topic,
				topic_slug = excluded.topic_slug,
				prompt = excluded.prompt,
				kind = excluded.kind,
				options = excluded.options,
				correct_option_index = excluded.correct_option_index,
				explanation = excluded.explanation`,
			batch.Subject, q.ID, i, q.Unit, q.Topic, q.TopicSlug, q.Prompt, q.Kind, string(opts), q.CorrectOptionIndex, q.Explanation, batch.ID,
		)
		if err != nil {
			return batch, fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}

	return batch, tx.Commit()
}

const questionColumns = `subject, id, unit, topic, topic_slug, prompt, kind, options, correct_option_index, explanation`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (model.MCQQuestion, error) {
	var q model.MCQQuestion
	var opts string
	if err := row.Scan(&q.Subject, &q.ID, &q.Unit, &q.Topic, &q.TopicSlug, &q.Prompt, &q.Kind, &opts, &q.CorrectOptionIndex, &q.Explanation); err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
		return q, fmt.Errorf("decode options of %s: %w", q.ID, err)
	}
	return q, nil
}

// ListQuestions returns questions matching the filter in bank order.
// Zero filter fields mean no filtering on that field.
func (s *Store) ListQuestions(f model.QuestionFilter) ([]model.MCQQuestion, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE 1=1`
	var args []any
	if f.Subject != "" {
		query += ` AND subject = ?`
		args = append(args, f.Subject)
	}
	if f.Unit != 0 {
		query += ` AND unit = ?`
		args = append(args, f.Unit)
	}
	if f.TopicSlug != "" {
		query += ` AND topic_slug = ?`
		args = append(args, f.TopicSlug)
	}
	query += ` ORDER BY subject, position`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.MCQQuestion
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetQuestion returns a question by subject and ID.
func (s *Store) GetQuestion(subject, id string) (model.MCQQuestion, error) {
	row := s.db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE subject = ? AND id = ?`, subject, id)
	return scanQuestion(row)
}

// SetExplanation stores an explanation for a question.
func (s *Store) SetExplanation(subject, id, explanation string) error {
	res, err := s.db.Exec(`UPDATE questions SET explanation = ? WHERE subject = ? AND id = ?`, explanation, subject, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListSubjects returns every subject with its question count.
func (s *Store) ListSubjects() ([]model.SubjectSummary, error) {
	rows, err := s.db.Query(`SELECT subject, COUNT(*) FROM questions GROUP BY subject ORDER BY subject`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []model.SubjectSummary
	for rows.Next() {
		var sub model.SubjectSummary
		if err := rows.Scan(&sub.Subject, &sub.QuestionCount); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// ListBatches returns import batches, newest first. An empty subject lists all.
func (s *Store) ListBatches(subject string) ([]model.ImportBatch, error) {
	query := `SELECT id, subject, questions_path, answers_path, hash, question_count, created_at FROM import_batches`
	var args []any
	if subject != "" {
		query += ` WHERE subject = ?`
		args = append(args, subject)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var batches []model.ImportBatch
	for rows.Next() {
		var b model.ImportBatch
		if err := rows.Scan(&b.ID, &b.Subject, &b.QuestionsPath, &b.AnswersPath, &b.Hash, &b.QuestionCount, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// QuestionCount returns the number of stored questions for subject, or for
// all subjects when subject is empty.
func (s *Store) QuestionCount(subject string) (int, error) {
	var count int
	var err error
	if subject == "" {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	} else {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM questions WHERE subject = ?`, subject).Scan(&count)
	}
	return count, err
}
