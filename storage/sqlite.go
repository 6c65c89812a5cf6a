// SQLite question bank.
//
// Information Hiding:
// - Schema and row encoding encapsulated here
// - Thread-safe via sql.DB's built-in connection pooling
// - Doubles as a naive search index over question text for runs without an
//   external search backend

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/edforge/quizrag/generator"
	"github.com/edforge/quizrag/quiz"
)

// SqliteBank implements the question bank and a LIKE-based search service
// on a SQLite database file.
type SqliteBank struct {
	db *sql.DB
}

// OpenSqliteBank opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqliteBank(path string) (*SqliteBank, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	bank := &SqliteBank{db: db}
	if err := bank.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return bank, nil
}

// NewSqliteBankInMemory creates an in-memory bank (useful for testing).
func NewSqliteBankInMemory() (*SqliteBank, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	bank := &SqliteBank{db: db}
	if err := bank.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return bank, nil
}

// Close closes the database connection.
func (b *SqliteBank) Close() error {
	return b.db.Close()
}

func (b *SqliteBank) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS questions (
			uid TEXT PRIMARY KEY,
			lesson_id TEXT,
			quiz_type TEXT,
			position INTEGER NOT NULL DEFAULT 0,
			search_text TEXT NOT NULL,
			payload TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_questions_lesson
		ON questions(lesson_id, quiz_type, position);
	`
	_, err := b.db.Exec(schema)
	return err
}

// AddQuestion stores a question. lessonID and quizType may be empty for
// questions only reachable by UID or search.
func (b *SqliteBank) AddQuestion(ctx context.Context, q quiz.RagQuizQuestion, lessonID string, quizType quiz.QuizType) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to encode question %s: %w", q.SourceUID, err)
	}

	var position int
	typeName := ""
	if lessonID != "" {
		typeName = quizType.String()
		row := b.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM questions WHERE lesson_id = ? AND quiz_type = ?`,
			lessonID, typeName)
		if err := row.Scan(&position); err != nil {
			return fmt.Errorf("failed to count lesson questions: %w", err)
		}
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO questions (uid, lesson_id, quiz_type, position, search_text, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			lesson_id = excluded.lesson_id,
			quiz_type = excluded.quiz_type,
			search_text = excluded.search_text,
			payload = excluded.payload`,
		q.SourceUID, lessonID, typeName, position,
		strings.ToLower(strings.Join(q.Question.Texts(), " ")), string(payload))
	if err != nil {
		return fmt.Errorf("failed to store question %s: %w", q.SourceUID, err)
	}
	return nil
}

// QuestionsByUID returns the questions for the given UIDs, preserving
// request order. Unknown UIDs are skipped.
func (b *SqliteBank) QuestionsByUID(ctx context.Context, uids []string) ([]quiz.RagQuizQuestion, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(uids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(uids))
	for i, uid := range uids {
		args[i] = uid
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT uid, payload FROM questions WHERE uid IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	found := make(map[string]quiz.RagQuizQuestion, len(uids))
	for rows.Next() {
		var uid, payload string
		if err := rows.Scan(&uid, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		var q quiz.RagQuizQuestion
		if err := json.Unmarshal([]byte(payload), &q); err != nil {
			return nil, fmt.Errorf("failed to decode question %s: %w", uid, err)
		}
		found[uid] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate question rows: %w", err)
	}

	out := make([]quiz.RagQuizQuestion, 0, len(found))
	for _, uid := range uids {
		if q, ok := found[uid]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// LessonQuiz returns the stored quiz of a lesson in insertion order.
func (b *SqliteBank) LessonQuiz(ctx context.Context, lessonID string, quizType quiz.QuizType) ([]quiz.RagQuizQuestion, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT uid, payload FROM questions
		WHERE lesson_id = ? AND quiz_type = ?
		ORDER BY position`,
		lessonID, quizType.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson quiz: %w", err)
	}
	defer rows.Close()

	var out []quiz.RagQuizQuestion
	for rows.Next() {
		var uid, payload string
		if err := rows.Scan(&uid, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		var q quiz.RagQuizQuestion
		if err := json.Unmarshal([]byte(payload), &q); err != nil {
			return nil, fmt.Errorf("failed to decode question %s: %w", uid, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Search finds questions whose text contains every term of the query,
// scored by the number of matched terms. A stand-in for a real vector or
// keyword index with the same interface shape.
func (b *SqliteBank) Search(ctx context.Context, query string, size int) ([]generator.SearchHit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || size <= 0 {
		return nil, nil
	}

	var conditions []string
	var args []any
	for _, term := range terms {
		conditions = append(conditions, `(search_text LIKE ?)`)
		args = append(args, "%"+term+"%")
	}
	// Any-term match, ordered by matched-term count so the limit keeps the
	// rows matching the most terms. LIKE conditions evaluate to 0 or 1.
	scoreArgs := make([]any, len(args))
	copy(scoreArgs, args)
	args = append(args, scoreArgs...)
	args = append(args, size)

	rows, err := b.db.QueryContext(ctx,
		`SELECT uid, search_text FROM questions
		WHERE `+strings.Join(conditions, " OR ")+`
		ORDER BY (`+strings.Join(conditions, " + ")+`) DESC
		LIMIT ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var hits []generator.SearchHit
	for rows.Next() {
		var uid, text string
		if err := rows.Scan(&uid, &text); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		matched := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				matched++
			}
		}
		hits = append(hits, generator.SearchHit{
			QuestionUID: uid,
			Text:        text,
			Score:       float64(matched) / float64(len(terms)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search rows: %w", err)
	}
	return hits, nil
}

// Verify SqliteBank implements the generator interfaces
var (
	_ generator.QuestionBank  = (*SqliteBank)(nil)
	_ generator.SearchService = (*SqliteBank)(nil)
)
