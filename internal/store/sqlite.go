package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // driver: sqlite

	"github.com/MikeSquared-Agency/Compass/internal/catalog"
)

const defaultSQLiteDSN = "file:compass.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// SQLiteStore is the embedded Store used for local runs and tests.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = defaultSQLiteDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; transactions serialize on this connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQLite); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAttempt(row rowScanner) (*TestAttempt, error) {
	a := &TestAttempt{}
	var id string
	var finalScore sql.NullFloat64
	var majorID sql.NullInt64
	var startedAt, updatedAt int64
	var completedAt sql.NullInt64
	if err := row.Scan(&id, &a.StudentID, &a.Status, &finalScore, &majorID, &startedAt, &completedAt, &updatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("attempt id %q: %w", id, err)
	}
	a.ID = parsed
	if finalScore.Valid {
		a.FinalScore = &finalScore.Float64
	}
	if majorID.Valid {
		a.RecommendedMajorID = &majorID.Int64
	}
	a.StartedAt = time.UnixMilli(startedAt).UTC()
	a.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64).UTC()
		a.CompletedAt = &t
	}
	return a, nil
}

func (s *SQLiteStore) CreateAttempt(ctx context.Context, a *TestAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	a.Status = StatusInProgress
	a.StartedAt = now
	a.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO test_attempts (id, student_id, status, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID.String(), a.StudentID, string(a.Status), now.UnixMilli(), now.UnixMilli())
	return err
}

func (s *SQLiteStore) GetAttempt(ctx context.Context, id uuid.UUID) (*TestAttempt, error) {
	a, err := scanSQLiteAttempt(s.db.QueryRowContext(ctx, `
		SELECT `+attemptColumns+` FROM test_attempts WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (s *SQLiteStore) ListAttempts(ctx context.Context, filter AttemptFilter) ([]*TestAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM test_attempts WHERE 1=1`
	args := []any{}
	if filter.StudentID != nil {
		query += " AND student_id = ?"
		args = append(args, *filter.StudentID)
	}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	query += " ORDER BY started_at DESC, id ASC LIMIT ? OFFSET ?"
	args = append(args, defaultLimit(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*TestAttempt
	for rows.Next() {
		a, err := scanSQLiteAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (s *SQLiteStore) CompleteAttempt(ctx context.Context, c *Completion) (*TestAttempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().UnixMilli()

	var attemptID uuid.UUID
	if c.AttemptID == nil {
		attemptID = c.NewAttemptID
		if attemptID == uuid.Nil {
			attemptID = uuid.New()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO test_attempts (id, student_id, status, started_at, updated_at)
			VALUES (?, ?, 'in_progress', ?, ?)`, attemptID.String(), c.StudentID, now, now); err != nil {
			return nil, fmt.Errorf("create attempt: %w", err)
		}
	} else {
		attemptID = *c.AttemptID
	}

	// Claim the attempt first: the guarded update takes SQLite's write lock,
	// so a concurrent completion sees zero affected rows.
	res, err := tx.ExecContext(ctx, `
		UPDATE test_attempts SET
			status = 'completed', final_score = ?, recommended_major_id = ?,
			completed_at = ?, updated_at = ?
		WHERE id = ? AND student_id = ? AND status = 'in_progress'`,
		c.FinalScore, c.RecommendedMajorID, now, now, attemptID.String(), c.StudentID)
	if err != nil {
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("finalize attempt: %w", err)
	} else if n == 0 {
		return nil, s.classifyUnclaimed(ctx, tx, attemptID, c.StudentID)
	}

	for _, a := range c.Answers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attempt_answers (attempt_id, question_id, option_id) VALUES (?, ?, ?)`,
			attemptID.String(), a.QuestionID, a.OptionID); err != nil {
			return nil, fmt.Errorf("write answers: %w", err)
		}
	}
	for _, ms := range c.Scores {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attempt_major_scores (attempt_id, major_id, score, ranking) VALUES (?, ?, ?, ?)`,
			attemptID.String(), ms.MajorID, ms.Score, ms.Rank); err != nil {
			return nil, fmt.Errorf("write scores: %w", err)
		}
	}

	a, err := scanSQLiteAttempt(tx.QueryRowContext(ctx, `
		SELECT `+attemptColumns+` FROM test_attempts WHERE id = ?`, attemptID.String()))
	if err != nil {
		return nil, fmt.Errorf("read attempt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) classifyUnclaimed(ctx context.Context, tx *sql.Tx, id uuid.UUID, studentID int64) error {
	var owner int64
	var status AttemptStatus
	err := tx.QueryRowContext(ctx, `SELECT student_id, status FROM test_attempts WHERE id = ?`, id.String()).Scan(&owner, &status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrAttemptNotFound
	case err != nil:
		return fmt.Errorf("lock attempt: %w", err)
	case owner != studentID:
		return ErrAttemptNotFound
	default:
		return ErrAttemptCompleted
	}
}

func (s *SQLiteStore) GetAttemptAnswers(ctx context.Context, attemptID uuid.UUID) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, option_id FROM attempt_answers
		WHERE attempt_id = ? ORDER BY question_id`, attemptID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.QuestionID, &a.OptionID); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (s *SQLiteStore) GetAttemptScores(ctx context.Context, attemptID uuid.UUID) ([]MajorScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT major_id, score, ranking FROM attempt_major_scores
		WHERE attempt_id = ? ORDER BY ranking, major_id`, attemptID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []MajorScore
	for rows.Next() {
		var ms MajorScore
		if err := rows.Scan(&ms.MajorID, &ms.Score, &ms.Rank); err != nil {
			return nil, err
		}
		scores = append(scores, ms)
	}
	return scores, rows.Err()
}

func (s *SQLiteStore) GetStats(ctx context.Context) (*AttemptStats, error) {
	stats := &AttemptStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(*) FROM majors)
		FROM test_attempts`,
	).Scan(&stats.TotalAttempts, &stats.CompletedAttempts, &stats.InProgressAttempts,
		&stats.TotalQuestions, &stats.TotalMajors)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.name, COUNT(a.id)
		FROM majors m
		LEFT JOIN test_attempts a ON a.recommended_major_id = m.id AND a.status = 'completed'
		GROUP BY m.id, m.name
		ORDER BY COUNT(a.id) DESC, m.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats.Recommendations = []MajorRecommendationCount{}
	for rows.Next() {
		var rc MajorRecommendationCount
		if err := rows.Scan(&rc.MajorID, &rc.MajorName, &rc.Count); err != nil {
			return nil, err
		}
		stats.Recommendations = append(stats.Recommendations, rc)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) ListCriteria(ctx context.Context) ([]catalog.Criterion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description FROM criteria ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Criterion
	for rows.Next() {
		var c catalog.Criterion
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListQuestionsWithOptions(ctx context.Context) ([]catalog.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.criterion_id, q.text, q.sort_order,
			o.id, o.text, o.value, o.sort_order
		FROM questions q
		LEFT JOIN question_options o ON o.question_id = q.id
		ORDER BY q.criterion_id, q.sort_order, q.id, o.sort_order, o.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []catalog.Question
	for rows.Next() {
		var q catalog.Question
		var optID sql.NullInt64
		var optText sql.NullString
		var optValue sql.NullFloat64
		var optOrder sql.NullInt64
		if err := rows.Scan(&q.ID, &q.CriterionID, &q.Text, &q.Order, &optID, &optText, &optValue, &optOrder); err != nil {
			return nil, err
		}
		if n := len(questions); n == 0 || questions[n-1].ID != q.ID {
			questions = append(questions, q)
		}
		if optID.Valid {
			last := &questions[len(questions)-1]
			last.Options = append(last.Options, catalog.Option{
				ID:         optID.Int64,
				QuestionID: q.ID,
				Text:       optText.String,
				Value:      optValue.Float64,
				Order:      int(optOrder.Int64),
			})
		}
	}
	return questions, rows.Err()
}

func (s *SQLiteStore) ListMajorsWithWeights(ctx context.Context) ([]catalog.Major, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.name, m.code, m.description, w.criterion_id, w.weight
		FROM majors m
		LEFT JOIN major_weights w ON w.major_id = m.id
		ORDER BY m.id, w.criterion_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var majors []catalog.Major
	for rows.Next() {
		var m catalog.Major
		var criterionID sql.NullInt64
		var weight sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.Name, &m.Code, &m.Description, &criterionID, &weight); err != nil {
			return nil, err
		}
		if n := len(majors); n == 0 || majors[n-1].ID != m.ID {
			majors = append(majors, m)
		}
		if criterionID.Valid {
			last := &majors[len(majors)-1]
			last.Weights = append(last.Weights, catalog.MajorWeight{
				MajorID:     m.ID,
				CriterionID: criterionID.Int64,
				Weight:      weight.Float64,
			})
		}
	}
	return majors, rows.Err()
}

func (s *SQLiteStore) UpsertCatalog(ctx context.Context, criteria []catalog.Criterion, questions []catalog.Question, majors []catalog.Major) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exec := func(query string, args ...any) {
		if err != nil {
			return
		}
		_, err = tx.ExecContext(ctx, query, args...)
	}

	for _, c := range criteria {
		exec(`INSERT INTO criteria (id, name, description) VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, description = excluded.description`,
			c.ID, c.Name, c.Description)
	}
	for _, q := range questions {
		exec(`INSERT INTO questions (id, criterion_id, text, sort_order) VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET criterion_id = excluded.criterion_id, text = excluded.text, sort_order = excluded.sort_order`,
			q.ID, q.CriterionID, q.Text, q.Order)
		for _, o := range q.Options {
			exec(`INSERT INTO question_options (id, question_id, text, value, sort_order) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET question_id = excluded.question_id, text = excluded.text,
					value = excluded.value, sort_order = excluded.sort_order`,
				o.ID, q.ID, o.Text, o.Value, o.Order)
		}
	}
	for _, m := range majors {
		exec(`INSERT INTO majors (id, name, code, description) VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, code = excluded.code, description = excluded.description`,
			m.ID, m.Name, m.Code, m.Description)
		exec(`DELETE FROM major_weights WHERE major_id = ?`, m.ID)
		for _, w := range m.Weights {
			exec(`INSERT INTO major_weights (major_id, criterion_id, weight) VALUES (?, ?, ?)`,
				m.ID, w.CriterionID, w.Weight)
		}
	}
	if err != nil {
		return fmt.Errorf("upsert catalog: %w", err)
	}
	return tx.Commit()
}
