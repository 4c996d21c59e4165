package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaPostgres); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const attemptColumns = `id, student_id, status, final_score, recommended_major_id,
	started_at, completed_at, updated_at`

func scanAttempt(row pgx.Row) (*TestAttempt, error) {
	a := &TestAttempt{}
	err := row.Scan(
		&a.ID, &a.StudentID, &a.Status, &a.FinalScore, &a.RecommendedMajorID,
		&a.StartedAt, &a.CompletedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) CreateAttempt(ctx context.Context, a *TestAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = StatusInProgress
	return s.pool.QueryRow(ctx, `
		INSERT INTO test_attempts (id, student_id, status)
		VALUES ($1, $2, $3)
		RETURNING started_at, updated_at`,
		a.ID, a.StudentID, a.Status,
	).Scan(&a.StartedAt, &a.UpdatedAt)
}

func (s *PostgresStore) GetAttempt(ctx context.Context, id uuid.UUID) (*TestAttempt, error) {
	a, err := scanAttempt(s.pool.QueryRow(ctx, `
		SELECT `+attemptColumns+`
		FROM test_attempts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (s *PostgresStore) ListAttempts(ctx context.Context, filter AttemptFilter) ([]*TestAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM test_attempts WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.StudentID != nil {
		n++
		query += fmt.Sprintf(" AND student_id = $%d", n)
		args = append(args, *filter.StudentID)
	}
	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}

	query += " ORDER BY started_at DESC, id ASC"

	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, defaultLimit(filter.Limit))

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*TestAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (s *PostgresStore) CompleteAttempt(ctx context.Context, c *Completion) (*TestAttempt, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1. Create the attempt, or lock the existing one
	var attemptID uuid.UUID
	if c.AttemptID == nil {
		attemptID = c.NewAttemptID
		if attemptID == uuid.Nil {
			attemptID = uuid.New()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO test_attempts (id, student_id, status)
			VALUES ($1, $2, 'in_progress')`, attemptID, c.StudentID); err != nil {
			return nil, fmt.Errorf("create attempt: %w", err)
		}
	} else {
		attemptID = *c.AttemptID
		var studentID int64
		var status AttemptStatus
		err := tx.QueryRow(ctx, `
			SELECT student_id, status FROM test_attempts
			WHERE id = $1 FOR UPDATE`, attemptID).Scan(&studentID, &status)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("lock attempt: %w", err)
		}
		if studentID != c.StudentID {
			return nil, ErrAttemptNotFound
		}
		if status == StatusCompleted {
			return nil, ErrAttemptCompleted
		}
	}

	// 2. Answers
	if len(c.Answers) > 0 {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"attempt_answers"},
			[]string{"attempt_id", "question_id", "option_id"},
			pgx.CopyFromSlice(len(c.Answers), func(i int) ([]any, error) {
				return []any{attemptID, c.Answers[i].QuestionID, c.Answers[i].OptionID}, nil
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("write answers: %w", err)
		}
	}

	// 3. Major scores
	if len(c.Scores) > 0 {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"attempt_major_scores"},
			[]string{"attempt_id", "major_id", "score", "ranking"},
			pgx.CopyFromSlice(len(c.Scores), func(i int) ([]any, error) {
				return []any{attemptID, c.Scores[i].MajorID, c.Scores[i].Score, c.Scores[i].Rank}, nil
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("write scores: %w", err)
		}
	}

	// 4. Flip to completed; the status guard makes the transition happen once
	a, err := scanAttempt(tx.QueryRow(ctx, `
		UPDATE test_attempts SET
			status = 'completed', final_score = $2, recommended_major_id = $3,
			completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'in_progress'
		RETURNING `+attemptColumns,
		attemptID, c.FinalScore, c.RecommendedMajorID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttemptCompleted
	}
	if err != nil {
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}

	// 5. Commit
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) GetAttemptAnswers(ctx context.Context, attemptID uuid.UUID) ([]Answer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT question_id, option_id FROM attempt_answers
		WHERE attempt_id = $1 ORDER BY question_id`, attemptID)
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

func (s *PostgresStore) GetAttemptScores(ctx context.Context, attemptID uuid.UUID) ([]MajorScore, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT major_id, score, ranking FROM attempt_major_scores
		WHERE attempt_id = $1 ORDER BY ranking, major_id`, attemptID)
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

func (s *PostgresStore) GetStats(ctx context.Context) (*AttemptStats, error) {
	stats := &AttemptStats{}
	err := s.pool.QueryRow(ctx, `
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

	rows, err := s.pool.Query(ctx, `
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
