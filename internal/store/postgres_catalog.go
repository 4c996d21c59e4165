package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/Compass/internal/catalog"
)

func (s *PostgresStore) ListCriteria(ctx context.Context) ([]catalog.Criterion, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description FROM criteria ORDER BY id`)
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

func (s *PostgresStore) ListQuestionsWithOptions(ctx context.Context) ([]catalog.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, criterion_id, text, sort_order
		FROM questions ORDER BY criterion_id, sort_order, id`)
	if err != nil {
		return nil, err
	}
	var questions []catalog.Question
	byID := make(map[int64]int)
	for rows.Next() {
		var q catalog.Question
		if err := rows.Scan(&q.ID, &q.CriterionID, &q.Text, &q.Order); err != nil {
			rows.Close()
			return nil, err
		}
		byID[q.ID] = len(questions)
		questions = append(questions, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	optRows, err := s.pool.Query(ctx, `
		SELECT id, question_id, text, value, sort_order
		FROM question_options ORDER BY question_id, sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()

	for optRows.Next() {
		var o catalog.Option
		if err := optRows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.Value, &o.Order); err != nil {
			return nil, err
		}
		i, ok := byID[o.QuestionID]
		if !ok {
			continue
		}
		questions[i].Options = append(questions[i].Options, o)
	}
	return questions, optRows.Err()
}

func (s *PostgresStore) ListMajorsWithWeights(ctx context.Context) ([]catalog.Major, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, code, description FROM majors ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var majors []catalog.Major
	byID := make(map[int64]int)
	for rows.Next() {
		var m catalog.Major
		if err := rows.Scan(&m.ID, &m.Name, &m.Code, &m.Description); err != nil {
			rows.Close()
			return nil, err
		}
		byID[m.ID] = len(majors)
		majors = append(majors, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	wRows, err := s.pool.Query(ctx, `
		SELECT major_id, criterion_id, weight
		FROM major_weights ORDER BY major_id, criterion_id`)
	if err != nil {
		return nil, err
	}
	defer wRows.Close()

	for wRows.Next() {
		var w catalog.MajorWeight
		if err := wRows.Scan(&w.MajorID, &w.CriterionID, &w.Weight); err != nil {
			return nil, err
		}
		if i, ok := byID[w.MajorID]; ok {
			majors[i].Weights = append(majors[i].Weights, w)
		}
	}
	return majors, wRows.Err()
}

func (s *PostgresStore) UpsertCatalog(ctx context.Context, criteria []catalog.Criterion, questions []catalog.Question, majors []catalog.Major) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, c := range criteria {
		batch.Queue(`
			INSERT INTO criteria (id, name, description) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description`,
			c.ID, c.Name, c.Description)
	}
	for _, q := range questions {
		batch.Queue(`
			INSERT INTO questions (id, criterion_id, text, sort_order) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET criterion_id = EXCLUDED.criterion_id, text = EXCLUDED.text, sort_order = EXCLUDED.sort_order`,
			q.ID, q.CriterionID, q.Text, q.Order)
		for _, o := range q.Options {
			batch.Queue(`
				INSERT INTO question_options (id, question_id, text, value, sort_order) VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO UPDATE SET question_id = EXCLUDED.question_id, text = EXCLUDED.text,
					value = EXCLUDED.value, sort_order = EXCLUDED.sort_order`,
				o.ID, q.ID, o.Text, o.Value, o.Order)
		}
	}
	for _, m := range majors {
		batch.Queue(`
			INSERT INTO majors (id, name, code, description) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, code = EXCLUDED.code, description = EXCLUDED.description`,
			m.ID, m.Name, m.Code, m.Description)
		batch.Queue(`DELETE FROM major_weights WHERE major_id = $1`, m.ID)
		for _, w := range m.Weights {
			batch.Queue(`
				INSERT INTO major_weights (major_id, criterion_id, weight) VALUES ($1, $2, $3)`,
				m.ID, w.CriterionID, w.Weight)
		}
	}
	for _, table := range []string{"criteria", "questions", "question_options", "majors"} {
		batch.Queue(fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), GREATEST((SELECT MAX(id) FROM %[1]s), 1))`, table))
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert catalog: %w", err)
	}
	return tx.Commit(ctx)
}
