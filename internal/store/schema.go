package store

// The composite primary keys on attempt_answers and attempt_major_scores
// allow exactly one generation of rows per attempt.

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS criteria (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS questions (
	id           BIGSERIAL PRIMARY KEY,
	criterion_id BIGINT NOT NULL REFERENCES criteria(id),
	text         TEXT NOT NULL,
	sort_order   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_questions_criterion ON questions(criterion_id);

CREATE TABLE IF NOT EXISTS question_options (
	id          BIGSERIAL PRIMARY KEY,
	question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	text        TEXT NOT NULL,
	value       DOUBLE PRECISION NOT NULL CHECK (value >= 0),
	sort_order  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_question_options_question ON question_options(question_id);

CREATE TABLE IF NOT EXISTS majors (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	code        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS major_weights (
	major_id     BIGINT NOT NULL REFERENCES majors(id) ON DELETE CASCADE,
	criterion_id BIGINT NOT NULL REFERENCES criteria(id) ON DELETE CASCADE,
	weight       DOUBLE PRECISION NOT NULL CHECK (weight >= 0 AND weight <= 100),
	PRIMARY KEY (major_id, criterion_id)
);

CREATE TABLE IF NOT EXISTS test_attempts (
	id                   UUID PRIMARY KEY,
	student_id           BIGINT NOT NULL,
	status               TEXT NOT NULL DEFAULT 'in_progress' CHECK (status IN ('in_progress', 'completed')),
	final_score          DOUBLE PRECISION,
	recommended_major_id BIGINT REFERENCES majors(id),
	started_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at         TIMESTAMPTZ,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_test_attempts_student ON test_attempts(student_id, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_test_attempts_status ON test_attempts(status);

CREATE TABLE IF NOT EXISTS attempt_answers (
	attempt_id  UUID NOT NULL REFERENCES test_attempts(id) ON DELETE CASCADE,
	question_id BIGINT NOT NULL,
	option_id   BIGINT NOT NULL,
	PRIMARY KEY (attempt_id, question_id)
);

CREATE TABLE IF NOT EXISTS attempt_major_scores (
	attempt_id UUID NOT NULL REFERENCES test_attempts(id) ON DELETE CASCADE,
	major_id   BIGINT NOT NULL,
	score      DOUBLE PRECISION NOT NULL,
	ranking    INTEGER NOT NULL,
	PRIMARY KEY (attempt_id, major_id)
);
`

// SQLite keeps timestamps as unix milliseconds.
const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS criteria (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS questions (
	id           INTEGER PRIMARY KEY,
	criterion_id INTEGER NOT NULL REFERENCES criteria(id),
	text         TEXT NOT NULL,
	sort_order   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS question_options (
	id          INTEGER PRIMARY KEY,
	question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	text        TEXT NOT NULL,
	value       REAL NOT NULL CHECK (value >= 0),
	sort_order  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS majors (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	code        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS major_weights (
	major_id     INTEGER NOT NULL REFERENCES majors(id) ON DELETE CASCADE,
	criterion_id INTEGER NOT NULL REFERENCES criteria(id) ON DELETE CASCADE,
	weight       REAL NOT NULL CHECK (weight >= 0 AND weight <= 100),
	PRIMARY KEY (major_id, criterion_id)
);

CREATE TABLE IF NOT EXISTS test_attempts (
	id                   TEXT PRIMARY KEY,
	student_id           INTEGER NOT NULL,
	status               TEXT NOT NULL DEFAULT 'in_progress' CHECK (status IN ('in_progress', 'completed')),
	final_score          REAL,
	recommended_major_id INTEGER REFERENCES majors(id),
	started_at           INTEGER NOT NULL,
	completed_at         INTEGER,
	updated_at           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_test_attempts_student ON test_attempts(student_id, started_at DESC);

CREATE TABLE IF NOT EXISTS attempt_answers (
	attempt_id  TEXT NOT NULL REFERENCES test_attempts(id) ON DELETE CASCADE,
	question_id INTEGER NOT NULL,
	option_id   INTEGER NOT NULL,
	PRIMARY KEY (attempt_id, question_id)
);

CREATE TABLE IF NOT EXISTS attempt_major_scores (
	attempt_id TEXT NOT NULL REFERENCES test_attempts(id) ON DELETE CASCADE,
	major_id   INTEGER NOT NULL,
	score      REAL NOT NULL,
	ranking    INTEGER NOT NULL,
	PRIMARY KEY (attempt_id, major_id)
);
`
