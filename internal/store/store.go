package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Compass/internal/catalog"
)

type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "in_progress"
	StatusCompleted  AttemptStatus = "completed"
)

var (
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptCompleted is returned when a completed attempt is written
	// again. Completed attempts, their answers and their scores are write-once.
	ErrAttemptCompleted = errors.New("attempt already completed")
)

type TestAttempt struct {
	ID                 uuid.UUID     `json:"id"`
	StudentID          int64         `json:"student_id"`
	Status             AttemptStatus `json:"status"`
	FinalScore         *float64      `json:"final_score,omitempty"`
	RecommendedMajorID *int64        `json:"recommended_major_id,omitempty"`
	StartedAt          time.Time     `json:"started_at"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

type Answer struct {
	QuestionID int64 `json:"question_id"`
	OptionID   int64 `json:"option_id"`
}

type MajorScore struct {
	MajorID int64   `json:"major_id"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

// Completion is the single logical write that finalizes an attempt. When
// AttemptID is nil a new attempt is created and completed in the same
// transaction, under NewAttemptID if set.
type Completion struct {
	AttemptID          *uuid.UUID
	NewAttemptID       uuid.UUID
	StudentID          int64
	Answers            []Answer
	Scores             []MajorScore
	FinalScore         float64
	RecommendedMajorID int64
}

type AttemptFilter struct {
	StudentID *int64
	Status    *AttemptStatus
	Limit     int
	Offset    int
}

type MajorRecommendationCount struct {
	MajorID   int64  `json:"major_id"`
	MajorName string `json:"major_name"`
	Count     int    `json:"count"`
}

type AttemptStats struct {
	TotalAttempts      int                        `json:"total_attempts"`
	CompletedAttempts  int                        `json:"completed_attempts"`
	InProgressAttempts int                        `json:"in_progress_attempts"`
	TotalQuestions     int                        `json:"total_questions"`
	TotalMajors        int                        `json:"total_majors"`
	Recommendations    []MajorRecommendationCount `json:"recommendations"`
}

// CatalogWriter loads catalog rows, keyed by their ids. Existing rows with
// the same id are overwritten.
type CatalogWriter interface {
	UpsertCatalog(ctx context.Context, criteria []catalog.Criterion, questions []catalog.Question, majors []catalog.Major) error
}

type Store interface {
	catalog.Source
	CatalogWriter

	CreateAttempt(ctx context.Context, a *TestAttempt) error
	GetAttempt(ctx context.Context, id uuid.UUID) (*TestAttempt, error)
	ListAttempts(ctx context.Context, filter AttemptFilter) ([]*TestAttempt, error)

	// CompleteAttempt writes the attempt row, its answers and its major
	// scores atomically. Nothing is visible unless everything is.
	CompleteAttempt(ctx context.Context, c *Completion) (*TestAttempt, error)

	GetAttemptAnswers(ctx context.Context, attemptID uuid.UUID) ([]Answer, error)
	GetAttemptScores(ctx context.Context, attemptID uuid.UUID) ([]MajorScore, error)

	GetStats(ctx context.Context) (*AttemptStats, error)

	EnsureSchema(ctx context.Context) error
	Close() error
}

func defaultLimit(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
