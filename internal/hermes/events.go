package hermes

import "time"

type AttemptStartedEvent struct {
	AttemptID string    `json:"attempt_id"`
	StudentID int64     `json:"student_id"`
	StartedAt time.Time `json:"started_at"`
}

type AttemptCompletedEvent struct {
	AttemptID          string    `json:"attempt_id"`
	StudentID          int64     `json:"student_id"`
	RecommendedMajorID int64     `json:"recommended_major_id"`
	RecommendedMajor   string    `json:"recommended_major_name"`
	FinalScore         float64   `json:"final_score"`
	AnswerCount        int       `json:"answer_count"`
	CompletedAt        time.Time `json:"completed_at"`
}

// CatalogUpdatedEvent is published by the seeding tool after a catalog load.
type CatalogUpdatedEvent struct {
	Criteria  int       `json:"criteria"`
	Questions int       `json:"questions"`
	Majors    int       `json:"majors"`
	Timestamp time.Time `json:"timestamp"`
}

type StatsEvent struct {
	TotalAttempts      int       `json:"total_attempts"`
	CompletedAttempts  int       `json:"completed_attempts"`
	InProgressAttempts int       `json:"in_progress_attempts"`
	Timestamp          time.Time `json:"timestamp"`
}
