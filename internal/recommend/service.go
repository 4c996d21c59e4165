package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Compass/internal/catalog"
	"github.com/MikeSquared-Agency/Compass/internal/hermes"
	"github.com/MikeSquared-Agency/Compass/internal/scoring"
	"github.com/MikeSquared-Agency/Compass/internal/store"
)

const defaultPersistTimeout = 5 * time.Second

type MajorSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// Recommendation is the outcome of a submitted test.
type Recommendation struct {
	AttemptID        uuid.UUID               `json:"attempt_id"`
	RecommendedMajor MajorSummary            `json:"recommended_major"`
	FinalScore       float64                 `json:"final_score"`
	AllScores        []scoring.MajorScore    `json:"all_scores"`
	CriterionScores  scoring.CriterionScores `json:"criterion_scores"`
}

// AttemptResult is a completed attempt as read back from storage.
type AttemptResult struct {
	Attempt          *store.TestAttempt   `json:"attempt"`
	RecommendedMajor *MajorSummary        `json:"recommended_major,omitempty"`
	Scores           []scoring.MajorScore `json:"scores"`
	Answers          []store.Answer       `json:"answers"`
}

// QuestionView is a question as shown to a student. Option values stay
// server side.
type QuestionView struct {
	ID          int64        `json:"id"`
	CriterionID int64        `json:"criterion_id"`
	Criterion   string       `json:"criterion"`
	Text        string       `json:"text"`
	Options     []OptionView `json:"options"`
}

type OptionView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type Service struct {
	store          store.Store
	hermes         hermes.Client
	scorer         *scoring.Scorer
	persistTimeout time.Duration
	logger         *slog.Logger
}

// NewService wires the recommendation flow. h may be nil when event
// publication is disabled.
func NewService(s store.Store, h hermes.Client, persistTimeout time.Duration, logger *slog.Logger) *Service {
	if persistTimeout <= 0 {
		persistTimeout = defaultPersistTimeout
	}
	return &Service{
		store:          s,
		hermes:         h,
		scorer:         scoring.NewScorer(logger),
		persistTimeout: persistTimeout,
		logger:         logger,
	}
}

func (s *Service) StartAttempt(ctx context.Context, studentID int64) (*store.TestAttempt, error) {
	a := &store.TestAttempt{StudentID: studentID}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	s.logger.Info("attempt started", "attempt_id", a.ID, "student_id", studentID)
	if s.hermes != nil {
		if err := s.hermes.Publish(hermes.SubjectAttemptStarted(a.ID.String()), hermes.AttemptStartedEvent{
			AttemptID: a.ID.String(),
			StudentID: studentID,
			StartedAt: a.StartedAt,
		}); err != nil {
			s.logger.Warn("failed to publish attempt started", "attempt_id", a.ID, "error", err)
		}
	}
	return a, nil
}

// SubmitTest scores answers against the current catalog and stores the
// result. With a nil attemptID a new attempt is created and completed in one
// write; otherwise the given in-progress attempt of studentID is completed.
func (s *Service) SubmitTest(ctx context.Context, studentID int64, attemptID *uuid.UUID, answers scoring.Answers) (*Recommendation, error) {
	start := time.Now()

	if len(answers) == 0 {
		submissionsTotal.WithLabelValues(outcomeInvalidAnswers).Inc()
		return nil, ErrNoAnswers
	}

	cat, err := catalog.Load(ctx, s.store)
	if err != nil {
		submissionsTotal.WithLabelValues(outcomeCatalog).Inc()
		s.logger.Error("failed to load catalog", "student_id", studentID, "error", err)
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	result, err := s.scorer.Score(answers, cat)
	if err != nil {
		if errors.Is(err, scoring.ErrUnknownOption) {
			submissionsTotal.WithLabelValues(outcomeInvalidAnswers).Inc()
			s.logger.Warn("rejected answers", "student_id", studentID, "error", err)
		} else {
			submissionsTotal.WithLabelValues(outcomeCatalog).Inc()
			s.logger.Error("scoring failed", "student_id", studentID, "error", err)
		}
		return nil, err
	}
	best := result.Ranked.Best

	completion := &store.Completion{
		AttemptID:          attemptID,
		NewAttemptID:       uuid.New(),
		StudentID:          studentID,
		Answers:            answerRows(answers),
		Scores:             scoreRows(result.Ranked.Scores),
		FinalScore:         best.Score,
		RecommendedMajorID: best.MajorID,
	}

	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	attempt, err := s.store.CompleteAttempt(pctx, completion)
	if err != nil {
		if errors.Is(err, store.ErrAttemptCompleted) || errors.Is(err, store.ErrAttemptNotFound) {
			submissionsTotal.WithLabelValues(outcomeConflict).Inc()
			s.logger.Warn("submission refused", "student_id", studentID, "attempt_id", attemptID, "error", err)
			return nil, err
		}
		committed := s.committedCompletion(ctx, completion)
		if committed == nil {
			submissionsTotal.WithLabelValues(outcomePersistence).Inc()
			s.logger.Error("failed to persist result", "student_id", studentID, "attempt_id", attemptID, "error", err)
			return nil, &PersistenceError{Err: err}
		}
		s.logger.Warn("completion committed despite write error", "attempt_id", committed.ID, "error", err)
		attempt = committed
	}

	submissionsTotal.WithLabelValues(outcomeOK).Inc()
	submissionDuration.Observe(time.Since(start).Seconds())
	recommendationsTotal.WithLabelValues(best.MajorCode).Inc()

	major, _ := cat.Major(best.MajorID)
	rec := &Recommendation{
		AttemptID: attempt.ID,
		RecommendedMajor: MajorSummary{
			ID:          major.ID,
			Name:        major.Name,
			Code:        major.Code,
			Description: major.Description,
		},
		FinalScore:      best.Score,
		AllScores:       result.Ranked.Scores,
		CriterionScores: result.CriterionScores,
	}

	s.logger.Info("attempt completed",
		"attempt_id", attempt.ID,
		"student_id", studentID,
		"recommended_major", major.Code,
		"final_score", best.Score,
	)
	s.publishCompleted(attempt, rec, len(answers))
	return rec, nil
}

// committedCompletion looks for c in storage after a failed write. A commit
// can succeed on the server while the acknowledgement is lost to a timeout,
// so a completed attempt owned by the student carrying the same
// recommendation is taken as this write. It returns nil otherwise.
func (s *Service) committedCompletion(ctx context.Context, c *store.Completion) *store.TestAttempt {
	id := c.NewAttemptID
	if c.AttemptID != nil {
		id = *c.AttemptID
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()
	a, err := s.store.GetAttempt(rctx, id)
	if err != nil {
		s.logger.Warn("failed to re-read attempt", "attempt_id", id, "error", err)
		return nil
	}
	if a == nil || a.StudentID != c.StudentID || a.Status != store.StatusCompleted {
		return nil
	}
	if a.RecommendedMajorID == nil || *a.RecommendedMajorID != c.RecommendedMajorID {
		return nil
	}
	if a.FinalScore == nil || *a.FinalScore != c.FinalScore {
		return nil
	}
	return a
}

func (s *Service) publishCompleted(a *store.TestAttempt, rec *Recommendation, answerCount int) {
	if s.hermes == nil {
		return
	}
	completedAt := time.Now().UTC()
	if a.CompletedAt != nil {
		completedAt = *a.CompletedAt
	}
	err := s.hermes.Publish(hermes.SubjectAttemptCompleted(a.ID.String()), hermes.AttemptCompletedEvent{
		AttemptID:          a.ID.String(),
		StudentID:          a.StudentID,
		RecommendedMajorID: rec.RecommendedMajor.ID,
		RecommendedMajor:   rec.RecommendedMajor.Name,
		FinalScore:         rec.FinalScore,
		AnswerCount:        answerCount,
		CompletedAt:        completedAt,
	})
	if err != nil {
		s.logger.Warn("failed to publish attempt completed", "attempt_id", a.ID, "error", err)
	}
}

// GetResult returns a completed attempt owned by studentID. Attempts of
// other students are reported as not found.
func (s *Service) GetResult(ctx context.Context, studentID int64, attemptID uuid.UUID) (*AttemptResult, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a == nil || a.StudentID != studentID {
		return nil, store.ErrAttemptNotFound
	}
	return s.result(ctx, a)
}

// AttemptResult returns any completed attempt regardless of owner. It backs
// the staff results view.
func (s *Service) AttemptResult(ctx context.Context, attemptID uuid.UUID) (*AttemptResult, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a == nil {
		return nil, store.ErrAttemptNotFound
	}
	return s.result(ctx, a)
}

func (s *Service) result(ctx context.Context, a *store.TestAttempt) (*AttemptResult, error) {
	if a.Status != store.StatusCompleted {
		return nil, ErrAttemptNotCompleted
	}
	attemptID := a.ID

	rows, err := s.store.GetAttemptScores(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get scores: %w", err)
	}
	answers, err := s.store.GetAttemptAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	majors, err := s.store.ListMajorsWithWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("list majors: %w", err)
	}
	byID := make(map[int64]catalog.Major, len(majors))
	for _, m := range majors {
		byID[m.ID] = m
	}

	res := &AttemptResult{
		Attempt: a,
		Scores:  make([]scoring.MajorScore, 0, len(rows)),
		Answers: answers,
	}
	for _, r := range rows {
		m := byID[r.MajorID]
		res.Scores = append(res.Scores, scoring.MajorScore{
			MajorID:   r.MajorID,
			MajorName: m.Name,
			MajorCode: m.Code,
			Score:     r.Score,
			Rank:      r.Rank,
		})
	}
	if res.Answers == nil {
		res.Answers = []store.Answer{}
	}
	if a.RecommendedMajorID != nil {
		if m, ok := byID[*a.RecommendedMajorID]; ok {
			res.RecommendedMajor = &MajorSummary{ID: m.ID, Name: m.Name, Code: m.Code, Description: m.Description}
		}
	}
	return res, nil
}

// History lists the attempts of studentID, newest first.
func (s *Service) History(ctx context.Context, studentID int64, limit, offset int) ([]*store.TestAttempt, error) {
	attempts, err := s.store.ListAttempts(ctx, store.AttemptFilter{
		StudentID: &studentID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if attempts == nil {
		attempts = []*store.TestAttempt{}
	}
	return attempts, nil
}

// AttemptSummary is one row of the staff results list.
type AttemptSummary struct {
	*store.TestAttempt
	RecommendedMajor *MajorSummary `json:"recommended_major,omitempty"`
}

// Attempts lists attempts of every student, newest first, optionally
// narrowed by filter.StudentID and filter.Status.
func (s *Service) Attempts(ctx context.Context, filter store.AttemptFilter) ([]AttemptSummary, error) {
	attempts, err := s.store.ListAttempts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	majors, err := s.store.ListMajorsWithWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("list majors: %w", err)
	}
	byID := make(map[int64]catalog.Major, len(majors))
	for _, m := range majors {
		byID[m.ID] = m
	}

	out := make([]AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		row := AttemptSummary{TestAttempt: a}
		if a.RecommendedMajorID != nil {
			if m, ok := byID[*a.RecommendedMajorID]; ok {
				row.RecommendedMajor = &MajorSummary{ID: m.ID, Name: m.Name, Code: m.Code, Description: m.Description}
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Service) Questions(ctx context.Context) ([]QuestionView, error) {
	cat, err := catalog.Load(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	names := make(map[int64]string)
	for _, c := range cat.Criteria() {
		names[c.ID] = c.Name
	}

	questions := cat.Questions()
	out := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		qv := QuestionView{
			ID:          q.ID,
			CriterionID: q.CriterionID,
			Criterion:   names[q.CriterionID],
			Text:        q.Text,
			Options:     make([]OptionView, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, OptionView{ID: o.ID, Text: o.Text})
		}
		out = append(out, qv)
	}
	return out, nil
}

// Majors lists the majors ordered by name.
func (s *Service) Majors(ctx context.Context) ([]MajorSummary, error) {
	majors, err := s.store.ListMajorsWithWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("list majors: %w", err)
	}
	out := make([]MajorSummary, 0, len(majors))
	for _, m := range majors {
		out = append(out, MajorSummary{ID: m.ID, Name: m.Name, Code: m.Code, Description: m.Description})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Service) Stats(ctx context.Context) (*store.AttemptStats, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

func answerRows(answers scoring.Answers) []store.Answer {
	rows := make([]store.Answer, 0, len(answers))
	for qid, oid := range answers {
		rows = append(rows, store.Answer{QuestionID: qid, OptionID: oid})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].QuestionID < rows[j].QuestionID })
	return rows
}

func scoreRows(scores []scoring.MajorScore) []store.MajorScore {
	rows := make([]store.MajorScore, 0, len(scores))
	for _, ms := range scores {
		rows = append(rows, store.MajorScore{MajorID: ms.MajorID, Score: ms.Score, Rank: ms.Rank})
	}
	return rows
}
