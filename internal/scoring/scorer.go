package scoring

import (
	"log/slog"

	"github.com/MikeSquared-Agency/Compass/internal/catalog"
)

// Result captures the complete scoring output for one set of answers.
type Result struct {
	CriterionScores CriterionScores `json:"criterion_scores"`
	Ranked          RankedResult    `json:"ranked"`
}

// Scorer runs normalization, SAW scoring and ranking against one catalog
// snapshot. It holds no state between calls.
type Scorer struct {
	logger *slog.Logger
}

func NewScorer(logger *slog.Logger) *Scorer {
	return &Scorer{logger: logger}
}

// Score computes the recommendation for answers. It never returns a partial
// result: any error leaves Result zero.
func (s *Scorer) Score(answers Answers, c *catalog.Catalog) (Result, error) {
	criterionScores, err := Normalize(answers, c)
	if err != nil {
		return Result{}, err
	}

	ranked, err := Rank(ScoreMajors(criterionScores, c))
	if err != nil {
		return Result{}, err
	}

	s.logger.Debug("scored answers",
		"answers", len(answers),
		"criteria", len(criterionScores),
		"majors", len(ranked.Scores),
		"best_major", ranked.Best.MajorID,
		"best_score", ranked.Best.Score,
	)

	return Result{CriterionScores: criterionScores, Ranked: ranked}, nil
}
