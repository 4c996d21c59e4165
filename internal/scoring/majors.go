package scoring

import (
	"math"

	"github.com/MikeSquared-Agency/Compass/internal/catalog"
)

// scorePrecision bounds the summation error carried into a major score.
// Sums that differ only by float rounding compare equal and fall back to
// the major id tie-break.
const scorePrecision = 1e9

// Contribution is one criterion's share of a major's score.
type Contribution struct {
	CriterionID int64   `json:"criterion_id"`
	Normalized  float64 `json:"normalized"`
	Weight      float64 `json:"weight"`
	Weighted    float64 `json:"weighted"`
}

// MajorScore is the SAW score of one major.
type MajorScore struct {
	MajorID       int64          `json:"major_id"`
	MajorName     string         `json:"major_name"`
	MajorCode     string         `json:"major_code,omitempty"`
	Score         float64        `json:"score"`
	Rank          int            `json:"rank"`
	Contributions []Contribution `json:"contributions,omitempty"`
}

// ScoreMajors returns one score per catalog major, in major id order:
//
//	score(m) = sum over weights(m) of normalized(criterion) * weight / 100
//
// Criteria missing from scores count as 0. Majors without weight rows score 0.
// Scores are not clamped and are rounded to nine decimal places.
func ScoreMajors(scores CriterionScores, c *catalog.Catalog) []MajorScore {
	majors := c.Majors()
	out := make([]MajorScore, 0, len(majors))
	for _, m := range majors {
		ms := MajorScore{
			MajorID:   m.ID,
			MajorName: m.Name,
			MajorCode: m.Code,
		}
		for _, w := range m.Weights {
			normalized := scores[w.CriterionID]
			weighted := normalized * w.Weight / 100
			ms.Score += weighted
			ms.Contributions = append(ms.Contributions, Contribution{
				CriterionID: w.CriterionID,
				Normalized:  normalized,
				Weight:      w.Weight,
				Weighted:    weighted,
			})
		}
		ms.Score = roundScore(ms.Score)
		out = append(out, ms)
	}
	return out
}

func roundScore(v float64) float64 {
	return math.Round(v*scorePrecision) / scorePrecision
}
