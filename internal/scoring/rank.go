package scoring

import "sort"

// RankedResult holds every major ordered best first. Best is Scores[0].
type RankedResult struct {
	Scores []MajorScore `json:"scores"`
	Best   MajorScore   `json:"best"`
}

// Rank orders scores descending. Equal scores keep ascending major id order,
// so the recommendation is reproducible for identical inputs.
func Rank(scores []MajorScore) (RankedResult, error) {
	if len(scores) == 0 {
		return RankedResult{}, ErrNoMajorsAvailable
	}

	ordered := append([]MajorScore(nil), scores...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].MajorID < ordered[j].MajorID
	})
	for i := range ordered {
		ordered[i].Rank = i + 1
	}

	return RankedResult{Scores: ordered, Best: ordered[0]}, nil
}
