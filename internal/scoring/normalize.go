package scoring

import (
	"sort"

	"github.com/MikeSquared-Agency/Compass/internal/catalog"
)

// Answers maps a question id to the single chosen option id.
type Answers map[int64]int64

// CriterionScores maps a criterion id to its normalized score in [0,100].
type CriterionScores map[int64]float64

// Normalize aggregates the chosen option values per criterion:
//
//	normalized(c) = sum(values of c) * 100 / (answers for c * max option value)
//
// The ceiling is the largest option value in the catalog. Every criterion of
// the catalog appears in the result; criteria without answers score 0.
func Normalize(answers Answers, c *catalog.Catalog) (CriterionScores, error) {
	type agg struct {
		total float64
		count int
	}
	perCriterion := make(map[int64]*agg)

	// Visit answers in question order so the sums and the first reported
	// error do not depend on map iteration order.
	questionIDs := make([]int64, 0, len(answers))
	for qid := range answers {
		questionIDs = append(questionIDs, qid)
	}
	sort.Slice(questionIDs, func(i, j int) bool { return questionIDs[i] < questionIDs[j] })

	for _, qid := range questionIDs {
		optID := answers[qid]
		opt, q, ok := c.Option(optID)
		if !ok || q.ID != qid {
			return nil, &UnknownOptionError{QuestionID: qid, OptionID: optID}
		}
		a := perCriterion[q.CriterionID]
		if a == nil {
			a = &agg{}
			perCriterion[q.CriterionID] = a
		}
		a.total += opt.Value
		a.count++
	}

	ceiling := c.MaxOptionValue()
	out := make(CriterionScores, len(perCriterion))
	for _, cr := range c.Criteria() {
		a := perCriterion[cr.ID]
		if a == nil || a.count == 0 || ceiling <= 0 {
			out[cr.ID] = 0
			continue
		}
		out[cr.ID] = a.total * 100 / (float64(a.count) * ceiling)
	}
	return out, nil
}
