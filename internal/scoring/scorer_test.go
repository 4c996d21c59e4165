package scoring

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Compass/internal/catalog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	logic      int64 = 1
	creativity int64 = 2
)

// optionID encodes question and value so tests can pick an answer by value.
func optionID(questionID int64, value int) int64 { return questionID*10 + int64(value) }

func likert(questionID int64) []catalog.Option {
	var opts []catalog.Option
	for v := 1; v <= 5; v++ {
		opts = append(opts, catalog.Option{ID: optionID(questionID, v), QuestionID: questionID, Value: float64(v), Order: v})
	}
	return opts
}

// scenarioCatalog has one five-point question per criterion and two majors
// weighting the criteria in opposite directions.
func scenarioCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(
		[]catalog.Criterion{{ID: logic, Name: "Logic"}, {ID: creativity, Name: "Creativity"}},
		[]catalog.Question{
			{ID: 1, CriterionID: logic, Order: 1, Options: likert(1)},
			{ID: 2, CriterionID: creativity, Order: 1, Options: likert(2)},
		},
		[]catalog.Major{
			{ID: 1, Name: "M1", Weights: []catalog.MajorWeight{
				{MajorID: 1, CriterionID: logic, Weight: 80},
				{MajorID: 1, CriterionID: creativity, Weight: 20},
			}},
			{ID: 2, Name: "M2", Weights: []catalog.MajorWeight{
				{MajorID: 2, CriterionID: logic, Weight: 20},
				{MajorID: 2, CriterionID: creativity, Weight: 80},
			}},
		},
	)
	require.NoError(t, err)
	return c
}

func TestScenarioLogicOverCreativity(t *testing.T) {
	c := scenarioCatalog(t)
	answers := Answers{1: optionID(1, 5), 2: optionID(2, 1)}

	norm, err := Normalize(answers, c)
	require.NoError(t, err)
	assert.InDelta(t, 100, norm[logic], 1e-9)
	assert.InDelta(t, 20, norm[creativity], 1e-9)

	scores := ScoreMajors(norm, c)
	require.Len(t, scores, 2)
	assert.InDelta(t, 84, scores[0].Score, 1e-9)
	assert.InDelta(t, 36, scores[1].Score, 1e-9)

	ranked, err := Rank(scores)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ranked.Best.MajorID)
	assert.Equal(t, "M1", ranked.Best.MajorName)
	assert.Equal(t, 1, ranked.Best.Rank)
	assert.Equal(t, int64(2), ranked.Scores[1].MajorID)
	assert.Equal(t, 2, ranked.Scores[1].Rank)
}

func TestUnansweredCriterionNormalizesToZero(t *testing.T) {
	c := scenarioCatalog(t)

	norm, err := Normalize(Answers{1: optionID(1, 3)}, c)
	require.NoError(t, err)

	v, ok := norm[creativity]
	if !ok {
		t.Fatal("expected unanswered criterion to be present")
	}
	if v != 0 {
		t.Errorf("expected 0 for unanswered criterion, got %f", v)
	}
	assert.InDelta(t, 60, norm[logic], 1e-9)
}

func TestNormalizeAveragesQuestionsOfOneCriterion(t *testing.T) {
	c, err := catalog.New(
		[]catalog.Criterion{{ID: logic}},
		[]catalog.Question{
			{ID: 1, CriterionID: logic, Options: likert(1)},
			{ID: 2, CriterionID: logic, Options: likert(2)},
		},
		nil,
	)
	require.NoError(t, err)

	norm, err := Normalize(Answers{1: optionID(1, 5), 2: optionID(2, 2)}, c)
	require.NoError(t, err)
	// (5 + 2) / (2 * 5) * 100
	assert.InDelta(t, 70, norm[logic], 1e-9)
}

func TestNormalizeCeilingFollowsCatalog(t *testing.T) {
	var opts []catalog.Option
	for v := 1; v <= 10; v++ {
		opts = append(opts, catalog.Option{ID: int64(v), QuestionID: 1, Value: float64(v)})
	}
	c, err := catalog.New(
		[]catalog.Criterion{{ID: logic}},
		[]catalog.Question{{ID: 1, CriterionID: logic, Options: opts}},
		nil,
	)
	require.NoError(t, err)

	norm, err := Normalize(Answers{1: 5}, c)
	require.NoError(t, err)
	assert.InDelta(t, 50, norm[logic], 1e-9)
}

func TestNormalizeZeroCeiling(t *testing.T) {
	c, err := catalog.New(
		[]catalog.Criterion{{ID: logic}},
		[]catalog.Question{{ID: 1, CriterionID: logic, Options: []catalog.Option{{ID: 1, QuestionID: 1, Value: 0}}}},
		nil,
	)
	require.NoError(t, err)

	norm, err := Normalize(Answers{1: 1}, c)
	require.NoError(t, err)
	assert.Equal(t, 0.0, norm[logic])
}

func TestNormalizeUnknownOption(t *testing.T) {
	c := scenarioCatalog(t)

	tests := []struct {
		name    string
		answers Answers
		wantQ   int64
		wantOpt int64
	}{
		{"option does not exist", Answers{1: 999}, 1, 999},
		{"option belongs to another question", Answers{1: optionID(2, 3)}, 1, optionID(2, 3)},
		{"question does not exist", Answers{42: optionID(1, 3)}, 42, optionID(1, 3)},
		{"first bad answer in question order", Answers{1: optionID(1, 5), 2: 777, 3: 888}, 2, 777},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			norm, err := Normalize(tt.answers, c)
			require.Error(t, err)
			assert.Nil(t, norm, "no partial result on error")
			assert.True(t, errors.Is(err, ErrUnknownOption))

			var uerr *UnknownOptionError
			require.True(t, errors.As(err, &uerr))
			assert.Equal(t, tt.wantQ, uerr.QuestionID)
			assert.Equal(t, tt.wantOpt, uerr.OptionID)
		})
	}
}

func TestScoreMajorsIncludesUnweightedMajors(t *testing.T) {
	c, err := catalog.New(
		[]catalog.Criterion{{ID: logic}, {ID: creativity}},
		nil,
		[]catalog.Major{
			{ID: 1, Name: "Weighted", Weights: []catalog.MajorWeight{{MajorID: 1, CriterionID: logic, Weight: 50}}},
			{ID: 2, Name: "Empty"},
		},
	)
	require.NoError(t, err)

	scores := ScoreMajors(CriterionScores{logic: 80}, c)
	require.Len(t, scores, 2)
	assert.InDelta(t, 40, scores[0].Score, 1e-9)
	assert.Equal(t, int64(2), scores[1].MajorID)
	assert.Equal(t, 0.0, scores[1].Score)
	assert.Empty(t, scores[1].Contributions)
}

func TestScoreMajorsMissingCriterionCountsZero(t *testing.T) {
	c := scenarioCatalog(t)

	scores := ScoreMajors(CriterionScores{logic: 50}, c)
	assert.InDelta(t, 40, scores[0].Score, 1e-9)
	require.Len(t, scores[0].Contributions, 2)
	assert.Equal(t, 0.0, scores[0].Contributions[1].Weighted)
}

func TestScoreMajorsDoesNotClamp(t *testing.T) {
	c, err := catalog.New(
		[]catalog.Criterion{{ID: logic}, {ID: creativity}},
		nil,
		[]catalog.Major{{ID: 1, Weights: []catalog.MajorWeight{
			{MajorID: 1, CriterionID: logic, Weight: 100},
			{MajorID: 1, CriterionID: creativity, Weight: 100},
		}}},
	)
	require.NoError(t, err)

	scores := ScoreMajors(CriterionScores{logic: 100, creativity: 100}, c)
	assert.InDelta(t, 200, scores[0].Score, 1e-9)
}

func TestRankEmptyCatalog(t *testing.T) {
	_, err := Rank(nil)
	if !errors.Is(err, ErrNoMajorsAvailable) {
		t.Fatalf("expected ErrNoMajorsAvailable, got %v", err)
	}
}

func TestRankTieBreaksByMajorID(t *testing.T) {
	scores := []MajorScore{
		{MajorID: 9, Score: 50},
		{MajorID: 4, Score: 70},
		{MajorID: 3, Score: 50},
		{MajorID: 2, Score: 70},
	}

	first, err := Rank(scores)
	require.NoError(t, err)

	var ids []int64
	for _, s := range first.Scores {
		ids = append(ids, s.MajorID)
	}
	assert.Equal(t, []int64{2, 4, 3, 9}, ids)
	assert.Equal(t, int64(2), first.Best.MajorID)

	for i := 0; i < 20; i++ {
		again, err := Rank(scores)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// input order must not leak into the result
	reversed := []MajorScore{scores[3], scores[2], scores[1], scores[0]}
	fromReversed, err := Rank(reversed)
	require.NoError(t, err)
	assert.Equal(t, first, fromReversed)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	scores := []MajorScore{{MajorID: 1, Score: 1}, {MajorID: 2, Score: 2}}
	_, err := Rank(scores)
	require.NoError(t, err)
	assert.Equal(t, int64(1), scores[0].MajorID)
	assert.Equal(t, 0, scores[0].Rank)
}

func TestScenarioIdenticalScoresLowerIDWins(t *testing.T) {
	c, err := catalog.New(
		[]catalog.Criterion{{ID: logic}},
		[]catalog.Question{{ID: 1, CriterionID: logic, Options: likert(1)}},
		[]catalog.Major{
			{ID: 5, Name: "Later", Weights: []catalog.MajorWeight{{MajorID: 5, CriterionID: logic, Weight: 60}}},
			{ID: 3, Name: "Earlier", Weights: []catalog.MajorWeight{{MajorID: 3, CriterionID: logic, Weight: 60}}},
		},
	)
	require.NoError(t, err)

	s := NewScorer(discardLogger())
	for run := 0; run < 3; run++ {
		res, err := s.Score(Answers{1: optionID(1, 4)}, c)
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.Ranked.Best.MajorID, "run %d", run)
		assert.InDelta(t, res.Ranked.Scores[0].Score, res.Ranked.Scores[1].Score, 0)
	}
}

// Mirrored weight vectors sum to the same score in exact arithmetic but not
// in float64 summation order.
func TestMirroredWeightsTieBreakByMajorID(t *testing.T) {
	weights := func(majorID int64, w1, w2, w3 float64) []catalog.MajorWeight {
		return []catalog.MajorWeight{
			{MajorID: majorID, CriterionID: 1, Weight: w1},
			{MajorID: majorID, CriterionID: 2, Weight: w2},
			{MajorID: majorID, CriterionID: 3, Weight: w3},
		}
	}
	c, err := catalog.New(
		[]catalog.Criterion{{ID: 1}, {ID: 2}, {ID: 3}},
		[]catalog.Question{
			{ID: 1, CriterionID: 1, Options: likert(1)},
			{ID: 2, CriterionID: 2, Options: likert(2)},
			{ID: 3, CriterionID: 3, Options: likert(3)},
		},
		[]catalog.Major{
			{ID: 1, Name: "Ascending", Weights: weights(1, 1, 2, 97)},
			{ID: 2, Name: "Descending", Weights: weights(2, 97, 2, 1)},
		},
	)
	require.NoError(t, err)

	res, err := NewScorer(discardLogger()).Score(Answers{
		1: optionID(1, 3),
		2: optionID(2, 3),
		3: optionID(3, 3),
	}, c)
	require.NoError(t, err)

	assert.Equal(t, 60.0, res.Ranked.Scores[0].Score)
	assert.Equal(t, 60.0, res.Ranked.Scores[1].Score)
	assert.Equal(t, int64(1), res.Ranked.Best.MajorID)
}

func TestScorerPropagatesErrors(t *testing.T) {
	s := NewScorer(discardLogger())

	_, err := s.Score(Answers{1: 12345}, scenarioCatalog(t))
	assert.ErrorIs(t, err, ErrUnknownOption)

	empty, err := catalog.New([]catalog.Criterion{{ID: logic}}, []catalog.Question{{ID: 1, CriterionID: logic, Options: likert(1)}}, nil)
	require.NoError(t, err)
	res, err := s.Score(Answers{1: optionID(1, 2)}, empty)
	assert.ErrorIs(t, err, ErrNoMajorsAvailable)
	assert.Empty(t, res.Ranked.Scores)
}

// randomCatalog builds a catalog with random structure and a full answer set.
func randomCatalog(t *testing.T, rng *rand.Rand) (*catalog.Catalog, Answers) {
	t.Helper()
	nCriteria := 1 + rng.Intn(6)
	var criteria []catalog.Criterion
	for i := 1; i <= nCriteria; i++ {
		criteria = append(criteria, catalog.Criterion{ID: int64(i)})
	}

	var questions []catalog.Question
	answers := Answers{}
	var nextOption int64 = 1
	nQuestions := rng.Intn(12)
	for q := 1; q <= nQuestions; q++ {
		qid := int64(q)
		question := catalog.Question{ID: qid, CriterionID: int64(1 + rng.Intn(nCriteria))}
		nOpts := 1 + rng.Intn(5)
		for o := 0; o < nOpts; o++ {
			question.Options = append(question.Options, catalog.Option{ID: nextOption, QuestionID: qid, Value: float64(rng.Intn(6))})
			nextOption++
		}
		answers[qid] = question.Options[rng.Intn(nOpts)].ID
		questions = append(questions, question)
	}

	var majors []catalog.Major
	nMajors := rng.Intn(8)
	for m := 1; m <= nMajors; m++ {
		major := catalog.Major{ID: int64(m)}
		for _, cr := range criteria {
			if rng.Intn(2) == 0 {
				major.Weights = append(major.Weights, catalog.MajorWeight{MajorID: major.ID, CriterionID: cr.ID, Weight: float64(rng.Intn(101))})
			}
		}
		majors = append(majors, major)
	}

	c, err := catalog.New(criteria, questions, majors)
	require.NoError(t, err)
	return c, answers
}

func TestPropertiesOverRandomCatalogs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		c, answers := randomCatalog(t, rng)

		norm, err := Normalize(answers, c)
		require.NoError(t, err)
		require.Len(t, norm, len(c.Criteria()))
		for _, cr := range c.Criteria() {
			v, ok := norm[cr.ID]
			require.True(t, ok, "criterion %d missing", cr.ID)
			require.False(t, math.IsNaN(v))
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 100.0)
		}

		scores := ScoreMajors(norm, c)
		require.Len(t, scores, c.NumMajors())
		seen := map[int64]bool{}
		for _, s := range scores {
			seen[s.MajorID] = true
			require.GreaterOrEqual(t, s.Score, 0.0)
		}
		require.Len(t, seen, c.NumMajors())

		ranked, err := Rank(scores)
		if c.NumMajors() == 0 {
			require.ErrorIs(t, err, ErrNoMajorsAvailable)
			continue
		}
		require.NoError(t, err)
		for j := 1; j < len(ranked.Scores); j++ {
			prev, cur := ranked.Scores[j-1], ranked.Scores[j]
			require.True(t, prev.Score > cur.Score || (prev.Score == cur.Score && prev.MajorID < cur.MajorID))
		}

		// identical inputs, byte-identical outputs
		norm2, _ := Normalize(answers, c)
		ranked2, _ := Rank(ScoreMajors(norm2, c))
		b1, _ := json.Marshal(struct {
			N CriterionScores
			R RankedResult
		}{norm, ranked})
		b2, _ := json.Marshal(struct {
			N CriterionScores
			R RankedResult
		}{norm2, ranked2})
		require.Equal(t, string(b1), string(b2))
	}
}
