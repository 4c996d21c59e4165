package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func likertOptions(questionID, firstID int64) []Option {
	opts := make([]Option, 0, 5)
	for v := 1; v <= 5; v++ {
		opts = append(opts, Option{ID: firstID + int64(v-1), QuestionID: questionID, Value: float64(v), Order: v})
	}
	return opts
}

func TestNewOrdersAndIndexes(t *testing.T) {
	c, err := New(
		[]Criterion{{ID: 2, Name: "Creativity"}, {ID: 1, Name: "Logic"}},
		[]Question{
			{ID: 20, CriterionID: 2, Order: 1, Options: likertOptions(20, 200)},
			{ID: 10, CriterionID: 1, Order: 1, Options: likertOptions(10, 100)},
		},
		[]Major{
			{ID: 7, Name: "Arts", Weights: []MajorWeight{{MajorID: 7, CriterionID: 2, Weight: 80}}},
			{ID: 3, Name: "Informatics"},
		},
	)
	require.NoError(t, err)

	crit := c.Criteria()
	require.Len(t, crit, 2)
	assert.Equal(t, int64(1), crit[0].ID)

	majors := c.Majors()
	require.Len(t, majors, 2)
	assert.Equal(t, int64(3), majors[0].ID)
	assert.Equal(t, int64(7), majors[1].ID)

	opt, q, ok := c.Option(203)
	require.True(t, ok)
	assert.Equal(t, 4.0, opt.Value)
	assert.Equal(t, int64(20), q.ID)
	assert.Equal(t, int64(2), q.CriterionID)

	_, _, ok = c.Option(999)
	assert.False(t, ok)

	m, ok := c.Major(7)
	require.True(t, ok)
	assert.Equal(t, "Arts", m.Name)
	_, ok = c.Major(4)
	assert.False(t, ok)

	assert.Equal(t, 5.0, c.MaxOptionValue())
	assert.Equal(t, 2, c.NumQuestions())
	assert.Equal(t, 2, c.NumMajors())
}

func TestQuestionsOrderedByCriterionThenOrder(t *testing.T) {
	c, err := New(
		[]Criterion{{ID: 1}, {ID: 2}},
		[]Question{
			{ID: 1, CriterionID: 2, Order: 1},
			{ID: 2, CriterionID: 1, Order: 2},
			{ID: 3, CriterionID: 1, Order: 1},
		},
		nil,
	)
	require.NoError(t, err)

	var ids []int64
	for _, q := range c.Questions() {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []int64{3, 2, 1}, ids)
}

func TestNewRejectsBrokenOwnership(t *testing.T) {
	tests := []struct {
		name      string
		criteria  []Criterion
		questions []Question
		majors    []Major
	}{
		{
			name:      "question with unknown criterion",
			criteria:  []Criterion{{ID: 1}},
			questions: []Question{{ID: 1, CriterionID: 9}},
		},
		{
			name:      "option under wrong question",
			criteria:  []Criterion{{ID: 1}},
			questions: []Question{{ID: 1, CriterionID: 1, Options: []Option{{ID: 1, QuestionID: 2, Value: 1}}}},
		},
		{
			name:     "option shared by two questions",
			criteria: []Criterion{{ID: 1}},
			questions: []Question{
				{ID: 1, CriterionID: 1, Options: []Option{{ID: 5, QuestionID: 1, Value: 1}}},
				{ID: 2, CriterionID: 1, Options: []Option{{ID: 5, QuestionID: 2, Value: 1}}},
			},
		},
		{
			name:      "negative option value",
			criteria:  []Criterion{{ID: 1}},
			questions: []Question{{ID: 1, CriterionID: 1, Options: []Option{{ID: 1, QuestionID: 1, Value: -1}}}},
		},
		{
			name:     "weight on unknown criterion",
			criteria: []Criterion{{ID: 1}},
			majors:   []Major{{ID: 1, Weights: []MajorWeight{{MajorID: 1, CriterionID: 2, Weight: 10}}}},
		},
		{
			name:     "weight above 100",
			criteria: []Criterion{{ID: 1}},
			majors:   []Major{{ID: 1, Weights: []MajorWeight{{MajorID: 1, CriterionID: 1, Weight: 120}}}},
		},
		{
			name:     "duplicate weight row",
			criteria: []Criterion{{ID: 1}},
			majors: []Major{{ID: 1, Weights: []MajorWeight{
				{MajorID: 1, CriterionID: 1, Weight: 10},
				{MajorID: 1, CriterionID: 1, Weight: 20},
			}}},
		},
		{
			name:   "duplicate major",
			majors: []Major{{ID: 1}, {ID: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.criteria, tt.questions, tt.majors)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCatalog), "got %v", err)
		})
	}
}

func TestNewDoesNotAliasInputs(t *testing.T) {
	questions := []Question{{ID: 1, CriterionID: 1, Options: []Option{{ID: 1, QuestionID: 1, Value: 3}}}}
	c, err := New([]Criterion{{ID: 1}}, questions, nil)
	require.NoError(t, err)

	questions[0].Options[0].Value = 100
	opt, _, ok := c.Option(1)
	require.True(t, ok)
	assert.Equal(t, 3.0, opt.Value)
}

type stubSource struct {
	criteria  []Criterion
	questions []Question
	majors    []Major
	err       error
}

func (s stubSource) ListCriteria(context.Context) ([]Criterion, error) { return s.criteria, s.err }
func (s stubSource) ListQuestionsWithOptions(context.Context) ([]Question, error) {
	return s.questions, nil
}
func (s stubSource) ListMajorsWithWeights(context.Context) ([]Major, error) { return s.majors, nil }

func TestLoad(t *testing.T) {
	src := stubSource{
		criteria:  []Criterion{{ID: 1, Name: "Logic"}},
		questions: []Question{{ID: 1, CriterionID: 1, Options: likertOptions(1, 1)}},
		majors:    []Major{{ID: 1, Name: "Informatics"}},
	}
	c, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, c.NumMajors())

	src.err = errors.New("db down")
	_, err = Load(context.Background(), src)
	assert.ErrorContains(t, err, "list criteria")
}
