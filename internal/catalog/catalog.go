package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidCatalog is returned when catalog rows break the
// option -> question -> criterion ownership chain or carry out-of-range values.
var ErrInvalidCatalog = errors.New("invalid catalog")

type Criterion struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Question struct {
	ID          int64    `json:"id"`
	CriterionID int64    `json:"criterion_id"`
	Text        string   `json:"text"`
	Order       int      `json:"order"`
	Options     []Option `json:"options"`
}

type Option struct {
	ID         int64   `json:"id"`
	QuestionID int64   `json:"question_id"`
	Text       string  `json:"text"`
	Value      float64 `json:"value"`
	Order      int     `json:"order"`
}

type Major struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Code        string        `json:"code"`
	Description string        `json:"description,omitempty"`
	Weights     []MajorWeight `json:"weights,omitempty"`
}

// MajorWeight is a percentage in [0,100]. The weights of one major are not
// required to sum to 100.
type MajorWeight struct {
	MajorID     int64   `json:"major_id"`
	CriterionID int64   `json:"criterion_id"`
	Weight      float64 `json:"weight"`
}

// Source is the read-only Catalog Store.
type Source interface {
	ListCriteria(ctx context.Context) ([]Criterion, error)
	ListQuestionsWithOptions(ctx context.Context) ([]Question, error)
	ListMajorsWithWeights(ctx context.Context) ([]Major, error)
}

// Catalog is an immutable snapshot of criteria, questions, options and
// majors. Build one per request with Load or New and pass it by pointer;
// none of its methods mutate it.
type Catalog struct {
	criteria  []Criterion
	questions []Question
	majors    []Major

	criterionIndex map[int64]int
	questionIndex  map[int64]int
	optionIndex    map[int64]optionRef

	maxOptionValue float64
}

type optionRef struct {
	question int
	option   int
}

// Load reads the full catalog from src and builds a validated snapshot.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	criteria, err := src.ListCriteria(ctx)
	if err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	questions, err := src.ListQuestionsWithOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	majors, err := src.ListMajorsWithWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("list majors: %w", err)
	}
	return New(criteria, questions, majors)
}

// New copies its inputs, orders every collection by id and checks integrity.
func New(criteria []Criterion, questions []Question, majors []Major) (*Catalog, error) {
	c := &Catalog{
		criteria:       append([]Criterion(nil), criteria...),
		questions:      make([]Question, len(questions)),
		majors:         make([]Major, len(majors)),
		criterionIndex: make(map[int64]int, len(criteria)),
		questionIndex:  make(map[int64]int, len(questions)),
		optionIndex:    make(map[int64]optionRef),
	}
	for i, q := range questions {
		q.Options = append([]Option(nil), q.Options...)
		c.questions[i] = q
	}
	for i, m := range majors {
		m.Weights = append([]MajorWeight(nil), m.Weights...)
		c.majors[i] = m
	}

	sort.Slice(c.criteria, func(i, j int) bool { return c.criteria[i].ID < c.criteria[j].ID })
	sort.Slice(c.questions, func(i, j int) bool { return c.questions[i].ID < c.questions[j].ID })
	sort.Slice(c.majors, func(i, j int) bool { return c.majors[i].ID < c.majors[j].ID })

	for i, cr := range c.criteria {
		if _, dup := c.criterionIndex[cr.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate criterion %d", ErrInvalidCatalog, cr.ID)
		}
		c.criterionIndex[cr.ID] = i
	}

	for qi := range c.questions {
		q := &c.questions[qi]
		if _, dup := c.questionIndex[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question %d", ErrInvalidCatalog, q.ID)
		}
		if _, ok := c.criterionIndex[q.CriterionID]; !ok {
			return nil, fmt.Errorf("%w: question %d references unknown criterion %d", ErrInvalidCatalog, q.ID, q.CriterionID)
		}
		c.questionIndex[q.ID] = qi

		sort.SliceStable(q.Options, func(i, j int) bool {
			if q.Options[i].Order != q.Options[j].Order {
				return q.Options[i].Order < q.Options[j].Order
			}
			return q.Options[i].ID < q.Options[j].ID
		})
		for oi, o := range q.Options {
			if o.QuestionID != q.ID {
				return nil, fmt.Errorf("%w: option %d listed under question %d belongs to question %d", ErrInvalidCatalog, o.ID, q.ID, o.QuestionID)
			}
			if _, dup := c.optionIndex[o.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate option %d", ErrInvalidCatalog, o.ID)
			}
			if o.Value < 0 {
				return nil, fmt.Errorf("%w: option %d has negative value %v", ErrInvalidCatalog, o.ID, o.Value)
			}
			c.optionIndex[o.ID] = optionRef{question: qi, option: oi}
			if o.Value > c.maxOptionValue {
				c.maxOptionValue = o.Value
			}
		}
	}

	seenMajor := make(map[int64]bool, len(c.majors))
	for mi := range c.majors {
		m := &c.majors[mi]
		if seenMajor[m.ID] {
			return nil, fmt.Errorf("%w: duplicate major %d", ErrInvalidCatalog, m.ID)
		}
		seenMajor[m.ID] = true

		sort.Slice(m.Weights, func(i, j int) bool { return m.Weights[i].CriterionID < m.Weights[j].CriterionID })
		for i, w := range m.Weights {
			if w.MajorID != m.ID {
				return nil, fmt.Errorf("%w: weight for major %d listed under major %d", ErrInvalidCatalog, w.MajorID, m.ID)
			}
			if _, ok := c.criterionIndex[w.CriterionID]; !ok {
				return nil, fmt.Errorf("%w: major %d weights unknown criterion %d", ErrInvalidCatalog, m.ID, w.CriterionID)
			}
			if w.Weight < 0 || w.Weight > 100 {
				return nil, fmt.Errorf("%w: major %d weight %v for criterion %d outside [0,100]", ErrInvalidCatalog, m.ID, w.Weight, w.CriterionID)
			}
			if i > 0 && m.Weights[i-1].CriterionID == w.CriterionID {
				return nil, fmt.Errorf("%w: major %d has two weights for criterion %d", ErrInvalidCatalog, m.ID, w.CriterionID)
			}
		}
	}

	return c, nil
}

// Criteria returns the criteria ordered by id.
func (c *Catalog) Criteria() []Criterion {
	return append([]Criterion(nil), c.criteria...)
}

// Majors returns the majors ordered by id. Weight slices are shared with the
// catalog and must not be modified.
func (c *Catalog) Majors() []Major {
	return append([]Major(nil), c.majors...)
}

// Questions returns the questions ordered by criterion, then display order,
// then id. Options are shared with the catalog and must not be modified.
func (c *Catalog) Questions() []Question {
	out := append([]Question(nil), c.questions...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CriterionID != out[j].CriterionID {
			return out[i].CriterionID < out[j].CriterionID
		}
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *Catalog) Major(id int64) (Major, bool) {
	i := sort.Search(len(c.majors), func(i int) bool { return c.majors[i].ID >= id })
	if i < len(c.majors) && c.majors[i].ID == id {
		return c.majors[i], true
	}
	return Major{}, false
}

func (c *Catalog) Question(id int64) (Question, bool) {
	i, ok := c.questionIndex[id]
	if !ok {
		return Question{}, false
	}
	return c.questions[i], true
}

// Option resolves an option id to the option and the question that owns it.
func (c *Catalog) Option(id int64) (Option, Question, bool) {
	ref, ok := c.optionIndex[id]
	if !ok {
		return Option{}, Question{}, false
	}
	q := c.questions[ref.question]
	return q.Options[ref.option], q, true
}

// MaxOptionValue is the scale ceiling: the largest option value in the catalog.
func (c *Catalog) MaxOptionValue() float64 {
	return c.maxOptionValue
}

func (c *Catalog) NumQuestions() int { return len(c.questions) }
func (c *Catalog) NumMajors() int    { return len(c.majors) }
