// seed_catalog.go loads a YAML questionnaire catalog (criteria, questions with
// options, majors with weights) into the Compass database in one transaction.
//
// Usage:
//
//	go run scripts/seed_catalog.go -catalog scripts/catalog.example.yaml -db postgres://localhost/compass
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Compass/internal/catalog"
	"github.com/MikeSquared-Agency/Compass/internal/hermes"
	"github.com/MikeSquared-Agency/Compass/internal/store"
)

type catalogFile struct {
	Criteria []struct {
		ID          int64  `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"criteria"`
	Questions []struct {
		ID        int64  `yaml:"id"`
		Criterion int64  `yaml:"criterion"`
		Text      string `yaml:"text"`
		Order     int    `yaml:"order"`
		Options   []struct {
			ID    int64   `yaml:"id"`
			Text  string  `yaml:"text"`
			Value float64 `yaml:"value"`
		} `yaml:"options"`
	} `yaml:"questions"`
	Majors []struct {
		ID          int64             `yaml:"id"`
		Name        string            `yaml:"name"`
		Code        string            `yaml:"code"`
		Description string            `yaml:"description"`
		Weights     map[int64]float64 `yaml:"weights"`
	} `yaml:"majors"`
}

func main() {
	catalogPath := flag.String("catalog", "catalog.yaml", "path to catalog YAML file")
	driver := flag.String("driver", "postgres", "database driver: postgres or sqlite")
	dbURL := flag.String("db", os.Getenv("COMPASS_DATABASE_URL"), "database URL or sqlite DSN")
	natsURL := flag.String("nats", os.Getenv("COMPASS_HERMES_URL"), "NATS URL for the catalog updated event (optional)")
	dryRun := flag.Bool("dry-run", false, "validate the catalog without writing")
	flag.Parse()

	data, err := os.ReadFile(*catalogPath)
	if err != nil {
		log.Fatalf("read catalog: %v", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		log.Fatalf("parse catalog: %v", err)
	}

	criteria, questions, majors := convert(f)
	// Build once so integrity errors surface before anything is written.
	cat, err := catalog.New(criteria, questions, majors)
	if err != nil {
		log.Fatalf("invalid catalog: %v", err)
	}
	fmt.Printf("catalog: %d criteria, %d questions, %d majors, option ceiling %.2f\n",
		len(criteria), cat.NumQuestions(), cat.NumMajors(), cat.MaxOptionValue())
	if *dryRun {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var s store.Store
	switch *driver {
	case "sqlite":
		s, err = store.NewSQLiteStore(ctx, *dbURL)
	case "postgres":
		s, err = store.NewPostgresStore(ctx, *dbURL)
	default:
		log.Fatalf("unsupported driver %q", *driver)
	}
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer s.Close()

	if err := s.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	if err := s.UpsertCatalog(ctx, criteria, questions, majors); err != nil {
		log.Fatalf("upsert catalog: %v", err)
	}
	fmt.Println("catalog loaded")

	if *natsURL == "" {
		return
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hc, err := hermes.NewNATSClient(ctx, *natsURL, logger)
	if err != nil {
		log.Printf("skip catalog event: %v", err)
		return
	}
	defer hc.Close()
	if err := hc.Publish(hermes.SubjectCatalogUpdated, hermes.CatalogUpdatedEvent{
		Criteria:  len(criteria),
		Questions: len(questions),
		Majors:    len(majors),
		Timestamp: time.Now().UTC(),
	}); err != nil {
		log.Printf("publish catalog event: %v", err)
	}
}

func convert(f catalogFile) ([]catalog.Criterion, []catalog.Question, []catalog.Major) {
	criteria := make([]catalog.Criterion, 0, len(f.Criteria))
	for _, c := range f.Criteria {
		criteria = append(criteria, catalog.Criterion{ID: c.ID, Name: c.Name, Description: c.Description})
	}

	questions := make([]catalog.Question, 0, len(f.Questions))
	for _, q := range f.Questions {
		question := catalog.Question{ID: q.ID, CriterionID: q.Criterion, Text: q.Text, Order: q.Order}
		for i, o := range q.Options {
			question.Options = append(question.Options, catalog.Option{
				ID:         o.ID,
				QuestionID: q.ID,
				Text:       o.Text,
				Value:      o.Value,
				Order:      i + 1,
			})
		}
		questions = append(questions, question)
	}

	majors := make([]catalog.Major, 0, len(f.Majors))
	for _, m := range f.Majors {
		major := catalog.Major{ID: m.ID, Name: m.Name, Code: m.Code, Description: m.Description}
		for criterionID, weight := range m.Weights {
			major.Weights = append(major.Weights, catalog.MajorWeight{
				MajorID:     m.ID,
				CriterionID: criterionID,
				Weight:      weight,
			})
		}
		majors = append(majors, major)
	}
	return criteria, questions, majors
}
