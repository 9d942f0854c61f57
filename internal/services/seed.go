package services

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/sparkquest-backend/internal/data/db"
	"github.com/yungbote/sparkquest-backend/internal/data/repos"
	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/domain/learning"
	"github.com/yungbote/sparkquest-backend/internal/platform/dbctx"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

//go:embed seeddata/questions.yaml
var questionTemplatesYAML []byte

//go:embed seeddata/questions.schema.json
var questionTemplatesSchema []byte

const topicPlaceholder = "{{topic}}"

type questionTemplate struct {
	Type          learning.QuestionType `json:"type"`
	Question      string                `json:"question"`
	Options       []learning.Option     `json:"options"`
	CorrectAnswer string                `json:"correctAnswer"`
	Feedback      string                `json:"feedback"`
}

type QuestionTemplates struct {
	Topics  map[string][]questionTemplate `json:"topics"`
	Generic []questionTemplate            `json:"generic"`
}

// ParseQuestionTemplates decodes YAML templates and validates them against the
// embedded schema before use.
func ParseQuestionTemplates(raw []byte) (*QuestionTemplates, error) {
	var doc any
	if err := yaml.NewDecoder(bytes.NewReader(raw)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode question templates: %w", err)
	}
	// Round trip through JSON so the validator and the Option shim see plain JSON values.
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("question templates are not JSON compatible: %w", err)
	}
	var parsed any
	if err := json.Unmarshal(asJSON, &parsed); err != nil {
		return nil, fmt.Errorf("parse question templates: %w", err)
	}

	schema, err := templateSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("question templates failed schema validation: %w", err)
	}

	var out QuestionTemplates
	if err := json.Unmarshal(asJSON, &out); err != nil {
		return nil, fmt.Errorf("decode question templates: %w", err)
	}
	return &out, nil
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func templateSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var def any
		if err := json.Unmarshal(questionTemplatesSchema, &def); err != nil {
			schemaErr = fmt.Errorf("parse template schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://question-templates.json"
		if err := c.AddResource(url, def); err != nil {
			schemaErr = fmt.Errorf("add template schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(url)
	})
	return compiledSchema, schemaErr
}

// ForTopic expands the templates for topic into questions with ids
// "{topic}-q{n}", numbered from 1 in template order.
func (t *QuestionTemplates) ForTopic(topic string) []*types.Question {
	topic = learning.NormalizeTopic(topic)
	set, ok := t.Topics[topic]
	if !ok {
		set = t.Generic
	}
	out := make([]*types.Question, 0, len(set))
	for i, tpl := range set {
		opts := make([]learning.Option, 0, len(tpl.Options))
		for _, o := range tpl.Options {
			opts = append(opts, learning.Option{
				Value:       fill(o.Value, topic),
				Description: fill(o.Description, topic),
				ImageURL:    o.ImageURL,
			})
		}
		out = append(out, &types.Question{
			ExternalID:    fmt.Sprintf("%s-q%d", topic, i+1),
			Topic:         topic,
			Type:          tpl.Type,
			Prompt:        fill(tpl.Question, topic),
			Options:       opts,
			CorrectAnswer: fill(tpl.CorrectAnswer, topic),
			Feedback:      fill(tpl.Feedback, topic),
		})
	}
	return out
}

func fill(s, topic string) string {
	return strings.ReplaceAll(s, topicPlaceholder, topic)
}

type SeedService interface {
	// EnsureSeeded inserts the template set for topic when it has no questions.
	// It reports how many questions were inserted.
	EnsureSeeded(ctx context.Context, topic string) (int, error)
	EnsureSeededAll(ctx context.Context, topics []string) error
}

type seedService struct {
	log          *logger.Logger
	questionRepo repos.QuestionRepo
	templates    *QuestionTemplates
}

// NewSeedService uses the embedded templates when templates is nil.
func NewSeedService(log *logger.Logger, questionRepo repos.QuestionRepo, templates *QuestionTemplates) (SeedService, error) {
	if templates == nil {
		parsed, err := ParseQuestionTemplates(questionTemplatesYAML)
		if err != nil {
			return nil, err
		}
		templates = parsed
	}
	return &seedService{
		log:          log.With("service", "SeedService"),
		questionRepo: questionRepo,
		templates:    templates,
	}, nil
}

func (ss *seedService) EnsureSeeded(ctx context.Context, topic string) (int, error) {
	const op = "seed.ensure_seeded"
	topic = learning.NormalizeTopic(topic)
	if topic == "" {
		return 0, types.ValidationError(op, types.FieldError{Path: "topic", Message: "topic is required"})
	}
	dbc := dbctx.Context{Ctx: ctx}
	count, err := ss.questionRepo.CountByTopic(dbc, topic)
	if err != nil {
		return 0, db.MapError(op, err)
	}
	if count > 0 {
		ss.log.Debug("Topic already seeded", "topic", topic, "count", count)
		return 0, nil
	}
	questions := ss.templates.ForTopic(topic)
	if _, err := ss.questionRepo.Create(dbc, questions); err != nil {
		// A concurrent seeder may have won the unique (topic, external_id) race.
		if mapped := db.MapError(op, err); types.IsCode(mapped, types.CodeConflict) {
			ss.log.Info("Topic seeded concurrently", "topic", topic)
			return 0, nil
		}
		return 0, db.MapError(op, err)
	}
	ss.log.Info("Seeded topic", "topic", topic, "count", len(questions))
	return len(questions), nil
}

func (ss *seedService) EnsureSeededAll(ctx context.Context, topics []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	seen := map[string]bool{}
	for _, topic := range topics {
		topic = learning.NormalizeTopic(topic)
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		g.Go(func() error {
			if _, err := ss.EnsureSeeded(gctx, topic); err != nil {
				return fmt.Errorf("seed %s: %w", topic, err)
			}
			return nil
		})
	}
	return g.Wait()
}
