// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/hsdsgate/core/schema"
	"github.com/artpar/hsdsgate/core/validation"
	"github.com/artpar/hsdsgate/domain/record"
	"github.com/artpar/hsdsgate/ports"
)

// Publisher sends validated records to the distribution layer.
type Publisher interface {
	Publish(ctx context.Context, typeName string, rec *record.Record) error
}

// RejectObserver is told why a submission was refused.
type RejectObserver interface {
	ObserveRejected(typeName, reason string)
}

// Rejection reasons reported to the RejectObserver.
const (
	ReasonUnknownType = "unknown_type"
	ReasonDecode      = "decode"
	ReasonValidation  = "validation"
	ReasonPublish     = "publish"
)

// Pipeline is the resolved handling of one record type.
type Pipeline struct {
	Topic    string
	Decode   func(body []byte) (*record.Record, error)
	Validate func(rec *record.Record) validation.Outcome
	Publish  func(ctx context.Context, rec *record.Record) error
}

// Submission is one record received from a client.
type Submission struct {
	Type string
	// PathID is the identifier from the URL of an update, empty on create.
	PathID string
	Body   []byte
}

// Receipt confirms a published record.
type Receipt struct {
	Type       string
	Topic      string
	ID         string
	SourceID   string
	Attributes map[string]any
}

// IngestDeps contains dependencies for IngestService.
type IngestDeps struct {
	Catalog   *schema.Catalog
	Validator *validation.Validator
	Publisher Publisher
	IDGen     ports.IDGenerator
	Observer  RejectObserver
	Logger    zerolog.Logger
}

// IngestService turns submissions into published records.
type IngestService struct {
	pipelines map[string]Pipeline
	idGen     ports.IDGenerator
	observer  RejectObserver
	logger    zerolog.Logger
}

// NewIngestService resolves one pipeline per catalog type.
func NewIngestService(deps IngestDeps) *IngestService {
	s := &IngestService{
		pipelines: make(map[string]Pipeline, deps.Catalog.Len()),
		idGen:     deps.IDGen,
		observer:  deps.Observer,
		logger:    deps.Logger,
	}

	for _, typeName := range deps.Catalog.Types() {
		rt, _ := deps.Catalog.Get(typeName)
		s.pipelines[typeName] = Pipeline{
			Topic: rt.Topic,
			Decode: func(body []byte) (*record.Record, error) {
				return record.Decode(typeName, rt.Fields, body)
			},
			Validate: func(rec *record.Record) validation.Outcome {
				return deps.Validator.Validate(typeName, rec)
			},
			Publish: func(ctx context.Context, rec *record.Record) error {
				return deps.Publisher.Publish(ctx, typeName, rec)
			},
		}
	}
	return s
}

// Pipeline returns the resolved pipeline for typeName.
func (s *IngestService) Pipeline(typeName string) (Pipeline, bool) {
	p, ok := s.pipelines[typeName]
	return p, ok
}

// Submit decodes, validates and publishes one record.
// Nothing is published unless validation produced no violations.
func (s *IngestService) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	rec, p, err := s.prepare(sub)
	if err != nil {
		return Receipt{}, err
	}

	start := time.Now()
	if err := p.Publish(ctx, rec); err != nil {
		s.reject(sub.Type, ReasonPublish)
		s.logger.Error().
			Err(err).
			Str("type", sub.Type).
			Str("topic", p.Topic).
			Str("id", rec.ID()).
			Msg("publish failed")
		return Receipt{}, &PublishError{Type: sub.Type, Topic: p.Topic, Err: err}
	}

	s.logger.Info().
		Str("type", sub.Type).
		Str("topic", p.Topic).
		Str("id", rec.ID()).
		Dur("duration", time.Since(start)).
		Msg("record published")

	return Receipt{
		Type:       sub.Type,
		Topic:      p.Topic,
		ID:         rec.ID(),
		SourceID:   rec.Provenance(),
		Attributes: rec.Fields(),
	}, nil
}

// Check runs everything Submit does short of publishing. The returned
// record carries the id Submit would have published it under.
func (s *IngestService) Check(sub Submission) (*record.Record, error) {
	rec, _, err := s.prepare(sub)
	return rec, err
}

func (s *IngestService) prepare(sub Submission) (*record.Record, Pipeline, error) {
	p, ok := s.pipelines[sub.Type]
	if !ok {
		s.reject(sub.Type, ReasonUnknownType)
		return nil, p, &SchemaError{Type: sub.Type}
	}

	rec, err := p.Decode(sub.Body)
	if err != nil {
		s.reject(sub.Type, ReasonDecode)
		return nil, p, &DecodeError{Type: sub.Type, Err: err}
	}

	var mismatch *validation.Violation
	switch {
	case rec.Malformed(schema.IDField):
	case rec.Str(schema.IDField) == "" && sub.PathID != "":
		rec.SetID(sub.PathID)
	case rec.Str(schema.IDField) == "":
		rec.SetID(s.idGen.New())
	case sub.PathID != "" && rec.Str(schema.IDField) != sub.PathID:
		mismatch = &validation.Violation{
			Field:   schema.IDField,
			Rule:    validation.RuleMismatch,
			Message: "does not match path identifier",
		}
	}

	outcome := p.Validate(rec)
	if mismatch != nil {
		outcome = append(validation.Outcome{*mismatch}, outcome...)
	}
	if !outcome.Valid() {
		s.reject(sub.Type, ReasonValidation)
		s.logger.Debug().
			Str("type", sub.Type).
			Int("violations", len(outcome)).
			Str("errors", outcome.Join()).
			Msg("record rejected")
		return rec, p, &ValidationError{Type: sub.Type, Outcome: outcome}
	}
	return rec, p, nil
}

func (s *IngestService) reject(typeName, reason string) {
	if s.observer != nil {
		s.observer.ObserveRejected(typeName, reason)
	}
}

// IsClientError reports whether err was caused by the submission itself.
func IsClientError(err error) bool {
	var (
		schemaErr     *SchemaError
		decodeErr     *DecodeError
		validationErr *ValidationError
	)
	return errors.As(err, &schemaErr) || errors.As(err, &decodeErr) || errors.As(err, &validationErr)
}
