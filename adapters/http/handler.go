// Package http provides the HTTP gateway in front of the ingest service.
package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/hsdsgate/app"
	"github.com/artpar/hsdsgate/core/registry"
	"github.com/artpar/hsdsgate/pkg/jsonapi"
	"github.com/artpar/hsdsgate/ports"
)

// CreatedResponse documents a successful submission for swagger.
type CreatedResponse struct {
	Data jsonapi.Resource `json:"data"`
	Meta CreatedMeta      `json:"meta"`
}

// CreatedMeta is the meta block of a successful submission.
type CreatedMeta struct {
	Status   string `json:"status" example:"created"`
	Message  string `json:"message" example:"Data published successfully"`
	Topic    string `json:"topic" example:"Organization"`
	SourceID string `json:"source_id" example:"community-publisher-default"`
}

// ErrorResponse documents an error document for swagger.
type ErrorResponse struct {
	Errors []jsonapi.Error `json:"errors"`
	Meta   jsonapi.Meta    `json:"meta"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    string `json:"status" example:"healthy"`
	Timestamp int64  `json:"timestamp" example:"1700000000"`
}

// StatusResponse reports publisher and gateway counters.
type StatusResponse struct {
	Status            string `json:"status" example:"ok"`
	PublisherStatus   string `json:"publisher_status" example:"initialized"`
	PublishedMessages uint64 `json:"published_messages" example:"42"`
	APIRequests       uint64 `json:"api_requests" example:"57"`
	SourceID          string `json:"source_id" example:"community-publisher-default"`
	RecordTypes       int    `json:"record_types" example:"24"`
}

// RecordHandler serves the HSDS ingest routes.
type RecordHandler struct {
	ingest  *app.IngestService
	maxBody int64
	logger  zerolog.Logger
}

// NewRecordHandler creates a record handler. maxBody caps request bodies;
// zero means no cap.
func NewRecordHandler(ingest *app.IngestService, maxBody int64, logger zerolog.Logger) *RecordHandler {
	return &RecordHandler{ingest: ingest, maxBody: maxBody, logger: logger}
}

// Create publishes a new record.
//
//	@Summary		Publish a record
//	@Description	Decodes, validates and publishes one HSDS record. A missing id is generated.
//	@Tags			HSDS
//	@Accept			json
//	@Produce		json
//	@Param			type	path		string			true	"Record type, e.g. organization"
//	@Success		201		{object}	CreatedResponse	"Record published"
//	@Failure		400		{object}	ErrorResponse	"Unknown type, malformed body or validation failure"
//	@Failure		401		{object}	ErrorResponse	"Missing or wrong bearer token"
//	@Failure		413		{object}	ErrorResponse	"Body larger than server.max_body_bytes"
//	@Failure		500		{object}	ErrorResponse	"Publishing failed"
//	@Security		BearerAuth
//	@Router			/api/v1/hsds/{type} [post]
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "")
}

// Update republishes a record under the identifier from the path.
//
//	@Summary		Republish a record
//	@Description	Same pipeline as create. A body id, when present, must equal the path id.
//	@Tags			HSDS
//	@Accept			json
//	@Produce		json
//	@Param			type	path		string			true	"Record type"
//	@Param			id		path		string			true	"Record identifier"
//	@Success		201		{object}	CreatedResponse	"Record published"
//	@Failure		400		{object}	ErrorResponse	"Unknown type, malformed body or validation failure"
//	@Failure		401		{object}	ErrorResponse	"Missing or wrong bearer token"
//	@Failure		413		{object}	ErrorResponse	"Body larger than server.max_body_bytes"
//	@Failure		500		{object}	ErrorResponse	"Publishing failed"
//	@Security		BearerAuth
//	@Router			/api/v1/hsds/{type}/{id} [put]
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, chi.URLParam(r, "id"))
}

// Delete is not supported.
//
//	@Summary		Delete a record
//	@Tags			HSDS
//	@Produce		json
//	@Param			type	path		string			true	"Record type"
//	@Param			id		path		string			true	"Record identifier"
//	@Failure		501		{object}	ErrorResponse	"Not implemented"
//	@Security		BearerAuth
//	@Router			/api/v1/hsds/{type}/{id} [delete]
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	jsonapi.WriteError(w, jsonapi.ErrNotImplemented("DELETE operations not implemented"))
}

func (h *RecordHandler) submit(w http.ResponseWriter, r *http.Request, pathID string) {
	typeName := chi.URLParam(r, "type")

	body, err := h.readBody(w, r)
	if err != nil {
		h.logger.Debug().Err(err).Str("type", typeName).Msg("failed to read request body")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonapi.WriteError(w, jsonapi.ErrPayloadTooLarge(tooLarge.Limit))
			return
		}
		jsonapi.WriteBadRequest(w, "Failed to read request body")
		return
	}

	receipt, err := h.ingest.Submit(r.Context(), app.Submission{
		Type:   typeName,
		PathID: pathID,
		Body:   body,
	})
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}

	location := "/api/v1/hsds/" + receipt.Type + "/" + receipt.ID
	resource := jsonapi.NewResource(receipt.Type, receipt.ID).
		Attrs(receipt.Attributes).
		Self(location).
		Build()
	jsonapi.WriteCreated(w, resource, jsonapi.Meta{
		"status":    "created",
		"message":   "Data published successfully",
		"topic":     receipt.Topic,
		"source_id": receipt.SourceID,
	}, location)
}

func (h *RecordHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	src := r.Body
	if h.maxBody > 0 {
		src = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	return io.ReadAll(src)
}

func (h *RecordHandler) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		schemaErr     *app.SchemaError
		decodeErr     *app.DecodeError
		validationErr *app.ValidationError
	)

	switch {
	case errors.As(err, &schemaErr):
		jsonapi.WriteError(w, jsonapi.ErrUnknownType(schemaErr.Type))

	case errors.As(err, &decodeErr):
		jsonapi.WriteBadRequest(w, decodeErr.Err.Error())

	case errors.As(err, &validationErr):
		errs := make([]jsonapi.Error, len(validationErr.Outcome))
		for i, v := range validationErr.Outcome {
			errs[i] = jsonapi.ErrValidation(v.Field, v.String())
		}
		jsonapi.WriteError(w, errs...)

	default:
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("submission failed")
		jsonapi.WriteInternalError(w, "Failed to publish data")
	}
}

// Publisher is the read side of the topic registry.
type Publisher interface {
	State() registry.State
	Published() uint64
}

// RequestCounter reports how many API requests were served.
type RequestCounter interface {
	Requests() uint64
}

// HealthDeps contains dependencies for HealthHandler.
type HealthDeps struct {
	Publisher   Publisher
	Requests    RequestCounter
	Clock       ports.Clock
	SourceID    string
	RecordTypes int
}

// HealthHandler serves liveness and status.
type HealthHandler struct {
	deps HealthDeps
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(deps HealthDeps) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Liveness always reports healthy.
//
//	@Summary		Liveness check
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/api/v1/health [get]
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	jsonapi.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().Unix(),
	})
}

// Status reports publisher state and counters.
//
//	@Summary		Gateway status
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/api/v1/status [get]
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	jsonapi.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:            "ok",
		PublisherStatus:   h.deps.Publisher.State().String(),
		PublishedMessages: h.deps.Publisher.Published(),
		APIRequests:       h.deps.Requests.Requests(),
		SourceID:          h.deps.SourceID,
		RecordTypes:       h.deps.RecordTypes,
	})
}

func (h *HealthHandler) now() time.Time {
	if h.deps.Clock == nil {
		return time.Now()
	}
	return h.deps.Clock.Now()
}
