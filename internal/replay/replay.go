// Package replay re-executes a logged request against a live provider and
// compares the replay with the original.
//
// A replay moves through LoadingOriginal, ResolvingModel, Dispatching,
// Recording and Done. Only the first two states can fail without writing a
// record; once dispatch begins, exactly one new record is appended whatever
// the provider outcome.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/zulandar/sightline/internal/models"
	"github.com/zulandar/sightline/internal/registry"
	"github.com/zulandar/sightline/internal/store"
	"gorm.io/datatypes"
)

// State is a step of the replay sequence.
type State string

const (
	StateLoadingOriginal State = "loading_original"
	StateResolvingModel  State = "resolving_model"
	StateDispatching     State = "dispatching"
	StateRecording       State = "recording"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// RequestStore loads originals and appends replay records.
type RequestStore interface {
	Get(ctx context.Context, id uint, environmentID string) (*models.RequestRecord, error)
	Append(ctx context.Context, rec *models.RequestRecord) error
}

// Registry resolves a model identifier and the provider that serves it.
type Registry interface {
	Model(ctx context.Context, id string) (*models.Model, error)
	Provider(ctx context.Context, id string) (*models.Provider, error)
}

// Request identifies the original to replay and optional overrides.
type Request struct {
	OriginalID      uint
	EnvironmentID   string
	ModelOverride   string
	RouteIDOverride string
}

// Result is the newly recorded replay and its comparison with the original.
type Result struct {
	Record     *models.RequestRecord `json:"request"`
	Comparison Comparison            `json:"comparison"`
}

var placeholderFallbacks atomic.Int64

// PlaceholderFallbacks returns how many replays in this process substituted
// the placeholder message for missing original messages.
func PlaceholderFallbacks() int64 {
	return placeholderFallbacks.Load()
}

// Orchestrator sequences a replay. It holds no per-call state and is safe
// for concurrent use.
type Orchestrator struct {
	store      RequestStore
	registry   Registry
	dispatcher Dispatcher
	newID      func() string
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(s RequestStore, r Registry, d Dispatcher) *Orchestrator {
	return &Orchestrator{
		store:      s,
		registry:   r,
		dispatcher: d,
		newID:      func() string { return uuid.New().String() },
	}
}

// Replay re-executes the original request and records the attempt.
func (o *Orchestrator) Replay(ctx context.Context, req Request) (*Result, error) {
	entry := log.WithFields(log.Fields{
		"original_id":    req.OriginalID,
		"environment_id": req.EnvironmentID,
	})
	entry.WithFields(log.Fields{
		"event":          "replay_started",
		"model_override": req.ModelOverride,
	}).Info("Replay started")

	entry.WithField("state", StateLoadingOriginal).Debug("replay state")
	original, err := o.store.Get(ctx, req.OriginalID, req.EnvironmentID)
	if err != nil {
		entry.WithFields(log.Fields{"state": StateFailed, "error": err.Error()}).Info("replay failed")
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: request %d in environment %q", ErrNotFound, req.OriginalID, req.EnvironmentID)
		}
		return nil, fmt.Errorf("replay: load original %d: %w", req.OriginalID, err)
	}

	modelID := original.Model
	if req.ModelOverride != "" {
		modelID = req.ModelOverride
	}

	entry.WithFields(log.Fields{"state": StateResolvingModel, "model": modelID}).Debug("replay state")
	model, provider, err := o.resolve(ctx, modelID)
	if err != nil {
		entry.WithFields(log.Fields{"state": StateFailed, "error": err.Error()}).Info("replay failed")
		return nil, err
	}

	meta := original.Meta()
	payload, usedPlaceholder := BuildPayload(meta, modelID)
	if usedPlaceholder {
		placeholderFallbacks.Add(1)
		entry.WithFields(log.Fields{
			"event": "placeholder_messages",
			"model": modelID,
		}).Warn("Original request has no messages; replaying with placeholder")
	}

	// The attempt must be recorded even if the caller goes away mid-flight.
	dctx := context.WithoutCancel(ctx)

	entry.WithFields(log.Fields{"state": StateDispatching, "provider": provider.ID}).Debug("replay state")
	res := o.dispatcher.Dispatch(dctx, provider, payload)
	entry.WithFields(log.Fields{
		"event":         "dispatch_completed",
		"provider":      provider.ID,
		"provider_type": provider.Type,
		"status":        res.Status,
		"error_code":    res.ErrorCode,
		"attempts":      res.Attempts,
		"duration_ms":   res.Duration.Milliseconds(),
	}).Info("Replay dispatch completed")

	entry.WithField("state", StateRecording).Debug("replay state")
	rec := o.record(original, req, model, provider, payload, res, usedPlaceholder)
	if err := o.store.Append(dctx, rec); err != nil {
		entry.WithFields(log.Fields{
			"event": "replay_record_failed",
			"error": err.Error(),
		}).Error("Failed to record replay")
		return nil, fmt.Errorf("%w: record replay of %d: %w", ErrStorage, original.ID, err)
	}

	entry.WithFields(log.Fields{
		"event":      "replay_recorded",
		"state":      StateDone,
		"replay_id":  rec.ID,
		"request_id": rec.RequestID,
	}).Info("Replay recorded")

	return &Result{
		Record:     rec,
		Comparison: Compare(original, rec),
	}, nil
}

// resolve looks up the model and then its provider. Missing or inactive
// entries are reported as ErrBadRequest naming which lookup failed.
func (o *Orchestrator) resolve(ctx context.Context, modelID string) (*models.Model, *models.Provider, error) {
	model, err := o.registry.Model(ctx, modelID)
	if err != nil {
		if errors.Is(err, registry.ErrModelNotFound) {
			return nil, nil, fmt.Errorf("%w: model %q not found or inactive", ErrBadRequest, modelID)
		}
		return nil, nil, fmt.Errorf("replay: resolve model %q: %w", modelID, err)
	}
	provider, err := o.registry.Provider(ctx, model.ProviderID)
	if err != nil {
		if errors.Is(err, registry.ErrProviderNotFound) {
			return nil, nil, fmt.Errorf("%w: provider %q for model %q not found or inactive", ErrBadRequest, model.ProviderID, modelID)
		}
		return nil, nil, fmt.Errorf("replay: resolve provider %q: %w", model.ProviderID, err)
	}
	return model, provider, nil
}

// record builds the new request record for a dispatched replay.
func (o *Orchestrator) record(original *models.RequestRecord, req Request, model *models.Model, provider *models.Provider, payload ChatRequest, res DispatchResult, usedPlaceholder bool) *models.RequestRecord {
	meta := payload.Metadata()
	originalID := original.ID
	meta.ReplayOf = &originalID
	meta.PlaceholderMessages = usedPlaceholder
	if res.Status == models.StatusSuccess {
		meta.ResponseContent = res.Content
	}
	if req.ModelOverride != "" {
		override := req.ModelOverride
		meta.ModelOverride = &override
	}

	routeID := original.RouteID
	if req.RouteIDOverride != "" {
		override := req.RouteIDOverride
		meta.RouteIDOverride = &override
		routeID = &override
	}

	cost := CalculateCost(model, res.InputTokens, res.OutputTokens)
	started := res.StartedAt
	if started.IsZero() {
		started = time.Now().Add(-res.Duration)
	}
	completed := started.Add(res.Duration)

	return &models.RequestRecord{
		RequestID:     o.newID(),
		EnvironmentID: original.EnvironmentID,
		RouteID:       routeID,
		Model:         model.ID,
		ProviderID:    provider.ID,
		InputTokens:   res.InputTokens,
		OutputTokens:  res.OutputTokens,
		InputCostUSD:  cost.InputUSD,
		OutputCostUSD: cost.OutputUSD,
		TotalCostUSD:  cost.TotalUSD,
		DurationMs:    res.Duration.Milliseconds(),
		Status:        res.Status,
		ErrorCode:     res.ErrorCode,
		ErrorMessage:  res.ErrorMessage,
		ReplayOfID:    &originalID,
		Metadata:      datatypes.NewJSONType(meta),
		StartedAt:     started,
		CompletedAt:   &completed,
	}
}
