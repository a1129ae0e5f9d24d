// Package ingress is the query surface: it resolves (place, tour type)
// requests against the generation state and enqueues work for misses.
package ingress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tourgen/pkg/model"
	"tourgen/pkg/pipeline"
	"tourgen/pkg/preview"
	"tourgen/pkg/queue"
	"tourgen/pkg/request"
	"tourgen/pkg/store"
)

// APIError is the structured error surfaced to callers. Internal detail
// stays in the logs; the message here is safe for the public surface.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewAPIError creates a caller-facing error.
func NewAPIError(code int, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// ResolveRequest is one tour lookup. PlaceInfo is optional; when absent and
// needed, the place-details collaborator fills it in.
type ResolveRequest struct {
	PlaceID   string
	TourType  string
	PlaceInfo *model.PlaceInfo
}

// EnqueueAck acknowledges that generation was requested but is not done.
type EnqueueAck struct {
	PlaceID   string                 `json:"place_id"`
	TourType  model.TourType         `json:"tour_type"`
	Status    model.GenerationStatus `json:"status"`
	RequestID string                 `json:"request_id"`
}

// Resolution is either a finished tour or an enqueue acknowledgment.
type Resolution struct {
	Tour *model.Tour `json:"tour,omitempty"`
	Ack  *EnqueueAck `json:"ack,omitempty"`
}

// Service resolves tour requests.
type Service struct {
	store  store.TourStore
	pub    queue.Publisher
	source pipeline.PlaceSource
	gate   *preview.Gate
}

// New creates the ingress service.
func New(ts store.TourStore, pub queue.Publisher, source pipeline.PlaceSource, gate *preview.Gate) *Service {
	return &Service{store: ts, pub: pub, source: source, gate: gate}
}

// Resolve returns the assembled tour when generation has completed, and
// otherwise enqueues a generation message and acknowledges. A completed hit
// never publishes.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*Resolution, error) {
	tourType, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Get(ctx, req.PlaceID, tourType)
	if err != nil {
		slog.Error("Record lookup failed", "place_id", req.PlaceID, "tour_type", tourType, "error", err)
		return nil, NewAPIError(http.StatusInternalServerError, "internal error")
	}
	if rec != nil && rec.Status == model.StatusCompleted {
		return &Resolution{Tour: rec.Tour()}, nil
	}

	info, err := s.placeInfo(ctx, req, rec)
	if err != nil {
		return nil, err
	}

	msg := &queue.GenerationMessage{
		PlaceID:   req.PlaceID,
		TourType:  tourType,
		PlaceInfo: *info,
		RequestID: uuid.NewString(),
	}
	if err := s.pub.Publish(ctx, queue.QueuePhotoRetrieval, msg); err != nil {
		slog.Error("Failed to enqueue generation", "place_id", req.PlaceID, "tour_type", tourType, "error", err)
		return nil, NewAPIError(http.StatusInternalServerError, "internal error")
	}

	status := model.StatusNotStarted
	if rec != nil {
		status = rec.Status
	}
	return &Resolution{Ack: &EnqueueAck{
		PlaceID:   req.PlaceID,
		TourType:  tourType,
		Status:    status,
		RequestID: msg.RequestID,
	}}, nil
}

// ResolvePreview serves the anonymous preview surface. Ineligible keys are
// indistinguishable from missing content; eligible but unfinished keys are
// reported as still generating.
func (s *Service) ResolvePreview(ctx context.Context, req ResolveRequest) (*Resolution, error) {
	tourType, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	eligible, err := s.gate.Eligible(ctx, req.PlaceID, tourType)
	if err != nil {
		slog.Error("Preview gate check failed", "place_id", req.PlaceID, "tour_type", tourType, "error", err)
		return nil, NewAPIError(http.StatusInternalServerError, "internal error")
	}
	if !eligible {
		return nil, NewAPIError(http.StatusNotFound, "tour not available")
	}

	rec, err := s.store.Get(ctx, req.PlaceID, tourType)
	if err != nil {
		slog.Error("Record lookup failed", "place_id", req.PlaceID, "tour_type", tourType, "error", err)
		return nil, NewAPIError(http.StatusInternalServerError, "internal error")
	}
	if rec == nil || rec.Status != model.StatusCompleted {
		return nil, NewAPIError(http.StatusNotFound, "tour is still generating")
	}
	return &Resolution{Tour: rec.Tour()}, nil
}

func (s *Service) validate(req ResolveRequest) (model.TourType, error) {
	if req.PlaceID == "" {
		return "", NewAPIError(http.StatusBadRequest, "place_id is required")
	}
	tourType, err := model.ParseTourType(req.TourType)
	if err != nil {
		return "", NewAPIError(http.StatusBadRequest, err.Error())
	}
	return tourType, nil
}

func (s *Service) placeInfo(ctx context.Context, req ResolveRequest, rec *model.GenerationRecord) (*model.PlaceInfo, error) {
	if req.PlaceInfo != nil {
		return req.PlaceInfo, nil
	}
	if rec != nil && rec.PlaceInfo.Name != "" {
		return &rec.PlaceInfo, nil
	}

	info, _, err := s.source.GetPlaceDetails(ctx, req.PlaceID)
	if err != nil {
		var se *request.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, NewAPIError(http.StatusNotFound, "place not found")
		}
		slog.Error("Place details fetch failed", "place_id", req.PlaceID, "error", err)
		return nil, NewAPIError(http.StatusInternalServerError, "internal error")
	}
	info.RetrievedAt = time.Now().UTC()
	return info, nil
}
