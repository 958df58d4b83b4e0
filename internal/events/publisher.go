// Package events publishes registry events after mutations commit.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/lms-registry/internal/models"
)

const (
	DefaultTopic  = "lms.registry.events"
	EventSource   = "lms-registry"
	EventVersion  = "1.0"
	MetadataType  = "event_type"
	MetadataTrace = "request_id"
)

type EventPublisher interface {
	Publish(ctx context.Context, event *models.RegistryEvent) error
	Close() error
}

// NewEvent stamps a fresh id and timestamp on a registry event.
func NewEvent(eventType models.EventType, data interface{}) *models.RegistryEvent {
	return &models.RegistryEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type requestIDKey struct{}

// WithRequestID carries the originating request id into published metadata.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}
