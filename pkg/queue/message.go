package queue

import (
	"encoding/json"
	"fmt"

	"tourgen/pkg/model"
)

// Queue names for the three pipeline stages. Each stage consumes its own
// queue and publishes to the next one.
const (
	QueuePhotoRetrieval   = "photo-retrieval"
	QueueScriptGeneration = "script-generation"
	QueueAudioGeneration  = "audio-generation"
)

// MessageVersion is the current wire schema version. Consumers reject
// versions they do not understand instead of guessing.
const MessageVersion = 1

// GenerationMessage is the hand-off payload between pipeline stages. It
// carries the full place snapshot so downstream stages never re-fetch.
type GenerationMessage struct {
	Version   int             `json:"version"`
	PlaceID   string          `json:"place_id"`
	TourType  model.TourType  `json:"tour_type"`
	PlaceInfo model.PlaceInfo `json:"place_info"`
	RequestID string          `json:"request_id,omitempty"`
}

// Encode serializes the message for the wire, stamping the current version.
func (m *GenerationMessage) Encode() ([]byte, error) {
	m.Version = MessageVersion
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

// DecodeMessage parses a wire payload and validates it.
func DecodeMessage(data []byte) (*GenerationMessage, error) {
	var m GenerationMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if m.Version != MessageVersion {
		return nil, fmt.Errorf("unsupported message version %d", m.Version)
	}
	if m.PlaceID == "" {
		return nil, fmt.Errorf("message missing place_id")
	}
	if _, err := model.ParseTourType(string(m.TourType)); err != nil {
		return nil, err
	}
	return &m, nil
}
