// Package utils provides message construction helpers shared by the
// watermill handlers and the queue workers.
package utils

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// TopicMetadataKey carries the destination topic on result messages;
// the router's publisher decorator routes on it.
const TopicMetadataKey = "topic"

// Helpers creates event messages and unmarshals payloads.
type Helpers interface {
	// CreateResultMessage builds a message for topic carrying payload,
	// propagating the correlation ID from the originating message.
	CreateResultMessage(original *message.Message, payload any, topic string) (*message.Message, error)
	// CreateNewMessage builds a message for topic with a fresh
	// correlation ID.
	CreateNewMessage(payload any, topic string) (*message.Message, error)
	// UnmarshalPayload decodes a message payload into target.
	UnmarshalPayload(msg *message.Message, target any) error
}

// MessageHelpers is the default Helpers implementation.
type MessageHelpers struct{}

var _ Helpers = (*MessageHelpers)(nil)

// NewHelpers returns the default Helpers implementation.
func NewHelpers() *MessageHelpers {
	return &MessageHelpers{}
}

func (*MessageHelpers) CreateResultMessage(original *message.Message, payload any, topic string) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(TopicMetadataKey, topic)
	if original != nil {
		middleware.SetCorrelationID(middleware.MessageCorrelationID(original), msg)
	}
	return msg, nil
}

func (h *MessageHelpers) CreateNewMessage(payload any, topic string) (*message.Message, error) {
	msg, err := h.CreateResultMessage(nil, payload, topic)
	if err != nil {
		return nil, err
	}
	middleware.SetCorrelationID(watermill.NewUUID(), msg)
	return msg, nil
}

func (*MessageHelpers) UnmarshalPayload(msg *message.Message, target any) error {
	if err := json.Unmarshal(msg.Payload, target); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}
