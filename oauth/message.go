package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultMessageType tags popup completion messages.
const DefaultMessageType = "oauth-callback"

// ErrMalformedMessage is returned for payloads that are not a JSON message object.
var ErrMalformedMessage = errors.New("malformed oauth message")

// Message is the payload posted from a popup to its opener.
type Message struct {
	Type     string `json:"type"`
	Token    string `json:"token"`
	Provider string `json:"provider,omitempty"`
}

// EncodeMessage renders msg as JSON.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON message. Shape checks beyond JSON decoding are left
// to the receiver.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return msg, nil
}
