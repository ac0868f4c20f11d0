package net

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client message types.
const (
	TypeHello = "hello" // bind the session to a player
	TypeKey   = "key"   // key down/up for the bound player
	TypeAI    = "ai"    // toggle AI controllers
)

// Server message types.
const (
	TypeWelcome  = "welcome"
	TypeSnapshot = "snapshot"
	TypeError    = "error"
)

var ErrBadMessage = errors.New("bad client message")

// ClientMessage is every message a client may send. Fields not used by the
// message's type are ignored.
type ClientMessage struct {
	Type   string `json:"type"`
	Player string `json:"player,omitempty"`
	Code   string `json:"code,omitempty"`
	Down   bool   `json:"down,omitempty"`
	Active *bool  `json:"active,omitempty"`
}

// DecodeClient parses and checks one client frame.
func DecodeClient(b []byte) (ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	switch m.Type {
	case TypeHello:
		if m.Player == "" {
			return m, fmt.Errorf("%w: hello without player", ErrBadMessage)
		}
	case TypeKey:
		if m.Code == "" {
			return m, fmt.Errorf("%w: key without code", ErrBadMessage)
		}
	case TypeAI:
		if m.Active == nil {
			return m, fmt.Errorf("%w: ai without active", ErrBadMessage)
		}
	default:
		return m, fmt.Errorf("%w: unknown type %q", ErrBadMessage, m.Type)
	}
	return m, nil
}

type WelcomeMessage struct {
	Type    string `json:"type"`
	Session uint64 `json:"session"`
	Player  string `json:"player"`
	Level   string `json:"level"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// CharacterView is one character in a snapshot.
type CharacterView struct {
	Name       string     `json:"name"`
	Controller string     `json:"controller"`
	Position   [3]float64 `json:"pos"`
	Yaw        float64    `json:"yaw"`
	State      string     `json:"state,omitempty"`
	Bob        float64    `json:"bob"`
	Color      string     `json:"color,omitempty"`
}

type SnapshotMessage struct {
	Type       string          `json:"type"`
	Tick       uint64          `json:"tick"`
	AIActive   bool            `json:"ai_active"`
	Characters []CharacterView `json:"characters"`
}

// Encode marshals a server message.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
