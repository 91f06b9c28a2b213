// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies the author of a message. The zero value means "no role"
// and only appears on deltas that continue an existing turn.
type Role uint8

const (
	RoleNone Role = iota
	RoleUser
	RoleAssistant
)

// roleWire is the single source of truth for the wire spelling of each role.
var roleWire = map[Role]string{
	RoleUser:      "user",
	RoleAssistant: "assistant",
}

// wireRole is the inverse of roleWire.
var wireRole = map[string]Role{
	"user":      RoleUser,
	"assistant": RoleAssistant,
}

// ErrUnknownRole is returned when a wire value is not in the role table.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole maps a wire value to a Role.
func ParseRole(s string) (Role, error) {
	r, ok := wireRole[s]
	if !ok {
		return RoleNone, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// String returns the wire spelling of the role, or "" for RoleNone.
func (r Role) String() string {
	return roleWire[r]
}

// IsValid reports whether r is a concrete role.
func (r Role) IsValid() bool {
	_, ok := roleWire[r]
	return ok
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return "Unknown"
	}
}

// MarshalJSON encodes the role using the wire table.
func (r Role) MarshalJSON() ([]byte, error) {
	s, ok := roleWire[r]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, r)
	}
	return json.Marshal(s)
}

// UnmarshalJSON decodes a wire value through the role table.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
