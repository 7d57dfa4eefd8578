package goAuthClient

import "time"

// TokenState is the three-valued state of the session token.
type TokenState uint8

const (
	// TokenUnknown means no login or silent login has completed yet.
	TokenUnknown TokenState = iota
	// TokenAbsent means the session is confirmed logged out.
	TokenAbsent
	// TokenPresent means a token is held.
	TokenPresent
)

func (s TokenState) String() string {
	switch s {
	case TokenAbsent:
		return "absent"
	case TokenPresent:
		return "present"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the session for tooling and diagnostics.
type Status struct {
	State          TokenState `json:"state"`
	Authenticated  bool       `json:"authenticated"`
	Admin          bool       `json:"admin"`
	UserID         int64      `json:"user_id,omitempty"`
	Role           string     `json:"role,omitempty"`
	Scopes         []string   `json:"scopes,omitempty"`
	ExpiresAt      time.Time  `json:"expires_at,omitzero"`
	RenewalPending bool       `json:"renewal_pending"`
	// Epoch is the session generation. It grows on every logout or clear.
	Epoch uint64 `json:"epoch"`
}
