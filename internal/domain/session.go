package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// UnreportedDevice is recorded when a client sends no device information.
const UnreportedDevice = "Unreported Device"

// Session is a refresh-token record. The token itself never leaves the
// registry except in the response to the login that created it.
type Session struct {
	ID         uuid.UUID `json:"id"`
	Token      string    `json:"-"`
	UserID     uuid.UUID `json:"user_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
}

// IsLive reports whether the session is still usable at now.
func (s *Session) IsLive(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// OlderThan orders sessions by creation time, breaking ties by the lower id.
func (s *Session) OlderThan(other *Session) bool {
	if !s.CreatedAt.Equal(other.CreatedAt) {
		return s.CreatedAt.Before(other.CreatedAt)
	}
	return bytes.Compare(s.ID[:], other.ID[:]) < 0
}
