package session

import (
	"encoding/json"
	"errors"
	"time"
)

// StorageKey is the single persisted key, kept for parity with browser storage.
const StorageKey = "trustlayer_session"

// ErrUnauthenticated is returned when a device has no live session.
var ErrUnauthenticated = errors.New("unauthenticated")

// Record is the persisted "remember device" flag.
type Record struct {
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"-"`
}

// Live reports whether the record still authenticates at now.
func (r Record) Live(now time.Time) bool {
	return r.Valid && now.Before(r.ExpiresAt)
}

type wireRecord struct {
	Valid     bool  `json:"valid"`
	ExpiresAt int64 `json:"expiresAt"`
}

// MarshalJSON writes expiresAt as epoch milliseconds.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecord{Valid: r.Valid, ExpiresAt: r.ExpiresAt.UnixMilli()})
}

// UnmarshalJSON reads expiresAt from epoch milliseconds.
func (r *Record) UnmarshalJSON(b []byte) error {
	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	r.Valid = w.Valid
	r.ExpiresAt = time.UnixMilli(w.ExpiresAt)
	return nil
}
