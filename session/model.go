package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CurrentSchemaVersion is written into every persisted credential record.
const CurrentSchemaVersion = 1

// Cookie is the persisted form of one credential cookie.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"httpOnly,omitempty"`
}

// FromHTTP converts a cookie received from the service. MaxAge takes precedence over Expires.
func FromHTTP(c *http.Cookie, now time.Time) Cookie {
	out := Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
	switch {
	case c.MaxAge > 0:
		out.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
	case c.MaxAge < 0:
		out.Expires = time.Unix(1, 0)
	}
	return out
}

// HTTP converts c back into a cookie for a jar.
func (c Cookie) HTTP() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
}

// Expired reports whether c has an expiry at or before now. Session cookies never expire here.
func (c Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

func (c Cookie) key() string {
	return c.Domain + ";" + c.Path + ";" + c.Name
}

type record struct {
	SchemaVersion int      `json:"v"`
	Cookies       []Cookie `json:"cookies"`
}

func encode(cookies []Cookie) ([]byte, error) {
	return json.Marshal(record{SchemaVersion: CurrentSchemaVersion, Cookies: cookies})
}

func decode(data []byte) ([]Cookie, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if rec.SchemaVersion < 1 || rec.SchemaVersion > CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, rec.SchemaVersion)
	}
	return rec.Cookies, nil
}

// live drops expired cookies.
func live(cookies []Cookie, now time.Time) []Cookie {
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		if !c.Expired(now) {
			out = append(out, c)
		}
	}
	return out
}

// latestExpiry returns the furthest expiry, or zero when any cookie lives for the session only.
func latestExpiry(cookies []Cookie) time.Time {
	var latest time.Time
	for _, c := range cookies {
		if c.Expires.IsZero() {
			return time.Time{}
		}
		if c.Expires.After(latest) {
			latest = c.Expires
		}
	}
	return latest
}
