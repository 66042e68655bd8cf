package cacheinfra

import "time"

// Entry is a cached payload together with its validity window.
type Entry struct {
	// Value holds the Go value for in-process stores.
	Value any
	// Raw holds the msgpack payload for serializing stores.
	Raw      []byte
	StoredAt time.Time
	TTL      time.Duration
}

// Valid reports whether now - StoredAt <= TTL.
func (e Entry) Valid(now time.Time) bool {
	return now.Sub(e.StoredAt) <= e.TTL
}

// Stats is the diagnostic view of a store.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Option tunes a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithNow replaces the clock used to stamp and check entries.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
