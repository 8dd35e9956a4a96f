// Package idgen generates the two kinds of identifier this module hands
// out: a short random suffix for the Façade's per-call request IDs (see
// the public operations in SPEC_FULL.md) and a UUIDv7 for tab/page IDs
// handed to the browser provisioner on Agent.Open.
package idgen

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// NanoID returns a Generator that produces base-36 IDs of the given
// length: the Façade's "random base-36 suffix" request-ID strategy.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		b := make([]byte, length)
		for i := range b {
			b[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(b)
	}
}

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, globally unique; used for the tab/page IDs passed to
// the browser provisioner so they sort by creation order in logs.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Default is the tab/page ID strategy: UUIDv7.
var Default Generator = UUIDv7()

// New produces a tab/page ID using the Default generator.
func New() string {
	return Default()
}
