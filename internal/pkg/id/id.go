package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, which keeps
// listing and request pages in insertion order without an extra index.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
