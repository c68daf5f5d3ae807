package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, which keeps
// connection ids and room ids roughly ordered inside their DynamoDB partitions.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
