package vault

import (
	"time"

	"github.com/google/uuid"

	"github.com/lockboxhq/lockbox/pkg/blobcrypt"
)

// MaxPlaintextSize caps the size of a single record's text, in bytes.
const MaxPlaintextSize = 1 << 20

const (
	minNameLength = 3
	maxNameLength = 255
)

// Context is a named encryption scope. It never holds the secret; the
// verification token is the only persisted artifact derived from it.
type Context struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	Name              string
	VerificationToken blobcrypt.Blob
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Record is a single encrypted text entry stored under a context.
type Record struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	ContextID uuid.UUID
	Blob      blobcrypt.Blob
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordText is a record with its plaintext recovered, returned by read
// operations after the caller's secret has been verified.
type RecordText struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordPage is one page of decrypted records plus the total count in the
// context, so clients can paginate.
type RecordPage struct {
	Records []RecordText `json:"records"`
	Total   int          `json:"total"`
	Offset  int          `json:"offset"`
	Limit   int          `json:"limit"`
}
