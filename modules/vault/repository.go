package vault

import (
	"context"

	"github.com/google/uuid"

	"github.com/lockboxhq/lockbox/pkg/blobcrypt"
)

// Repository persists contexts and records. Implementations must scope every
// lookup and mutation by owner and return ErrNotFound for rows that do not
// exist or belong to someone else, and ErrNameTaken when a context name
// collides within an owner.
type Repository interface {
	CreateContext(ctx context.Context, ec Context) error
	GetContext(ctx context.Context, ownerID, contextID uuid.UUID) (Context, error)
	ListContexts(ctx context.Context, ownerID uuid.UUID) ([]Context, error)
	RenameContext(ctx context.Context, ownerID, contextID uuid.UUID, name string) error
	// DeleteContext removes the context and everything stored under it.
	DeleteContext(ctx context.Context, ownerID, contextID uuid.UUID) error

	// RotateContext atomically replaces the context's verification token and
	// re-encrypts every record via reencrypt. Either all rows change or none
	// do; a failure from reencrypt aborts the whole rotation.
	RotateContext(ctx context.Context, ownerID, contextID uuid.UUID, token blobcrypt.Blob, reencrypt func(blobcrypt.Blob) (blobcrypt.Blob, error)) error

	CreateRecord(ctx context.Context, rec Record) error
	GetRecord(ctx context.Context, ownerID, contextID, recordID uuid.UUID) (Record, error)
	ListRecords(ctx context.Context, ownerID, contextID uuid.UUID, offset, limit int) ([]Record, error)
	CountRecords(ctx context.Context, ownerID, contextID uuid.UUID) (int, error)
	UpdateRecord(ctx context.Context, ownerID, contextID, recordID uuid.UUID, blob blobcrypt.Blob) error
	DeleteRecord(ctx context.Context, ownerID, contextID, recordID uuid.UUID) error
}
