package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lockboxhq/lockbox/pkg/accessguard"
	"github.com/lockboxhq/lockbox/pkg/blobcrypt"
	"github.com/lockboxhq/lockbox/pkg/keymaterial"
	"github.com/lockboxhq/lockbox/pkg/keyproof"
	"github.com/lockboxhq/lockbox/pkg/lockout"
	"github.com/lockboxhq/lockbox/pkg/logger"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Service implements the vault operations over a Repository and a lockout
// limiter. All methods are safe for concurrent use.
type Service struct {
	repo    Repository
	limiter *lockout.Limiter
	weak    keymaterial.WeakFunc
	log     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger. Nil loggers are ignored.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithWeakFunc replaces the weak-secret predicate applied at context creation
// and key rotation.
func WithWeakFunc(weak keymaterial.WeakFunc) ServiceOption {
	return func(s *Service) { s.weak = weak }
}

// NewService creates the vault service.
func NewService(repo Repository, limiter *lockout.Limiter, opts ...ServiceOption) *Service {
	s := &Service{
		repo:    repo,
		limiter: limiter,
		weak:    keymaterial.DefaultWeak,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateContext registers a new encryption context for the owner. The secret
// is validated, turned into a verification token and discarded; it is never
// stored.
func (s *Service) CreateContext(ctx context.Context, ownerID uuid.UUID, name, secret string) (Context, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Context{}, err
	}
	if err := keymaterial.ValidateSecret(secret, s.weak); err != nil {
		return Context{}, err
	}

	token, err := keyproof.CreateToken(keymaterial.Derive(secret))
	if err != nil {
		return Context{}, fmt.Errorf("create verification token: %w", err)
	}

	ec := Context{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		Name:              name,
		VerificationToken: token,
	}
	if err := s.repo.CreateContext(ctx, ec); err != nil {
		return Context{}, err
	}

	s.log.InfoContext(ctx, "encryption context created",
		logger.OwnerID(ownerID.String()), logger.ContextID(ec.ID.String()))
	return ec, nil
}

// ListContexts returns all contexts belonging to the owner.
func (s *Service) ListContexts(ctx context.Context, ownerID uuid.UUID) ([]Context, error) {
	return s.repo.ListContexts(ctx, ownerID)
}

// GetContext returns one context by id, scoped to the owner.
func (s *Service) GetContext(ctx context.Context, ownerID, contextID uuid.UUID) (Context, error) {
	return s.repo.GetContext(ctx, ownerID, contextID)
}

// RenameContext changes a context's name. The secret is not required; the
// name is metadata, not protected content.
func (s *Service) RenameContext(ctx context.Context, ownerID, contextID uuid.UUID, name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	return s.repo.RenameContext(ctx, ownerID, contextID, name)
}

// DeleteContext removes a context and all records stored under it.
func (s *Service) DeleteContext(ctx context.Context, ownerID, contextID uuid.UUID) error {
	if err := s.repo.DeleteContext(ctx, ownerID, contextID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "encryption context deleted",
		logger.OwnerID(ownerID.String()), logger.ContextID(contextID.String()))
	return nil
}

// VerifyKey proves that secret is the context's key without touching any
// records. Failures count against the caller's lockout budget.
func (s *Service) VerifyKey(ctx context.Context, ownerID, contextID uuid.UUID, secret, origin string) error {
	_, err := s.guard(ctx, ownerID, contextID, secret, origin)
	return err
}

// RotateKey re-encrypts every record in the context under a new secret and
// replaces the verification token, all in one transaction. The old secret
// must verify first and the rotation counts as a guarded access.
func (s *Service) RotateKey(ctx context.Context, ownerID, contextID uuid.UUID, oldSecret, newSecret, origin string) error {
	if err := keymaterial.ValidateSecret(newSecret, s.weak); err != nil {
		return err
	}
	if oldSecret == newSecret {
		return ErrSameSecret
	}

	oldKey, err := s.guard(ctx, ownerID, contextID, oldSecret, origin)
	if err != nil {
		return err
	}

	newKey := keymaterial.Derive(newSecret)
	token, err := keyproof.CreateToken(newKey)
	if err != nil {
		return fmt.Errorf("create verification token: %w", err)
	}

	err = s.repo.RotateContext(ctx, ownerID, contextID, token, func(blob blobcrypt.Blob) (blobcrypt.Blob, error) {
		plaintext, err := blobcrypt.Decrypt(blob, oldKey)
		if err != nil {
			return blobcrypt.Blob{}, err
		}
		return blobcrypt.Encrypt(plaintext, newKey)
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "encryption key rotated",
		logger.OwnerID(ownerID.String()), logger.ContextID(contextID.String()))
	return nil
}

// StoreRecord encrypts text under the context's key and persists it. The
// secret is verified through the guard before any encryption happens.
func (s *Service) StoreRecord(ctx context.Context, ownerID, contextID uuid.UUID, secret, text, origin string) (Record, error) {
	if err := validateText(text); err != nil {
		return Record{}, err
	}

	key, err := s.guard(ctx, ownerID, contextID, secret, origin)
	if err != nil {
		return Record{}, err
	}

	blob, err := blobcrypt.Encrypt(text, key)
	if err != nil {
		return Record{}, fmt.Errorf("encrypt record: %w", err)
	}

	rec := Record{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		ContextID: contextID,
		Blob:      blob,
	}
	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		return Record{}, err
	}

	s.log.InfoContext(ctx, "record stored",
		logger.OwnerID(ownerID.String()),
		logger.ContextID(contextID.String()),
		logger.RecordID(rec.ID.String()))
	return rec, nil
}

// Records verifies the secret once and returns one decrypted page of the
// context's records, newest first.
func (s *Service) Records(ctx context.Context, ownerID, contextID uuid.UUID, secret, origin string, offset, limit int) (RecordPage, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	key, err := s.guard(ctx, ownerID, contextID, secret, origin)
	if err != nil {
		return RecordPage{}, err
	}

	total, err := s.repo.CountRecords(ctx, ownerID, contextID)
	if err != nil {
		return RecordPage{}, err
	}

	recs, err := s.repo.ListRecords(ctx, ownerID, contextID, offset, limit)
	if err != nil {
		return RecordPage{}, err
	}

	page := RecordPage{
		Records: make([]RecordText, 0, len(recs)),
		Total:   total,
		Offset:  offset,
		Limit:   limit,
	}
	for _, rec := range recs {
		text, err := blobcrypt.Decrypt(rec.Blob, key)
		if err != nil {
			return RecordPage{}, fmt.Errorf("decrypt record %s: %w", rec.ID, err)
		}
		page.Records = append(page.Records, RecordText{
			ID:        rec.ID,
			Text:      text,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return page, nil
}

// GetRecord verifies the secret and returns one decrypted record.
func (s *Service) GetRecord(ctx context.Context, ownerID, contextID, recordID uuid.UUID, secret, origin string) (RecordText, error) {
	key, err := s.guard(ctx, ownerID, contextID, secret, origin)
	if err != nil {
		return RecordText{}, err
	}

	rec, err := s.repo.GetRecord(ctx, ownerID, contextID, recordID)
	if err != nil {
		return RecordText{}, err
	}

	text, err := blobcrypt.Decrypt(rec.Blob, key)
	if err != nil {
		return RecordText{}, fmt.Errorf("decrypt record %s: %w", rec.ID, err)
	}
	return RecordText{ID: rec.ID, Text: text, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt}, nil
}

// UpdateRecord replaces a record's text, re-encrypting under the context key.
func (s *Service) UpdateRecord(ctx context.Context, ownerID, contextID, recordID uuid.UUID, secret, text, origin string) error {
	if err := validateText(text); err != nil {
		return err
	}

	key, err := s.guard(ctx, ownerID, contextID, secret, origin)
	if err != nil {
		return err
	}

	blob, err := blobcrypt.Encrypt(text, key)
	if err != nil {
		return fmt.Errorf("encrypt record: %w", err)
	}
	return s.repo.UpdateRecord(ctx, ownerID, contextID, recordID, blob)
}

// DeleteRecord removes one record. No secret is required: deletion reveals
// nothing and ownership scoping alone gates it.
func (s *Service) DeleteRecord(ctx context.Context, ownerID, contextID, recordID uuid.UUID) error {
	return s.repo.DeleteRecord(ctx, ownerID, contextID, recordID)
}

// guard runs the lockout-and-verification sequence for one access attempt and
// returns the derived key on success. Secret shape errors are reported before
// the guard runs and never consume lockout attempts.
func (s *Service) guard(ctx context.Context, ownerID, contextID uuid.UUID, secret, origin string) ([]byte, error) {
	if err := keymaterial.ValidateSecret(secret, nil); err != nil {
		return nil, err
	}

	g := accessguard.New(s.limiter, accessguard.TokenSourceFunc(
		func(ctx context.Context, id string) (blobcrypt.Blob, error) {
			cid, err := uuid.Parse(id)
			if err != nil {
				return blobcrypt.Blob{}, accessguard.ErrTokenNotFound
			}
			ec, err := s.repo.GetContext(ctx, ownerID, cid)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return blobcrypt.Blob{}, accessguard.ErrTokenNotFound
				}
				return blobcrypt.Blob{}, err
			}
			return ec.VerificationToken, nil
		}))

	decision, err := g.Guard(ctx, origin, contextID.String(), secret)
	if err != nil {
		return nil, err
	}
	if decision.Allowed {
		return decision.Key, nil
	}

	switch decision.Reason {
	case accessguard.DenyBlocked:
		s.log.WarnContext(ctx, "access blocked by lockout",
			logger.OwnerID(ownerID.String()),
			logger.ContextID(contextID.String()),
			logger.Origin(origin))
		return nil, newAccessError(ErrLockedOut, decision.Status)
	case accessguard.DenyNotFound:
		return nil, ErrNotFound
	default:
		s.log.WarnContext(ctx, "key verification failed",
			logger.OwnerID(ownerID.String()),
			logger.ContextID(contextID.String()),
			logger.Origin(origin),
			slog.Int("remaining_attempts", decision.Status.RemainingAttempts))
		if decision.Status.Blocked {
			// The failure that crosses the threshold reports the block, not
			// one more invalid-key denial.
			return nil, newAccessError(ErrLockedOut, decision.Status)
		}
		return nil, newAccessError(ErrInvalidKey, decision.Status)
	}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < minNameLength {
		return "", ErrNameTooShort
	}
	if len(name) > maxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if len(text) > MaxPlaintextSize {
		return ErrTextTooLarge
	}
	return nil
}
