package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lockboxhq/lockbox/pkg/blobcrypt"
	pgdb "github.com/lockboxhq/lockbox/pkg/pg"
)

// PostgresRepository implements Repository on a pgx connection pool. Blobs
// are stored as JSONB in the wire format produced by blobcrypt.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository over pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateContext(ctx context.Context, ec Context) error {
	token, err := ec.VerificationToken.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal verification token: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO encryption_contexts (id, owner_id, name, verification_token)
		VALUES ($1, $2, $3, $4)`,
		ec.ID, ec.OwnerID, ec.Name, token)
	if err != nil {
		if pgdb.IsDuplicateKeyError(err) {
			return ErrNameTaken
		}
		return fmt.Errorf("insert context: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetContext(ctx context.Context, ownerID, contextID uuid.UUID) (Context, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, verification_token, created_at, updated_at
		FROM encryption_contexts
		WHERE id = $1 AND owner_id = $2`,
		contextID, ownerID)
	return scanContext(row)
}

func (r *PostgresRepository) ListContexts(ctx context.Context, ownerID uuid.UUID) ([]Context, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, name, verification_token, created_at, updated_at
		FROM encryption_contexts
		WHERE owner_id = $1
		ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	defer rows.Close()

	var out []Context
	for rows.Next() {
		ec, err := scanContext(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) RenameContext(ctx context.Context, ownerID, contextID uuid.UUID, name string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE encryption_contexts
		SET name = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2`,
		contextID, ownerID, name)
	if err != nil {
		if pgdb.IsDuplicateKeyError(err) {
			return ErrNameTaken
		}
		return fmt.Errorf("rename context: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteContext(ctx context.Context, ownerID, contextID uuid.UUID) error {
	// Records go with it via ON DELETE CASCADE.
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM encryption_contexts
		WHERE id = $1 AND owner_id = $2`,
		contextID, ownerID)
	if err != nil {
		return fmt.Errorf("delete context: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) RotateContext(ctx context.Context, ownerID, contextID uuid.UUID, token blobcrypt.Blob, reencrypt func(blobcrypt.Blob) (blobcrypt.Blob, error)) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Lock the context row so concurrent rotations serialize.
		var exists bool
		err := tx.QueryRow(ctx, `
			SELECT true FROM encryption_contexts
			WHERE id = $1 AND owner_id = $2
			FOR UPDATE`,
			contextID, ownerID).Scan(&exists)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock context: %w", err)
		}

		rows, err := tx.Query(ctx, `
			SELECT id, blob FROM records
			WHERE context_id = $1 AND owner_id = $2`,
			contextID, ownerID)
		if err != nil {
			return fmt.Errorf("load records: %w", err)
		}

		type rotated struct {
			id   uuid.UUID
			blob []byte
		}
		var updates []rotated
		for rows.Next() {
			var (
				id  uuid.UUID
				raw []byte
			)
			if err := rows.Scan(&id, &raw); err != nil {
				rows.Close()
				return fmt.Errorf("scan record: %w", err)
			}
			var blob blobcrypt.Blob
			if err := blob.UnmarshalJSON(raw); err != nil {
				rows.Close()
				return fmt.Errorf("decode record %s: %w", id, err)
			}
			next, err := reencrypt(blob)
			if err != nil {
				rows.Close()
				return fmt.Errorf("re-encrypt record %s: %w", id, err)
			}
			encoded, err := next.MarshalJSON()
			if err != nil {
				rows.Close()
				return fmt.Errorf("encode record %s: %w", id, err)
			}
			updates = append(updates, rotated{id: id, blob: encoded})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate records: %w", err)
		}

		for _, u := range updates {
			if _, err := tx.Exec(ctx, `
				UPDATE records SET blob = $2, updated_at = now()
				WHERE id = $1`,
				u.id, u.blob); err != nil {
				return fmt.Errorf("update record %s: %w", u.id, err)
			}
		}

		encodedToken, err := token.MarshalJSON()
		if err != nil {
			return fmt.Errorf("marshal verification token: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE encryption_contexts
			SET verification_token = $3, updated_at = now()
			WHERE id = $1 AND owner_id = $2`,
			contextID, ownerID, encodedToken); err != nil {
			return fmt.Errorf("update verification token: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepository) CreateRecord(ctx context.Context, rec Record) error {
	blob, err := rec.Blob.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal blob: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO records (id, owner_id, context_id, blob)
		VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.OwnerID, rec.ContextID, blob)
	if err != nil {
		if pgdb.IsForeignKeyViolationError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetRecord(ctx context.Context, ownerID, contextID, recordID uuid.UUID) (Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, context_id, blob, created_at, updated_at
		FROM records
		WHERE id = $1 AND context_id = $2 AND owner_id = $3`,
		recordID, contextID, ownerID)
	return scanRecord(row)
}

func (r *PostgresRepository) ListRecords(ctx context.Context, ownerID, contextID uuid.UUID, offset, limit int) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, context_id, blob, created_at, updated_at
		FROM records
		WHERE context_id = $1 AND owner_id = $2
		ORDER BY created_at DESC
		OFFSET $3 LIMIT $4`,
		contextID, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CountRecords(ctx context.Context, ownerID, contextID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM records
		WHERE context_id = $1 AND owner_id = $2`,
		contextID, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) UpdateRecord(ctx context.Context, ownerID, contextID, recordID uuid.UUID, blob blobcrypt.Blob) error {
	encoded, err := blob.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal blob: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE records SET blob = $4, updated_at = now()
		WHERE id = $1 AND context_id = $2 AND owner_id = $3`,
		recordID, contextID, ownerID, encoded)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteRecord(ctx context.Context, ownerID, contextID, recordID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM records
		WHERE id = $1 AND context_id = $2 AND owner_id = $3`,
		recordID, contextID, ownerID)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanContext(row pgx.Row) (Context, error) {
	var (
		ec  Context
		raw []byte
	)
	err := row.Scan(&ec.ID, &ec.OwnerID, &ec.Name, &raw, &ec.CreatedAt, &ec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Context{}, ErrNotFound
		}
		return Context{}, fmt.Errorf("scan context: %w", err)
	}
	if err := ec.VerificationToken.UnmarshalJSON(raw); err != nil {
		return Context{}, fmt.Errorf("decode verification token: %w", err)
	}
	return ec, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec Record
		raw []byte
	)
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.ContextID, &raw, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("scan record: %w", err)
	}
	if err := rec.Blob.UnmarshalJSON(raw); err != nil {
		return Record{}, fmt.Errorf("decode blob: %w", err)
	}
	return rec, nil
}
