package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/google/uuid"
)

// CredentialRepository handles credential-related database operations.
type CredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewCredentialRepository(db *sql.DB, logger *slog.Logger) *CredentialRepository {
	return &CredentialRepository{db: db, logger: logger}
}

func (r *CredentialRepository) Credentials(ctx context.Context) ([]*models.Credential, error) {
	query := `SELECT id, title, platform, data, created_at FROM credentials ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var credentials []*models.Credential

	for rows.Next() {
		credential, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}

		credentials = append(credentials, credential)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credentials: %w", err)
	}

	return credentials, nil
}

func (r *CredentialRepository) CredentialByID(ctx context.Context, id string) (*models.Credential, error) {
	query := `SELECT id, title, platform, data, created_at FROM credentials WHERE id = $1`

	credential, err := scanCredential(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrCredentialNotFound
		}

		return nil, err
	}

	return credential, nil
}

func (r *CredentialRepository) SaveCredential(ctx context.Context, credential *models.Credential) error {
	if credential.ID == "" {
		credential.ID = uuid.New().String()
	}

	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = time.Now().UTC()
	}

	dataJSON, err := json.Marshal(credential.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal credential data: %w", err)
	}

	query := `
		INSERT INTO credentials (id, title, platform, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			platform = EXCLUDED.platform,
			data = EXCLUDED.data
	`

	_, err = r.db.ExecContext(ctx, query,
		credential.ID,
		credential.Title,
		credential.Platform,
		dataJSON,
		credential.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save credential %s: %w", credential.ID, err)
	}

	return nil
}

func (r *CredentialRepository) DeleteCredential(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete credential %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result for credential %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.ErrCredentialNotFound
	}

	return nil
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		credential models.Credential
		dataJSON   []byte
	)

	err := row.Scan(
		&credential.ID,
		&credential.Title,
		&credential.Platform,
		&dataJSON,
		&credential.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan credential: %w", err)
	}

	if err := json.Unmarshal(dataJSON, &credential.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data for credential %s: %w", credential.ID, err)
	}

	return &credential, nil
}
