package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/google/uuid"
)

// CredentialRepository handles credential-related file operations.
type CredentialRepository struct {
	dir string
}

func NewCredentialRepository(root string) *CredentialRepository {
	return &CredentialRepository{dir: filepath.Join(root, "credentials")}
}

func (r *CredentialRepository) Credentials(_ context.Context) ([]*models.Credential, error) {
	return listRecords[models.Credential](r.dir)
}

func (r *CredentialRepository) CredentialByID(_ context.Context, id string) (*models.Credential, error) {
	credential := &models.Credential{}
	if err := readRecord(r.dir, id, credential, persistence.ErrCredentialNotFound); err != nil {
		return nil, err
	}

	return credential, nil
}

func (r *CredentialRepository) SaveCredential(_ context.Context, credential *models.Credential) error {
	if credential.ID == "" {
		credential.ID = uuid.New().String()
	}

	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = time.Now().UTC()
	}

	return writeRecord(r.dir, credential.ID, credential)
}

func (r *CredentialRepository) DeleteCredential(_ context.Context, id string) error {
	return deleteRecord(r.dir, id, persistence.ErrCredentialNotFound)
}
