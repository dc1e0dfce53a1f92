// Package credentials resolves stored credentials for node runners.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
)

var ErrCredentialIncomplete = errors.New("credential incomplete")

// Resolver loads credentials from persistence by ID.
type Resolver struct {
	repo persistence.CredentialRepository
}

func NewResolver(repo persistence.CredentialRepository) *Resolver {
	return &Resolver{repo: repo}
}

func (r *Resolver) Resolve(ctx context.Context, id string) (*models.Credential, error) {
	if id == "" {
		return nil, persistence.ErrCredentialNotFound
	}

	return r.repo.CredentialByID(ctx, id)
}

// Require returns an error naming the first field missing or empty on the credential.
func Require(credential *models.Credential, fields ...string) error {
	for _, field := range fields {
		value, ok := credential.Field(field)
		if !ok || value == "" {
			return fmt.Errorf("%w: credential %s is missing field %q", ErrCredentialIncomplete, credential.ID, field)
		}
	}

	return nil
}
