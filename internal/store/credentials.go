package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Skufu/healthrisk/internal/auth"
)

// Querier is the subset of pgxpool.Pool used by the repository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CredentialRepository reads the fixed clinician credential mapping.
type CredentialRepository struct {
	db Querier
}

func NewCredentialRepository(db Querier) *CredentialRepository {
	return &CredentialRepository{db: db}
}

const selectActiveClinicians = `SELECT username, password_hash FROM clinicians WHERE active ORDER BY username`

// Load returns every active clinician's username and bcrypt hash.
func (r *CredentialRepository) Load(ctx context.Context) (auth.Credentials, error) {
	rows, err := r.db.Query(ctx, selectActiveClinicians)
	if err != nil {
		return nil, fmt.Errorf("query clinicians: %w", err)
	}
	defer rows.Close()

	creds := auth.Credentials{}
	for rows.Next() {
		var username, hash string
		if err := rows.Scan(&username, &hash); err != nil {
			return nil, fmt.Errorf("scan clinician: %w", err)
		}
		creds[username] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clinicians: %w", err)
	}
	return creds, nil
}
