package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeToken adds a token's JTI to the revocation list and drops entries
// for tokens that have expired anyway.
func RevokeToken(ctx context.Context, database *sql.DB, jti string, expiresAt time.Time) error {
	_, err := database.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	if _, err := PurgeExpiredTokens(ctx, database); err != nil {
		return err
	}
	return nil
}

// PurgeExpiredTokens removes revocations for tokens past their expiry and
// reports how many were removed.
func PurgeExpiredTokens(ctx context.Context, database *sql.DB) (int64, error) {
	result, err := database.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, now())
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	return n, nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, database *sql.DB, jti string) (bool, error) {
	var count int
	err := database.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}
