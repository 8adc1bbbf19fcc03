package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/model"
	"github.com/sakif/expense-ledger/internal/repository"
)

// compile-time check that *TokenDB implements repository.TokenRepository
var _ repository.TokenRepository = (*TokenDB)(nil)

// TokenDB stores refresh tokens.
type TokenDB struct {
	q queryer
}

func (t *TokenDB) Create(ctx context.Context, token *model.RefreshToken) error {
	token.ID = xid.New().String()
	token.CreatedAt = time.Now().UTC()

	_, err := t.q.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, token, user_id, expires_at, revoked, used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.Token,
		token.UserID,
		token.ExpiresAt.UTC(),
		token.Revoked,
		token.Used,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting refresh token for user %s: %w", token.UserID, err)
	}
	return nil
}

func (t *TokenDB) GetByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	err := t.q.QueryRowContext(ctx,
		`SELECT id, token, user_id, expires_at, revoked, used, created_at
		 FROM refresh_tokens WHERE token = ?`,
		token,
	).Scan(&rt.ID, &rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.Revoked, &rt.Used, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Never echo the token itself into an error message.
			return nil, apperror.NotFound("refresh token", "(redacted)")
		}
		return nil, fmt.Errorf("sqlite: getting refresh token: %w", err)
	}
	return &rt, nil
}

// MarkUsed flips an active token to used+revoked. The WHERE clause makes the
// check and the update one statement, so only one caller can observe true.
func (t *TokenDB) MarkUsed(ctx context.Context, id string) (bool, error) {
	result, err := t.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET used = 1, revoked = 1
		 WHERE id = ? AND used = 0 AND revoked = 0`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: marking refresh token %s used: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n == 1, nil
}

func (t *TokenDB) Revoke(ctx context.Context, token string) error {
	_, err := t.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE token = ? AND revoked = 0`,
		token,
	)
	if err != nil {
		return fmt.Errorf("sqlite: revoking refresh token: %w", err)
	}
	return nil
}
