package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/expense-ledger/internal/apperror"
)

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin_ReturnsProfileAndTokens(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "alice")

	result, err := env.auth.Login(context.Background(), "alice", "alice-pw")
	require.NoError(t, err)

	assert.Equal(t, user.ID, result.UserID)
	assert.Equal(t, "alice", result.Username)
	assert.Equal(t, "alice@example.com", result.Email)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)

	// The access token we issued must validate back to the same user
	claims, err := env.auth.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())
	assert.Equal(t, "alice", claims.Username)
}

func TestLogin_BadCredentialsAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	_, wrongPassword := env.auth.Login(context.Background(), "alice", "nope")
	_, unknownUser := env.auth.Login(context.Background(), "mallory", "alice-pw")
	_, empty := env.auth.Login(context.Background(), "", "")

	for _, err := range []error{wrongPassword, unknownUser, empty} {
		require.ErrorIs(t, err, apperror.ErrUnauthorized)
	}
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestLogin_UsernameIsCaseSensitive(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	_, err := env.auth.Login(context.Background(), "Alice", "alice-pw")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

// =========================================================================
// Refresh TESTS
// =========================================================================

func TestRefresh_RotatesToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	login, err := env.auth.Login(context.Background(), "alice", "alice-pw")
	require.NoError(t, err)

	pair, err := env.auth.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	// The old token is burned; the new one works once.
	_, err = env.auth.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = env.auth.Refresh(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_UnknownToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Refresh(context.Background(), "not-a-real-token")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = env.auth.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	login, err := env.auth.Login(context.Background(), "alice", "alice-pw")
	require.NoError(t, err)

	env.auth.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }

	_, err = env.auth.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestRefresh_AfterLogout(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	login, err := env.auth.Login(context.Background(), "alice", "alice-pw")
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(context.Background(), login.RefreshToken))

	_, err = env.auth.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestRefresh_ConcurrentUseHasOneWinner(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		assertOneRefreshWins(t, newTestEnv(t), 8)
	})
	t.Run("file", func(t *testing.T) {
		assertOneRefreshWins(t, newFileTestEnv(t), 16)
	})
}

// assertOneRefreshWins races workers refreshes of the same token.
func assertOneRefreshWins(t *testing.T, env *testEnv, workers int) {
	t.Helper()
	env.register(t, "alice")
	login, err := env.auth.Login(context.Background(), "alice", "alice-pw")
	require.NoError(t, err)

	start := make(chan struct{})
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.auth.Refresh(context.Background(), login.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperror.ErrUnauthorized):
				rejected++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, rejected)
}

// =========================================================================
// Logout / ValidateToken TESTS
// =========================================================================

func TestLogout_UnknownTokenIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.auth.Logout(context.Background(), "whatever"))
	assert.NoError(t, env.auth.Logout(context.Background(), ""))
}

func TestValidateToken_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.ValidateToken("this.is.garbage")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
