package payment

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"smartwin-be/internal/logger"

	"go.uber.org/zap"
)

const (
	// tokenSafetyMargin is subtracted from the stated expiry so a token is
	// never used right at the edge of its validity window.
	tokenSafetyMargin = time.Minute

	// defaultTokenTTL applies when the provider states no expiry and the
	// token itself carries no exp claim. Pesapal tokens are valid for 5
	// minutes.
	defaultTokenTTL = 5 * time.Minute
)

// tokenSource caches the provider bearer token across requests in the same
// process. The check-then-refresh sequence is a single critical section so
// concurrent callers never race to re-authenticate.
type tokenSource struct {
	mu        sync.Mutex
	value     string
	expiresAt time.Time

	now   func() time.Time
	fetch func(ctx context.Context) (token string, expiresAt time.Time, err error)
}

func newTokenSource(fetch func(ctx context.Context) (string, time.Time, error)) *tokenSource {
	return &tokenSource{
		now:   time.Now,
		fetch: fetch,
	}
}

// Token returns the cached bearer token, refreshing it when it is within
// the safety margin of expiry. Authentication failures propagate to the
// caller; there is no retry here.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.value != "" && ts.now().Before(ts.expiresAt.Add(-tokenSafetyMargin)) {
		return ts.value, nil
	}

	value, expiresAt, err := ts.fetch(ctx)
	if err != nil {
		return "", err
	}

	if expiresAt.IsZero() {
		expiresAt = tokenExpiry(value, ts.now())
	}

	ts.value = value
	ts.expiresAt = expiresAt
	return ts.value, nil
}

// tokenExpiry derives an expiry for a token whose auth response stated none.
// Pesapal bearer tokens are JWTs, so the exp claim is authoritative when
// present; otherwise fall back to the provider's documented TTL.
func tokenExpiry(token string, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	} else {
		logger.L().Debug("token is not a parseable JWT, using default TTL", zap.Error(err))
	}
	return now.Add(defaultTokenTTL)
}
