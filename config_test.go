package auth_test

import (
	"testing"
	"time"

	"github.com/labeldesk/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Defaults(t *testing.T) {
	opts := &auth.Options{SigningKey: "test-signing-key"}

	assert.Equal(t, "test-signing-key", opts.GetSigningKey())
	assert.Equal(t, 15*time.Minute, opts.GetAccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, opts.GetRefreshTokenTTL())
	assert.Equal(t, auth.DefaultBcryptCost, opts.GetBcryptCost())
	assert.Equal(t, auth.DeliveryCookiePair, opts.GetDeliveryStrategy())
	assert.False(t, opts.GetSingleSession())
	assert.Empty(t, opts.GetIssuer())
	assert.Empty(t, opts.GetAudience())
}

func TestOptions_ExplicitValuesWin(t *testing.T) {
	opts := &auth.Options{
		SigningKey:       "test-signing-key",
		AccessTokenTTL:   5 * time.Minute,
		RefreshTokenTTL:  48 * time.Hour,
		BcryptCost:       10,
		DeliveryStrategy: auth.DeliveryBodyToken,
		SingleSession:    true,
	}

	assert.Equal(t, 5*time.Minute, opts.GetAccessTokenTTL())
	assert.Equal(t, 48*time.Hour, opts.GetRefreshTokenTTL())
	assert.Equal(t, 10, opts.GetBcryptCost())
	assert.Equal(t, auth.DeliveryBodyToken, opts.GetDeliveryStrategy())
	assert.True(t, opts.GetSingleSession())
}

func TestLoadOptions(t *testing.T) {
	clearAuthEnv := func(t *testing.T) {
		t.Helper()
		for _, key := range []string{
			"AUTH_SIGNING_KEY",
			"AUTH_ISSUER",
			"AUTH_AUDIENCE",
			"AUTH_ACCESS_TTL_MINUTES",
			"AUTH_REFRESH_TTL_DAYS",
			"AUTH_BCRYPT_COST",
			"AUTH_BOOTSTRAP_ADMIN_EMAIL",
			"AUTH_DELIVERY_STRATEGY",
			"AUTH_SINGLE_SESSION",
		} {
			t.Setenv(key, "")
		}
	}

	t.Run("signing key is required", func(t *testing.T) {
		clearAuthEnv(t)

		_, err := auth.LoadOptions()
		assert.ErrorIs(t, err, auth.ErrSigningKeyMissing)
	})

	t.Run("minimal environment yields defaults", func(t *testing.T) {
		clearAuthEnv(t)
		t.Setenv("AUTH_SIGNING_KEY", "test-signing-key")

		opts, err := auth.LoadOptions()
		require.NoError(t, err)
		assert.Equal(t, "test-signing-key", opts.GetSigningKey())
		assert.Equal(t, 15*time.Minute, opts.GetAccessTokenTTL())
		assert.Equal(t, auth.DeliveryCookiePair, opts.GetDeliveryStrategy())
	})

	t.Run("audience splits on commas and trims whitespace", func(t *testing.T) {
		clearAuthEnv(t)
		t.Setenv("AUTH_SIGNING_KEY", "test-signing-key")
		t.Setenv("AUTH_AUDIENCE", "web, api , ,mobile")

		opts, err := auth.LoadOptions()
		require.NoError(t, err)
		assert.Equal(t, []string{"web", "api", "mobile"}, opts.Audience)
	})

	t.Run("ttl and cost variables parse into durations", func(t *testing.T) {
		clearAuthEnv(t)
		t.Setenv("AUTH_SIGNING_KEY", "test-signing-key")
		t.Setenv("AUTH_ACCESS_TTL_MINUTES", "30")
		t.Setenv("AUTH_REFRESH_TTL_DAYS", "14")
		t.Setenv("AUTH_BCRYPT_COST", "10")
		t.Setenv("AUTH_SINGLE_SESSION", "true")

		opts, err := auth.LoadOptions()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, opts.GetAccessTokenTTL())
		assert.Equal(t, 14*24*time.Hour, opts.GetRefreshTokenTTL())
		assert.Equal(t, 10, opts.GetBcryptCost())
		assert.True(t, opts.GetSingleSession())
	})

	t.Run("unparsable numbers fall back to defaults", func(t *testing.T) {
		clearAuthEnv(t)
		t.Setenv("AUTH_SIGNING_KEY", "test-signing-key")
		t.Setenv("AUTH_ACCESS_TTL_MINUTES", "soon")
		t.Setenv("AUTH_SINGLE_SESSION", "maybe")

		opts, err := auth.LoadOptions()
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, opts.GetAccessTokenTTL())
		assert.False(t, opts.GetSingleSession())
	})

	t.Run("unknown delivery strategy is rejected", func(t *testing.T) {
		clearAuthEnv(t)
		t.Setenv("AUTH_SIGNING_KEY", "test-signing-key")
		t.Setenv("AUTH_DELIVERY_STRATEGY", "carrier-pigeon")

		_, err := auth.LoadOptions()
		assert.Error(t, err)
	})

	t.Run("missing explicit env file errors", func(t *testing.T) {
		clearAuthEnv(t)
		t.Setenv("AUTH_SIGNING_KEY", "test-signing-key")

		_, err := auth.LoadOptions("testdata/does-not-exist.env")
		assert.Error(t, err)
	})
}
