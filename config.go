package auth

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// Options is the concrete Config used by most consumers. Zero values fall
// back to the documented defaults; only SigningKey has no default.
type Options struct {
	SigningKey          string
	Issuer              string
	Audience            []string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	BcryptCost          int
	BootstrapAdminEmail string
	DeliveryStrategy    DeliveryStrategy
	SingleSession       bool
}

var _ Config = (*Options)(nil)

func (o *Options) GetSigningKey() string { return o.SigningKey }

func (o *Options) GetIssuer() string { return o.Issuer }

func (o *Options) GetAudience() []string { return o.Audience }

func (o *Options) GetAccessTokenTTL() time.Duration {
	if o.AccessTokenTTL <= 0 {
		return 15 * time.Minute
	}
	return o.AccessTokenTTL
}

func (o *Options) GetRefreshTokenTTL() time.Duration {
	if o.RefreshTokenTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return o.RefreshTokenTTL
}

func (o *Options) GetBcryptCost() int {
	if o.BcryptCost <= 0 {
		return DefaultBcryptCost
	}
	return o.BcryptCost
}

func (o *Options) GetBootstrapAdminEmail() string { return o.BootstrapAdminEmail }

func (o *Options) GetDeliveryStrategy() DeliveryStrategy {
	if o.DeliveryStrategy == "" {
		return DeliveryCookiePair
	}
	return o.DeliveryStrategy
}

func (o *Options) GetSingleSession() bool { return o.SingleSession }

// LoadOptions builds Options from the environment. A .env file is loaded
// first when present; real environment variables win over file values.
// AUTH_SIGNING_KEY is the only required variable.
func LoadOptions(envFiles ...string) (*Options, error) {
	// Load ignores missing files only when none are named explicitly.
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, errors.Wrap(err, errors.CategoryOperation, "failed to load env file").
				WithMetadata(map[string]any{"files": envFiles})
		}
	} else {
		_ = godotenv.Load()
	}

	opts := &Options{
		SigningKey:          os.Getenv("AUTH_SIGNING_KEY"),
		Issuer:              envString("AUTH_ISSUER", ""),
		BootstrapAdminEmail: envString("AUTH_BOOTSTRAP_ADMIN_EMAIL", ""),
		DeliveryStrategy:    DeliveryStrategy(envString("AUTH_DELIVERY_STRATEGY", string(DeliveryCookiePair))),
		SingleSession:       envBool("AUTH_SINGLE_SESSION", false),
	}

	if opts.SigningKey == "" {
		return nil, ErrSigningKeyMissing
	}

	if audience := envString("AUTH_AUDIENCE", ""); audience != "" {
		for _, aud := range strings.Split(audience, ",") {
			if aud = strings.TrimSpace(aud); aud != "" {
				opts.Audience = append(opts.Audience, aud)
			}
		}
	}

	if minutes := envInt("AUTH_ACCESS_TTL_MINUTES", 0); minutes > 0 {
		opts.AccessTokenTTL = time.Duration(minutes) * time.Minute
	}

	if days := envInt("AUTH_REFRESH_TTL_DAYS", 0); days > 0 {
		opts.RefreshTokenTTL = time.Duration(days) * 24 * time.Hour
	}

	if cost := envInt("AUTH_BCRYPT_COST", 0); cost > 0 {
		opts.BcryptCost = cost
	}

	switch opts.DeliveryStrategy {
	case DeliveryCookiePair, DeliveryBodyToken:
	default:
		return nil, errors.New("unknown delivery strategy", errors.CategoryValidation).
			WithMetadata(map[string]any{"strategy": string(opts.DeliveryStrategy)})
	}

	return opts, nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
