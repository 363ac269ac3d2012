package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	httpapi "github.com/aussiebroadwan/sessionguard/internal/session/http"
	"github.com/aussiebroadwan/sessionguard/internal/session/service"
	"github.com/aussiebroadwan/sessionguard/pkg/httpx"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is read once at startup and never changes afterwards.
type Config struct {
	Issuer   string `validate:"required"`
	Audience string // checked on verify when set

	// Secret files. A family file wins over HKDF derivation from the master
	// secret. Previous files are comma separated and verify-only.
	AccessSecretFile           string
	RefreshSecretFile          string
	MasterSecretFile           string
	PreviousAccessSecretFiles  []string
	PreviousRefreshSecretFiles []string

	AccessTTL         time.Duration `validate:"gt=0"`
	RefreshTTL        time.Duration `validate:"gt=0"`
	VerificationTTL   time.Duration `validate:"gt=0"`
	ResetTTL          time.Duration `validate:"gt=0"`
	ClockSkew         time.Duration `validate:"gte=0,lte=5m"`
	BindDevice        bool
	BindIP            bool
	RotationEnabled   bool
	RotationThreshold time.Duration `validate:"gt=0"`

	StoreDriver  string `validate:"oneof=sqlite postgres"`
	DatabaseFile string `validate:"required_if=StoreDriver sqlite"`
	DatabaseURL  string `validate:"required_if=StoreDriver postgres"`

	TrustProxyHeaders bool
	Limits            httpapi.Limits

	Env                  string        `validate:"required"`
	LogLevel             string        `validate:"oneof=debug info warn error"`
	LogFormat            string        `validate:"oneof=json text"`
	Port                 int           `validate:"min=1,max=65535"`
	ShutdownGracePeriod  time.Duration `validate:"gt=0"`
	HousekeepingInterval time.Duration `validate:"gt=0"`
}

var configValidate = validator.New()

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(os.Getenv)
}

// LoadConfigFrom reads Config through lookup, which returns "" for unset keys.
func LoadConfigFrom(lookup func(string) string) (Config, error) {
	env := envReader(lookup)

	// Security toggles must parse; a typo must not silently leave a check off.
	var badFlags []string
	toggle := func(key string) bool {
		b, ok := env.strictBoolean(key, false)
		if !ok {
			badFlags = append(badFlags, key)
		}
		return b
	}

	defaults := httpapi.DefaultLimits()
	cfg := Config{
		Issuer:                     env.str("SESSION_ISSUER", "sessionguard"),
		Audience:                   lookup("SESSION_AUDIENCE"),
		AccessSecretFile:           lookup("SESSION_ACCESS_SECRET_FILE"),
		RefreshSecretFile:          lookup("SESSION_REFRESH_SECRET_FILE"),
		MasterSecretFile:           lookup("SESSION_MASTER_SECRET_FILE"),
		PreviousAccessSecretFiles:  splitList(lookup("SESSION_PREVIOUS_ACCESS_SECRET_FILE")),
		PreviousRefreshSecretFiles: splitList(lookup("SESSION_PREVIOUS_REFRESH_SECRET_FILE")),

		AccessTTL:         env.duration("SESSION_ACCESS_TTL", service.DefaultAccessTTL),
		RefreshTTL:        env.duration("SESSION_REFRESH_TTL", service.DefaultRefreshTTL),
		VerificationTTL:   env.duration("SESSION_VERIFICATION_TTL", service.DefaultVerificationTTL),
		ResetTTL:          env.duration("SESSION_RESET_TTL", service.DefaultResetTTL),
		ClockSkew:         env.duration("SESSION_CLOCK_SKEW", 0),
		BindDevice:        toggle("SESSION_BIND_DEVICE"),
		BindIP:            toggle("SESSION_BIND_IP"),
		RotationEnabled:   toggle("SESSION_ROTATION_ENABLED"),
		RotationThreshold: env.duration("SESSION_ROTATION_THRESHOLD", service.DefaultRotationThreshold),

		StoreDriver:  strings.ToLower(env.str("SESSION_STORE_DRIVER", StoreSQLite)),
		DatabaseFile: env.str("SESSION_DATABASE_FILE", "sessions.db"),
		DatabaseURL:  lookup("SESSION_DATABASE_URL"),

		TrustProxyHeaders: toggle("SESSION_TRUST_PROXY_HEADERS"),
		Limits: httpapi.Limits{
			Strict:   httpx.RateLimitFromEnv(lookup, "STRICT", defaults.Strict),
			Moderate: httpx.RateLimitFromEnv(lookup, "MODERATE", defaults.Moderate),
			Public:   httpx.RateLimitFromEnv(lookup, "PUBLIC", defaults.Public),
		},

		Env:                  env.str("ENV", "dev"),
		LogLevel:             strings.ToLower(env.str("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(env.str("LOG_FORMAT", "json")),
		Port:                 env.integer("PORT", 8080),
		ShutdownGracePeriod:  env.duration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: env.duration("HOUSEKEEPING_INTERVAL", time.Hour),
	}

	if len(badFlags) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s must be true or false", strings.Join(badFlags, ", "))
	}
	if err := configValidate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether development conveniences such as generated secrets
// are allowed.
func (c Config) IsDev() bool { return c.Env == "dev" }

type envReader func(string) string

func (e envReader) str(key, defaultValue string) string {
	if value := strings.TrimSpace(e(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) integer(key string, defaultValue int) int {
	value := strings.TrimSpace(e(key))
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

// strictBoolean reports ok=false for a set value that does not parse.
func (e envReader) strictBoolean(key string, defaultValue bool) (value bool, ok bool) {
	raw := strings.TrimSpace(e(key))
	if raw == "" {
		return defaultValue, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue, false
	}
	return b, true
}

func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(e(key))
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}

	// Plain integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
