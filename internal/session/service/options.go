package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessionguard/internal/session/binding"
	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/pkg/jwtx"
)

const (
	DefaultAccessTTL         = 15 * time.Minute
	DefaultRefreshTTL        = 7 * 24 * time.Hour
	DefaultVerificationTTL   = time.Hour
	DefaultResetTTL          = 30 * time.Minute
	DefaultRotationThreshold = 2 * time.Minute
)

// Options is the immutable configuration of a Manager. It is built once at
// process start; nothing in the hot path reads the environment.
type Options struct {
	Issuer   string
	Audience string

	// AccessKeys signs access, verification and reset tokens. RefreshKeys
	// signs refresh tokens. The two must not share key material.
	AccessKeys  *jwtx.Keyring
	RefreshKeys *jwtx.Keyring

	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration

	// ClockSkew is the leeway applied to exp and nbf.
	ClockSkew time.Duration

	Binding  binding.Policy
	Rotation RotationPolicy
}

// RotationPolicy controls RotateIfNeeded. Off unless Enabled is set.
type RotationPolicy struct {
	Enabled bool
	// Threshold is the remaining access token lifetime below which a pair
	// is rotated.
	Threshold time.Duration
}

func (o *Options) applyDefaults() {
	if o.AccessTTL <= 0 {
		o.AccessTTL = DefaultAccessTTL
	}
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = DefaultRefreshTTL
	}
	if o.VerificationTTL <= 0 {
		o.VerificationTTL = DefaultVerificationTTL
	}
	if o.ResetTTL <= 0 {
		o.ResetTTL = DefaultResetTTL
	}
	if o.Rotation.Threshold <= 0 {
		o.Rotation.Threshold = DefaultRotationThreshold
	}
}

func (o *Options) validate() error {
	if o.Issuer == "" {
		return errors.New("service: issuer is required")
	}
	if o.AccessKeys == nil || o.RefreshKeys == nil {
		return errors.New("service: access and refresh keyrings are required")
	}
	if shared := jwtx.SharedKIDs(o.AccessKeys, o.RefreshKeys); len(shared) > 0 {
		return fmt.Errorf("service: access and refresh keyrings share key %s", strings.Join(shared, ", "))
	}
	return nil
}

func (o *Options) ttl(kind domain.Kind) time.Duration {
	switch kind {
	case domain.KindAccess:
		return o.AccessTTL
	case domain.KindRefresh:
		return o.RefreshTTL
	case domain.KindVerification:
		return o.VerificationTTL
	case domain.KindReset:
		return o.ResetTTL
	}
	return 0
}

// Option customises a Manager beyond its Options.
type Option func(*Manager)

// WithClock replaces the wall clock for issuance, verification and ledger
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}
