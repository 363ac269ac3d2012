package service

import (
	"strings"

	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/pkg/jwtx"
)

// Introspect decodes token WITHOUT verifying it. The result is for support
// tooling; it proves nothing about the token and must never authorize an
// action. Use Verify for that.
func (m *Manager) Introspect(token string) (domain.UntrustedMetadata, error) {
	token = strings.TrimSpace(token)

	c, err := jwtx.DecodeUnverified(token)
	if err != nil {
		return domain.UntrustedMetadata{}, domain.NewTokenError(domain.ErrorKindTampered, err)
	}

	md := domain.UntrustedMetadata{
		Kind:        c.Kind,
		SubjectID:   c.Subject,
		Email:       c.Email,
		Role:        c.Role,
		TokenID:     c.ID,
		Issuer:      c.Issuer,
		Audience:    []string(c.Audience),
		KeyID:       jwtx.UnverifiedKID(token),
		DeviceBound: c.DeviceFingerprint != "",
		IPBound:     c.SourceIP != "",
	}
	if c.IssuedAt != nil {
		md.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		md.ExpiresAt = c.ExpiresAt.Time
		md.Expired = !m.now().Before(c.ExpiresAt.Time)
	}
	return md, nil
}
