// Package binding decides which request attributes get embedded in a token
// at issuance and enforces them at verification. Each check is switched on
// independently and both fail closed.
package binding

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
)

// Field names a binding attribute.
type Field string

const (
	FieldDevice Field = "device"
	FieldIP     Field = "ip"
)

// ErrMissingContext is returned at issuance when a policy is enabled but the
// request did not carry the attribute to bind to.
var ErrMissingContext = errors.New("binding: request context missing bound attribute")

// MismatchError reports which binding check failed.
type MismatchError struct {
	Field Field
	// Absent is true when the bound value was missing rather than different.
	Absent bool
}

func (e *MismatchError) Error() string {
	if e.Absent {
		return fmt.Sprintf("binding: %s claim absent", e.Field)
	}
	return fmt.Sprintf("binding: %s mismatch", e.Field)
}

// Policy is fixed at process start.
type Policy struct {
	Device bool
	IP     bool
}

// Bound is the pair of bound values, whether read from signed claims or from
// a ledger record.
type Bound struct {
	DeviceFingerprint string
	SourceIP          string
}

// Embed returns the values to sign into a new token for rc. Disabled checks
// yield empty values so the claim is omitted.
func (p Policy) Embed(rc domain.RequestContext) (Bound, error) {
	var b Bound
	if p.Device {
		fp := strings.TrimSpace(rc.DeviceFingerprint)
		if fp == "" {
			return Bound{}, fmt.Errorf("%w: %s", ErrMissingContext, FieldDevice)
		}
		b.DeviceFingerprint = fp
	}
	if p.IP {
		ip := normalizeIP(rc.SourceIP)
		if ip == "" {
			return Bound{}, fmt.Errorf("%w: %s", ErrMissingContext, FieldIP)
		}
		b.SourceIP = ip
	}
	return b, nil
}

// Check compares bound values against the presented request. An enabled
// check with no bound value is a mismatch, never a skip.
func (p Policy) Check(b Bound, rc domain.RequestContext) error {
	if p.Device {
		if err := compare(FieldDevice, b.DeviceFingerprint, strings.TrimSpace(rc.DeviceFingerprint)); err != nil {
			return err
		}
	}
	if p.IP {
		if err := compare(FieldIP, normalizeIP(b.SourceIP), normalizeIP(rc.SourceIP)); err != nil {
			return err
		}
	}
	return nil
}

func compare(f Field, bound, presented string) error {
	if bound == "" {
		return &MismatchError{Field: f, Absent: true}
	}
	if presented == "" || subtle.ConstantTimeCompare([]byte(bound), []byte(presented)) != 1 {
		return &MismatchError{Field: f}
	}
	return nil
}

// normalizeIP canonicalises an address so IPv4-mapped IPv6 and zero-padded
// forms compare equal. Unparseable input is kept verbatim (trimmed) so it can
// still match itself exactly.
func normalizeIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return s
	}
	return addr.Unmap().WithZone("").String()
}
