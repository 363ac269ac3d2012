package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenErrorMatchesSentinel(t *testing.T) {
	cause := errors.New("ledger says no")
	err := fmt.Errorf("verify: %w", NewTokenError(ErrorKindRevoked, cause))

	require.ErrorIs(t, err, ErrRevoked)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrExpired)
	require.Equal(t, ErrorKindRevoked, KindOf(err))
	require.Equal(t, "verify: token revoked: ledger says no", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, ErrorKindNone, KindOf(errors.New("boom")))
	require.Equal(t, ErrorKindNone, KindOf(nil))
}

func TestEveryKindHasSentinel(t *testing.T) {
	for kind, sentinel := range sentinels {
		err := NewTokenError(kind, nil)
		require.ErrorIs(t, err, sentinel)
		require.Equal(t, sentinel.Error(), err.Error())
	}
}

func TestKindPredicates(t *testing.T) {
	require.True(t, KindRefresh.Ledgered())
	require.False(t, KindAccess.Ledgered())

	require.True(t, KindAccess.Bindable())
	require.True(t, KindRefresh.Bindable())
	require.False(t, KindVerification.Bindable())
	require.False(t, KindReset.Bindable())

	for _, k := range Kinds {
		parsed, err := ParseKind(string(k))
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}
	_, err := ParseKind("session")
	require.Error(t, err)
}
