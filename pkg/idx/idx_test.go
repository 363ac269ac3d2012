package idx_test

import (
	"sort"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessionguard/pkg/idx"
)

func TestNewIsCanonicalULID(t *testing.T) {
	id := idx.New()

	u, err := ulid.ParseStrict(id.String())
	require.NoError(t, err)
	require.Equal(t, id.String(), u.String())
}

func TestNewAtEmbedsTimestamp(t *testing.T) {
	at := time.Unix(1700000000, 0).UTC()

	u, err := ulid.ParseStrict(idx.NewAt(at).String())
	require.NoError(t, err)
	require.Equal(t, at, ulid.Time(u.Time()).UTC())
}

func TestSameMillisecondIDsAreUniqueAndOrdered(t *testing.T) {
	at := time.Unix(1700000000, 0)

	ids := make([]string, 0, 1000)
	seen := make(map[idx.ID]struct{}, 1000)
	for range 1000 {
		id := idx.NewAt(at)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
		ids = append(ids, id.String())
	}
	require.True(t, sort.StringsAreSorted(ids))
}
