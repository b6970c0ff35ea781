package infocache

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrFetchCachesOnHit(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	fetch := func() (string, error) {
		calls++
		return "fetched", nil
	}

	v1, err := GetOrFetch(c, Key("normal_info", 1), time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "fetched", v1)
	assert.Equal(t, 1, calls)

	v2, err := GetOrFetch(c, Key("normal_info", 1), time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "fetched", v2)
	assert.Equal(t, 1, calls, "second call should be served from cache, not refetched")
}

func TestGetOrFetchRefetchesAfterExpiry(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	fetch := func() (int, error) {
		calls++
		return calls, nil
	}

	_, err = GetOrFetch(c, Key("tags", 7), -time.Second, fetch)
	require.NoError(t, err)

	v2, err := GetOrFetch(c, Key("tags", 7), time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, v2, "expired entry should be refetched")
}

func TestGetOrFetchDistinctKeysDoNotCollide(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	fetch := func(id int64) func() (string, error) {
		return func() (string, error) { return fmt.Sprintf("value-%d", id), nil }
	}

	v1, err := GetOrFetch(c, Key("normal_info", 1), time.Minute, fetch(1))
	require.NoError(t, err)
	v2, err := GetOrFetch(c, Key("normal_info", 2), time.Minute, fetch(2))
	require.NoError(t, err)

	assert.Equal(t, "value-1", v1)
	assert.Equal(t, "value-2", v2)
}
