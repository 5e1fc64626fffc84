package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

type entry struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestAside_FetchesOnceThenServesFromCache(t *testing.T) {
	useMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dst *entry) func() error {
		return func() error {
			calls++
			*dst = entry{ID: 2, Name: "Jira"}
			return nil
		}
	}

	var first entry
	require.NoError(t, Aside(ctx, SoftwareKey(2), &first, SoftwareTTL, fetch(&first)))
	var second entry
	require.NoError(t, Aside(ctx, SoftwareKey(2), &second, SoftwareTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestAside_InvalidationForcesRefetch(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	var e entry
	require.NoError(t, Aside(ctx, SoftwareKey(5), &e, SoftwareTTL, func() error {
		e = entry{ID: 5}
		return nil
	}))
	require.NoError(t, SetJSON(ctx, CatalogKey, []entry{e}, CatalogTTL))
	assert.True(t, mr.Exists(SoftwareKey(5)))

	InvalidateSoftware(ctx, 5)
	assert.False(t, mr.Exists(SoftwareKey(5)))
	assert.False(t, mr.Exists(CatalogKey))
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := useMiniredis(t)
	boom := errors.New("boom")

	var e entry
	err := Aside(context.Background(), UserKey(9), &e, UserTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(UserKey(9)))
}

func TestAside_WorksWithoutRedis(t *testing.T) {
	SetClient(nil)
	var e entry
	err := Aside(context.Background(), UserKey(1), &e, UserTTL, func() error {
		e.ID = 1
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(1), e.ID)
}

func TestTokenRevocation(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	revoked, err := IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, RevokeToken(ctx, "abc", time.Hour))
	revoked, err = IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeToken_WithoutRedis(t *testing.T) {
	SetClient(nil)
	assert.ErrorIs(t, RevokeToken(context.Background(), "abc", time.Hour), ErrUnavailable)
}
