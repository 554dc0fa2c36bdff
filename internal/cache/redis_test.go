package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	opts, err := Options("localhost:6380")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)

	opts, err = Options("redis://:secret@cache.internal:6379/2")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = Options("redis://host:6379/not-a-db")
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := NewClient(mr.Addr())
		require.NotNil(t, client)
		defer client.Close()

		require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
		got, err := mr.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	})

	t.Run("unreachable returns nil", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		assert.Nil(t, NewClient(addr))
	})

	t.Run("empty returns nil", func(t *testing.T) {
		assert.Nil(t, NewClient(""))
	})
}
