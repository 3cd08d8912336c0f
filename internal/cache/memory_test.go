package cache

import (
	"context"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_TTL(t *testing.T) {
	mock := clock.NewMock()
	m := NewMemory(mock)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	mock.Add(time.Minute)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, m.Len())
}

func TestMemory_NoTTL(t *testing.T) {
	mock := clock.NewMock()
	m := NewMemory(mock)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	mock.Add(24 * time.Hour)

	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemory_CopiesValue(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	got, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
}

func TestJSONHelpers(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	type fees struct {
		Lamports uint64 `json:"lamports"`
	}

	var out fees
	ok, err := GetJSON(ctx, m, "fees:A", &out)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, m, "fees:A", fees{Lamports: 7}, time.Minute))
	ok, err = GetJSON(ctx, m, "fees:A", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 7, out.Lamports)

	require.NoError(t, m.Set(ctx, "bad", []byte("{"), 0))
	_, err = GetJSON(ctx, m, "bad", &out)
	assert.Error(t, err)
}
