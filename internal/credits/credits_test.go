package credits

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/adjudicator/internal/store"
)

func ledgers(t *testing.T) map[string]Ledger {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "credits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mr := miniredis.RunT(t)
	rl, err := NewRedis(ctx, mr.Addr(), 3)
	require.NoError(t, err)
	t.Cleanup(func() { rl.Close() })

	return map[string]Ledger{
		"sqlite": NewSQLite(s, 3),
		"redis":  rl,
	}
}

func TestLedgerEnforcesLimit(t *testing.T) {
	for name, l := range ledgers(t) {
		l := l
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := 1; i <= 3; i++ {
				total, err := Charge(ctx, l, "203.0.113.7", 1)
				require.NoError(t, err)
				assert.Equal(t, float64(i), total)
			}

			_, err := Charge(ctx, l, "203.0.113.7", 1)
			assert.True(t, errors.Is(err, ErrLimitReached))

			ok, err := l.CanUse(ctx, "198.51.100.1", 3)
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = l.CanUse(ctx, "198.51.100.1", 3.5)
			require.NoError(t, err)
			assert.False(t, ok)

			n, err := l.Reset(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			total, err := Charge(ctx, l, "203.0.113.7", 1)
			require.NoError(t, err)
			assert.Equal(t, 1.0, total)
		})
	}
}

func TestNewRedisFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), addr, DefaultLimit)
	require.Error(t, err)
}

func TestLimitMessage(t *testing.T) {
	assert.Equal(t, "You have reached your credit limit of 15. Please try again later.", LimitMessage(DefaultLimit))
}
