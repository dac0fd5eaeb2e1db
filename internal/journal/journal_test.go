package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ninjatosba/arbitrage-detector/internal/types"
)

func sampleOpp(id string) types.Opportunity {
	return types.Opportunity{
		ID:        id,
		Direction: types.DEXBuyCEXSell,
		TradeSize: 4000,
		GrossPnL:  17.9,
		NetPnL:    15.3,
		DexQuote: types.TradeQuote{
			AmountIn:       4000,
			AmountOut:      4.0178,
			EffectivePrice: 995.56,
			FeeBpsApplied:  5,
			SlippageBps:    1.2,
		},
		CexPriceUsed: 1000,
		GasUSD:       2.1,
		Ts:           time.Now(),
	}
}

func TestJournalRecordAndCount(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "opps.db"))
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()

	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, j.Record(ctx, sampleOpp("opp-1")))
	require.NoError(t, j.Record(ctx, sampleOpp("opp-2")))

	n, err = j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestJournalRejectsDuplicateID(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "opps.db"))
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	require.NoError(t, j.Record(ctx, sampleOpp("dup")))
	assert.Error(t, j.Record(ctx, sampleOpp("dup")))
}

func TestJournalReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opps.db")
	ctx := context.Background()

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, sampleOpp("persisted")))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
