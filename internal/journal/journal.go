// Package journal persists emitted opportunities to a local sqlite file so a
// run can be inspected after the fact. Pure-Go driver, no CGo.
package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Ninjatosba/arbitrage-detector/internal/types"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS opportunities (
    id             TEXT PRIMARY KEY,
    direction      TEXT     NOT NULL,
    trade_size     REAL     NOT NULL,
    gross_pnl      REAL     NOT NULL,
    net_pnl        REAL     NOT NULL,
    cex_price      REAL     NOT NULL,
    dex_eff_price  REAL     NOT NULL,
    dex_slip_bps   REAL     NOT NULL,
    gas_usd        REAL     NOT NULL,
    ts             DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opp_ts  ON opportunities(ts DESC);
CREATE INDEX IF NOT EXISTS idx_opp_dir ON opportunities(direction);
`

type Journal struct {
	db *sql.DB
}

func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Record(ctx context.Context, opp types.Opportunity) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO opportunities
		   (id, direction, trade_size, gross_pnl, net_pnl, cex_price, dex_eff_price, dex_slip_bps, gas_usd, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		opp.ID, string(opp.Direction), opp.TradeSize, opp.GrossPnL, opp.NetPnL,
		opp.CexPriceUsed, opp.DexQuote.EffectivePrice, opp.DexQuote.SlippageBps,
		opp.GasUSD, opp.Ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// Count reports how many opportunities have been recorded.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM opportunities`).Scan(&n)
	return n, err
}

func (j *Journal) Close() error { return j.db.Close() }
