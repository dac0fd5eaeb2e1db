// Package multicall batches read-only contract calls through a deployed
// Multicall aggregator, so related views (slot0 and liquidity, say) decode
// from the same block in a single RPC round trip.
package multicall

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const aggregateABI = `[
{
    "inputs": [
        {
            "components": [
                {"name": "target", "type": "address"},
                {"name": "callData", "type": "bytes"}
            ],
            "name": "calls",
            "type": "tuple[]"
        }
    ],
    "name": "aggregate",
    "outputs": [
        {"name": "blockNumber", "type": "uint256"},
        {"name": "returnData", "type": "bytes[]"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
}
]`

// Call is one target/calldata pair in a batch.
type Call struct {
	Target   common.Address
	CallData []byte
}

type Caller struct {
	ec   *ethclient.Client
	addr common.Address
	abi  abi.ABI
}

func New(ec *ethclient.Client, aggregatorAddr common.Address) (*Caller, error) {
	parsed, err := abi.JSON(strings.NewReader(aggregateABI))
	if err != nil {
		return nil, fmt.Errorf("multicall abi: %w", err)
	}
	return &Caller{ec: ec, addr: aggregatorAddr, abi: parsed}, nil
}

// Aggregate executes the batch as one eth_call and returns the raw return
// data per call, in order. An empty return for any call fails the batch:
// all-or-nothing keeps the decoded values consistent with each other.
func (c *Caller) Aggregate(ctx context.Context, calls []Call) ([][]byte, error) {
	payload, err := c.abi.Pack("aggregate", calls)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate: %w", err)
	}

	res, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &c.addr, Data: payload}, nil)
	if err != nil {
		return nil, fmt.Errorf("call aggregate: %w", err)
	}

	var out struct {
		BlockNumber *big.Int
		ReturnData  [][]byte
	}
	if err := c.abi.UnpackIntoInterface(&out, "aggregate", res); err != nil {
		return nil, fmt.Errorf("unpack aggregate: %w", err)
	}
	if len(out.ReturnData) != len(calls) {
		return nil, fmt.Errorf("aggregate returned %d results for %d calls", len(out.ReturnData), len(calls))
	}
	for i, data := range out.ReturnData {
		if len(data) == 0 {
			return nil, fmt.Errorf("aggregate call %d returned no data", i)
		}
	}
	return out.ReturnData, nil
}
