package balance

import (
	"context"

	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// NodeClient is the part of the RPC client NodeSource needs.
type NodeClient interface {
	GetBalanceByAddress(ctx context.Context, address string) (uint64, error)
	GetUtxosByAddresses(ctx context.Context, addresses []string) ([]types.UtxoEntry, error)
}

// NodeSource answers Source queries from the connected node instead of the
// REST API.
type NodeSource struct {
	Node NodeClient
}

// GetBalance implements Source.
func (s NodeSource) GetBalance(ctx context.Context, address string) (uint64, error) {
	return s.Node.GetBalanceByAddress(ctx, address)
}

// GetUtxos implements Source.
func (s NodeSource) GetUtxos(ctx context.Context, address string) ([]types.UtxoEntry, error) {
	return s.Node.GetUtxosByAddresses(ctx, []string{address})
}
