package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Atomik-Global/atomik-wallet/pkg/tx"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Method and notification names.
const (
	MethodGetServerInfo                = "getServerInfo"
	MethodGetBlockDagInfo              = "getBlockDagInfo"
	MethodGetUtxosByAddresses          = "getUtxosByAddresses"
	MethodGetBalanceByAddress          = "getBalanceByAddress"
	MethodGetFeeEstimate               = "getFeeEstimate"
	MethodSubmitTransaction            = "submitTransaction"
	MethodNotifyUtxosChanged           = "notifyUtxosChanged"
	MethodStopNotifyingUtxosChanged    = "stopNotifyingUtxosChanged"
	MethodNotifyVirtualDaaScoreChanged = "notifyVirtualDaaScoreChanged"

	NotificationUtxosChanged           = "utxosChangedNotification"
	NotificationVirtualDaaScoreChanged = "virtualDaaScoreChangedNotification"
)

// ServerInfo is the result of getServerInfo.
type ServerInfo struct {
	RPCAPIVersion   uint16 `json:"rpcApiVersion"`
	ServerVersion   string `json:"serverVersion"`
	NetworkID       string `json:"networkId"`
	HasUtxoIndex    bool   `json:"hasUtxoIndex"`
	IsSynced        bool   `json:"isSynced"`
	VirtualDaaScore uint64 `json:"virtualDaaScore"`
}

// BlockDagInfo is the result of getBlockDagInfo.
type BlockDagInfo struct {
	Network             string   `json:"network"`
	BlockCount          uint64   `json:"blockCount"`
	HeaderCount         uint64   `json:"headerCount"`
	TipHashes           []string `json:"tipHashes"`
	Difficulty          float64  `json:"difficulty"`
	PastMedianTime      uint64   `json:"pastMedianTime"`
	PruningPointHash    string   `json:"pruningPointHash"`
	VirtualDaaScore     uint64   `json:"virtualDaaScore"`
	VirtualParentHashes []string `json:"virtualParentHashes"`
}

// FeerateBucket is one bucket of a fee estimate, in sompi per gram.
type FeerateBucket struct {
	Feerate          float64 `json:"feerate"`
	EstimatedSeconds float64 `json:"estimatedSeconds"`
}

// FeeEstimate is the estimate part of getFeeEstimate.
type FeeEstimate struct {
	PriorityBucket FeerateBucket   `json:"priorityBucket"`
	NormalBuckets  []FeerateBucket `json:"normalBuckets"`
	LowBuckets     []FeerateBucket `json:"lowBuckets"`
}

// UtxosChanged is the payload of a utxosChangedNotification.
type UtxosChanged struct {
	Added   []types.UtxoEntry `json:"added"`
	Removed []types.UtxoEntry `json:"removed"`
}

// VirtualDaaScoreChanged is the payload of a virtualDaaScoreChangedNotification.
type VirtualDaaScoreChanged struct {
	VirtualDaaScore uint64 `json:"virtualDaaScore"`
}

// GetServerInfo returns the node's version, network and sync state.
func (c *Client) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.Call(ctx, MethodGetServerInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetBlockDagInfo returns the node's DAG summary.
func (c *Client) GetBlockDagInfo(ctx context.Context) (*BlockDagInfo, error) {
	var info BlockDagInfo
	if err := c.Call(ctx, MethodGetBlockDagInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUtxosByAddresses returns the unspent outputs of addresses.
func (c *Client) GetUtxosByAddresses(ctx context.Context, addresses []string) ([]types.UtxoEntry, error) {
	var resp struct {
		Entries []types.UtxoEntry `json:"entries"`
	}
	params := map[string]interface{}{"addresses": addresses}
	if err := c.Call(ctx, MethodGetUtxosByAddresses, params, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// GetBalanceByAddress returns the balance of address in sompi.
func (c *Client) GetBalanceByAddress(ctx context.Context, address string) (uint64, error) {
	var resp struct {
		Balance uint64 `json:"balance"`
	}
	params := map[string]string{"address": address}
	if err := c.Call(ctx, MethodGetBalanceByAddress, params, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

// GetFeeEstimate returns the node's current fee rate buckets.
func (c *Client) GetFeeEstimate(ctx context.Context) (*FeeEstimate, error) {
	var resp struct {
		Estimate FeeEstimate `json:"estimate"`
	}
	if err := c.Call(ctx, MethodGetFeeEstimate, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Estimate, nil
}

// SubmitTransaction relays a signed transaction and returns its id.
func (c *Client) SubmitTransaction(ctx context.Context, transaction *tx.Transaction, allowOrphan bool) (string, error) {
	var resp struct {
		TransactionID string `json:"transactionId"`
	}
	params := map[string]interface{}{
		"transaction": transaction,
		"allowOrphan": allowOrphan,
	}
	if err := c.Call(ctx, MethodSubmitTransaction, params, &resp); err != nil {
		return "", err
	}
	return resp.TransactionID, nil
}

// NotifyUtxosChanged asks the node to send utxosChangedNotification for
// addresses.
func (c *Client) NotifyUtxosChanged(ctx context.Context, addresses []string) error {
	return c.Call(ctx, MethodNotifyUtxosChanged, map[string]interface{}{"addresses": addresses}, nil)
}

// StopNotifyingUtxosChanged cancels NotifyUtxosChanged for addresses.
func (c *Client) StopNotifyingUtxosChanged(ctx context.Context, addresses []string) error {
	return c.Call(ctx, MethodStopNotifyingUtxosChanged, map[string]interface{}{"addresses": addresses}, nil)
}

// NotifyVirtualDaaScoreChanged asks the node to stream DAA score updates.
func (c *Client) NotifyVirtualDaaScoreChanged(ctx context.Context) error {
	return c.Call(ctx, MethodNotifyVirtualDaaScoreChanged, nil, nil)
}

// OnUtxosChanged subscribes fn to decoded utxosChangedNotification frames.
func (c *Client) OnUtxosChanged(fn func(UtxosChanged)) Subscription {
	return c.Subscribe(NotificationUtxosChanged, func(params json.RawMessage) {
		var n UtxosChanged
		if err := json.Unmarshal(params, &n); err != nil {
			c.log.Warn().Err(err).Msg("Bad utxosChanged notification")
			return
		}
		fn(n)
	})
}

// OnVirtualDaaScoreChanged subscribes fn to DAA score notifications.
func (c *Client) OnVirtualDaaScoreChanged(fn func(uint64)) Subscription {
	return c.Subscribe(NotificationVirtualDaaScoreChanged, func(params json.RawMessage) {
		var n VirtualDaaScoreChanged
		if err := json.Unmarshal(params, &n); err != nil {
			c.log.Warn().Err(err).Msg("Bad virtualDaaScoreChanged notification")
			return
		}
		fn(n.VirtualDaaScore)
	})
}

// CheckNetwork fails when the node serves a different network than want.
func (c *Client) CheckNetwork(ctx context.Context, want types.Network) error {
	info, err := c.GetServerInfo(ctx)
	if err != nil {
		return err
	}
	if info.NetworkID != "" && info.NetworkID != want.String() {
		return fmt.Errorf("%w: node serves %s, want %s", ErrConnection, info.NetworkID, want)
	}
	return nil
}

var _ tx.Submitter = (*Client)(nil)
