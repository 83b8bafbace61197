// Package transfer builds, signs and submits spends from the wallet.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"

	klog "github.com/Atomik-Global/atomik-wallet/internal/log"
	"github.com/Atomik-Global/atomik-wallet/internal/rpcclient"
	"github.com/Atomik-Global/atomik-wallet/pkg/crypto"
	"github.com/Atomik-Global/atomik-wallet/pkg/tx"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// DefaultFeeTTL is how long a fee estimate is reused.
const DefaultFeeTTL = 10 * time.Second

const feeCacheKey = "estimate"

// ErrSubmission is matched by every *SubmissionError.
var ErrSubmission = errors.New("transaction submission failed")

// SubmissionError reports a chain that failed at Index. Transactions before
// Index were accepted by the node and are not rolled back.
type SubmissionError struct {
	Index         int
	TransactionID string
	Submitted     []string
	Err           error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit transaction %d (%s) after %d accepted: %v",
		e.Index, e.TransactionID, len(e.Submitted), e.Err)
}

func (e *SubmissionError) Unwrap() []error {
	return []error{ErrSubmission, e.Err}
}

// Node is the part of the RPC client the service needs.
type Node interface {
	GetFeeEstimate(ctx context.Context) (*rpcclient.FeeEstimate, error)
	tx.Submitter
}

// FeeEstimate holds fee rates in sompi per gram of mass.
type FeeEstimate struct {
	Low    float64
	Normal float64
	High   float64
}

// Payment is one destination of a spend.
type Payment struct {
	Address string
	Amount  uint64
}

// SpendIntent is a spend before generation. Entries must be spendable,
// i.e. mature.
type SpendIntent struct {
	Entries       []types.UtxoEntry
	ChangeAddress string
	Outputs       []Payment
	PriorityFee   uint64
	FeeRate       float64
	MaxMass       uint64
}

// Service creates and submits transactions through one node.
type Service struct {
	node Node
	fees *ttlcache.Cache[string, FeeEstimate]
	log  zerolog.Logger
}

// New creates a service. A non-positive feeTTL uses DefaultFeeTTL.
func New(node Node, feeTTL time.Duration) *Service {
	if feeTTL <= 0 {
		feeTTL = DefaultFeeTTL
	}
	return &Service{
		node: node,
		fees: ttlcache.New[string, FeeEstimate](
			ttlcache.WithTTL[string, FeeEstimate](feeTTL),
			ttlcache.WithDisableTouchOnHit[string, FeeEstimate](),
		),
		log: klog.Transfer,
	}
}

// GetFeeEstimate returns the first low bucket, the first normal bucket and
// the priority bucket of the node's estimate. An empty bucket list falls
// back to the next higher rate.
func (s *Service) GetFeeEstimate(ctx context.Context) (FeeEstimate, error) {
	if item := s.fees.Get(feeCacheKey); item != nil {
		return item.Value(), nil
	}

	est, err := s.node.GetFeeEstimate(ctx)
	if err != nil {
		return FeeEstimate{}, err
	}
	fe := FeeEstimate{High: est.PriorityBucket.Feerate}
	fe.Normal = fe.High
	if len(est.NormalBuckets) > 0 {
		fe.Normal = est.NormalBuckets[0].Feerate
	}
	fe.Low = fe.Normal
	if len(est.LowBuckets) > 0 {
		fe.Low = est.LowBuckets[0].Feerate
	}

	s.fees.Set(feeCacheKey, fe, ttlcache.DefaultTTL)
	return fe, nil
}

// InvalidateFees drops the cached fee estimate.
func (s *Service) InvalidateFees() {
	s.fees.DeleteAll()
}

// CreateTransactions generates the chain of transactions for intent on
// network. More than one transaction is returned when the inputs do not fit
// the per-transaction mass budget; the final one carries the payments.
func (s *Service) CreateTransactions(ctx context.Context, intent SpendIntent, network types.Network) (*tx.GeneratorResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer klog.Benchmark("generate transactions")()

	change, err := types.ValidateAddress(intent.ChangeAddress, network)
	if err != nil {
		return nil, fmt.Errorf("change address: %w", err)
	}
	outputs := make([]tx.PaymentOutput, len(intent.Outputs))
	for i, p := range intent.Outputs {
		addr, err := types.ValidateAddress(strings.TrimSpace(p.Address), network)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		outputs[i] = tx.PaymentOutput{Address: addr, Amount: p.Amount}
	}

	g, err := tx.NewGenerator(tx.GeneratorSettings{
		Network:       network,
		Entries:       intent.Entries,
		ChangeAddress: change,
		Outputs:       outputs,
		PriorityFee:   intent.PriorityFee,
		FeeRate:       intent.FeeRate,
		MaxMass:       intent.MaxMass,
	})
	if err != nil {
		return nil, err
	}
	res, err := g.Generate()
	if err != nil {
		return nil, err
	}

	lg := klog.WithNetwork(s.log, network.String())
	lg.Debug().
		Int("transactions", res.Summary.TransactionCount).
		Int("utxos", res.Summary.UtxoCount).
		Uint64("fees", res.Summary.Fees).
		Msg("Transactions generated")
	return res, nil
}

// TransferKas generates the chain for intent, signs every transaction with
// privateKeyHex and submits them in order. It returns the final
// transaction id.
func (s *Service) TransferKas(ctx context.Context, intent SpendIntent, privateKeyHex string, network types.Network) (string, error) {
	key, err := crypto.PrivateKeyFromHex(privateKeyHex)
	if err != nil {
		return "", err
	}
	defer key.Zero()

	res, err := s.CreateTransactions(ctx, intent, network)
	if err != nil {
		return "", err
	}

	submitted := make([]string, 0, len(res.Transactions))
	for i, p := range res.Transactions {
		if err := p.Sign(key); err != nil {
			return "", &SubmissionError{Index: i, TransactionID: p.ID().String(), Submitted: submitted, Err: err}
		}
		id, err := p.Submit(ctx, s.node)
		if err != nil {
			s.log.Error().Err(err).
				Int("index", i).
				Int("submitted", len(submitted)).
				Msg("Transaction chain submission failed")
			return "", &SubmissionError{Index: i, TransactionID: p.ID().String(), Submitted: submitted, Err: err}
		}
		submitted = append(submitted, id)
		s.log.Debug().Int("index", i).Str("txid", id).Str("kind", p.Kind().String()).Msg("Transaction submitted")
	}

	final := res.Summary.FinalTransactionID.String()
	s.log.Info().
		Str("txid", final).
		Str("amount", types.ToKas(res.Summary.FinalAmount)).
		Str("fees", types.ToKas(res.Summary.Fees)).
		Msg("Transfer submitted")
	return final, nil
}
