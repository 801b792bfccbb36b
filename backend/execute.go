package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	simulateTimeout = 10 * time.Second
	sendTimeout     = 10 * time.Second
	confirmPoll     = 500 * time.Millisecond
	sendMaxRetries  = uint(2)
)

// ErrConfirmationTimeout marks the ambiguous case where a broadcast
// transaction was neither confirmed nor rejected before the deadline.
// It may still land.
var ErrConfirmationTimeout = fmt.Errorf("confirmation timeout")

// BuildTransaction assembles instructions into one transaction with the
// cached recent block hash and the wallet as fee payer.
func (backend *Backend) BuildTransaction(ins []solana.Instruction) (*solana.Transaction, error) {
	builder := solana.NewTransactionBuilder()
	for _, in := range ins {
		builder.AddInstruction(in)
	}
	builder.SetRecentBlockHash(backend.RecentBlockHash())
	builder.SetFeePayer(backend.player)
	return builder.Build()
}

func (backend *Backend) SignTransaction(trx *solana.Transaction) error {
	_, err := trx.Sign(backend.getWallet)
	return err
}

// Simulate dry-runs the transaction against current chain state. Any
// simulation error is returned verbatim.
func (backend *Backend) Simulate(ctx context.Context, trx *solana.Transaction) error {
	callCtx, cancel := context.WithTimeout(ctx, simulateTimeout)
	defer cancel()
	response, err := backend.rpcClient.SimulateTransactionWithOpts(callCtx, trx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		Commitment:             rpc.CommitmentProcessed,
		ReplaceRecentBlockhash: true,
	})
	if err != nil {
		return err
	}
	if response.Value == nil {
		return fmt.Errorf("empty simulation response")
	}
	if response.Value.Err != nil {
		backend.logger.Printf("simulate err: %v, logs: %v", response.Value.Err, response.Value.Logs)
		return fmt.Errorf("simulate err: %v", response.Value.Err)
	}
	return nil
}

// SendRawTransaction broadcasts signed transaction bytes directly.
func (backend *Backend) SendRawTransaction(ctx context.Context, serialized []byte) (solana.Signature, error) {
	callCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	maxRetries := sendMaxRetries
	signature, err := backend.rpcClient.SendRawTransactionWithOpts(callCtx, serialized, rpc.TransactionOpts{
		SkipPreflight: true,
		MaxRetries:    &maxRetries,
	})
	if err != nil {
		backend.logger.Printf("SendRawTransactionWithOpts err: %s", err.Error())
		return solana.Signature{}, err
	}
	return signature, nil
}

// WaitConfirmation polls the signature status until it reaches the
// confirmed commitment, errors on-chain, or the deadline passes.
func (backend *Backend) WaitConfirmation(ctx context.Context, signature solana.Signature, deadline time.Duration) error {
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	ticker := time.NewTicker(confirmPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			response, err := backend.rpcClient.GetSignatureStatuses(callCtx, true, signature)
			if err != nil {
				backend.logger.Printf("GetSignatureStatuses err: %s", err.Error())
				continue
			}
			if len(response.Value) == 0 || response.Value[0] == nil {
				continue
			}
			status := response.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction failed on chain: %v", status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		case <-callCtx.Done():
			return ErrConfirmationTimeout
		}
	}
}
