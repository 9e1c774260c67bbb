// internal/transaction/relay.go
package transaction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain"
	"go.uber.org/zap"
)

// RelayConfig описывает платный relay (bloXroute Trader API).
type RelayConfig struct {
	URL         string
	AuthHeader  string
	TipLamports uint64
	HTTPClient  *http.Client
}

// RelayChannel posts the signed transaction to a relay which forwards it
// through staked connections, then polls for confirmation like DirectChannel.
type RelayChannel struct {
	cfg       RelayConfig
	http      *http.Client
	confirmer *Confirmer
	logger    *zap.Logger
}

type relaySubmitRequest struct {
	Transaction struct {
		Content   string `json:"content"`
		IsCleanup bool   `json:"isCleanup"`
	} `json:"transaction"`
	SkipPreFlight          bool `json:"skipPreFlight"`
	FrontRunningProtection bool `json:"frontRunningProtection"`
	UseStakedRPCs          bool `json:"useStakedRPCs"`
}

type relaySubmitResponse struct {
	Data *struct {
		Signature string `json:"signature"`
	} `json:"data"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

func NewRelayChannel(cfg RelayConfig, confirmer *Confirmer, logger *zap.Logger) *RelayChannel {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RelayChannel{cfg: cfg, http: client, confirmer: confirmer, logger: logger.Named("relay")}
}

func (r *RelayChannel) Channel() Channel { return ChannelRelay }

func (r *RelayChannel) Trailer(payer solana.PublicKey) []solana.Instruction {
	ixs := []solana.Instruction{RelayMarkerInstruction()}
	if r.cfg.TipLamports > 0 {
		ixs = append(ixs, TipInstruction(payer, RelayTipAccount, r.cfg.TipLamports))
	}
	return ixs
}

func (r *RelayChannel) Send(ctx context.Context, tx *solana.Transaction, bh blockchain.BlockhashInfo) Result {
	sig, err := r.submit(ctx, tx)
	if err != nil {
		return Result{Channel: ChannelRelay, Err: err}
	}
	r.logger.Info("📨 Relay accepted transaction", zap.String("signature", sig.String()))

	slot, err := r.confirmer.Wait(ctx, sig, bh.LastValidBlockHeight)
	return Result{Signature: sig, Channel: ChannelRelay, Confirmed: err == nil, Slot: slot, Err: err}
}

func (r *RelayChannel) submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	content, err := tx.ToBase64()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to encode transaction: %w", err)
	}

	var body relaySubmitRequest
	body.Transaction.Content = content
	body.SkipPreFlight = true
	body.UseStakedRPCs = true
	payload, err := json.Marshal(body)
	if err != nil {
		return solana.Signature{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", r.cfg.AuthHeader)

	resp, err := r.http.Do(req)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrRelayRejected, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: read body: %v", ErrRelayRejected, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return solana.Signature{}, fmt.Errorf("%w: status %d", ErrRelayAuth, resp.StatusCode)
	case resp.StatusCode >= 300:
		return solana.Signature{}, fmt.Errorf("%w: status %d: %s", ErrRelayRejected, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out relaySubmitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return solana.Signature{}, fmt.Errorf("%w: invalid response: %v", ErrRelayRejected, err)
	}
	encoded := out.Signature
	if out.Data != nil && out.Data.Signature != "" {
		encoded = out.Data.Signature
	}
	if encoded == "" {
		return solana.Signature{}, fmt.Errorf("%w: no signature in response %s", ErrRelayRejected, out.Message)
	}
	sig, err := solana.SignatureFromBase58(encoded)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: bad signature %q: %v", ErrRelayRejected, encoded, err)
	}
	return sig, nil
}
