package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/go-resty/resty/v2"

	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/adapter"
)

var _ adapter.ChainClient = (*HarmonyClient)(nil)

// HarmonyClient reads balances over the Harmony JSON-RPC endpoint. Deposit
// addresses are derived deterministically from the billing account id, so an
// account always tops up the same address.
type HarmonyClient struct {
	rpc           *resty.Client
	masterAddress string
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewHarmonyClient(rpcURL, masterAddress string) *HarmonyClient {
	return &HarmonyClient{
		rpc: resty.New().
			SetBaseURL(rpcURL).
			SetTimeout(10 * time.Second),
		masterAddress: masterAddress,
	}
}

func (h *HarmonyClient) GetBalance(ctx context.Context, address string) (model.Balance, error) {
	var out rpcResponse
	resp, err := h.rpc.R().
		SetContext(ctx).
		SetBody(rpcRequest{
			JSONRPC: "2.0",
			ID:      1,
			Method:  "hmyv2_getBalance",
			Params:  []interface{}{address},
		}).
		SetResult(&out).
		Post("")
	if err != nil {
		return model.Balance{}, fmt.Errorf("harmony rpc: %w", err)
	}
	if resp.IsError() {
		return model.Balance{}, fmt.Errorf("harmony rpc: http %d", resp.StatusCode())
	}
	if out.Error != nil {
		return model.Balance{}, fmt.Errorf("harmony rpc: %s", out.Error.Message)
	}
	atto, ok := parseQuantity(out.Result)
	if !ok {
		return model.Balance{}, fmt.Errorf("harmony rpc: malformed balance %q", out.Result)
	}
	return model.Balance{Atto: atto}, nil
}

// DeriveAddress maps an account id to its deposit address under the master
// wallet. The mapping only needs to be stable and collision-resistant; key
// custody lives in the payout service, not in the bot.
func (h *HarmonyClient) DeriveAddress(accountID string) string {
	sum := sha256.Sum256([]byte(h.masterAddress + ":" + accountID))
	return "0x" + hex.EncodeToString(sum[:20])
}

// parseQuantity accepts both decimal and 0x-prefixed hex quantities, which is
// what harmony nodes return depending on the API version.
func parseQuantity(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}
