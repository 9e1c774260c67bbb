// internal/blockchain/solbc/errors.go
package solbc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain"
)

var (
	ErrAccountNotFound = blockchain.ErrAccountNotFound
	ErrInvalidResponse = errors.New("invalid RPC response")
)

var nowFunc = time.Now

// RPCError представляет ошибку RPC с дополнительным контекстом
type RPCError struct {
	Err     error
	NodeURL string
	Method  string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// AnchorError is a program error reported through Anchor's log line.
type AnchorError struct {
	Code int
	Name string
	Msg  string
}

// AnchorErrorFromLogs finds the first Anchor error line in program logs.
// Example: "Program log: AnchorError occurred. Error Code: TooMuchSolRequired. Error Number: 6002. Error Message: slippage."
func AnchorErrorFromLogs(logs []string) (AnchorError, bool) {
	for _, line := range logs {
		if strings.Contains(line, "AnchorError") {
			return parseAnchorErrorLog(line), true
		}
	}
	return AnchorError{}, false
}

// AnchorErrorFromRPC extracts an Anchor error from a failed preflight response.
func AnchorErrorFromRPC(err error) (AnchorError, bool) {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return AnchorError{}, false
	}
	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return AnchorError{}, false
	}
	raw, ok := data["logs"].([]interface{})
	if !ok {
		return AnchorError{}, false
	}
	logs := make([]string, 0, len(raw))
	for _, l := range raw {
		if s, ok := l.(string); ok {
			logs = append(logs, s)
		}
	}
	return AnchorErrorFromLogs(logs)
}

func parseAnchorErrorLog(line string) AnchorError {
	var out AnchorError
	if v, ok := anchorField(line, "Error Number:"); ok {
		out.Code, _ = strconv.Atoi(v)
	}
	if v, ok := anchorField(line, "Error Code:"); ok {
		out.Name = v
	}
	if _, rest, ok := strings.Cut(line, "Error Message:"); ok {
		out.Msg = strings.TrimSuffix(strings.TrimSpace(rest), ".")
	}
	return out
}

func anchorField(line, label string) (string, bool) {
	_, rest, ok := strings.Cut(line, label)
	if !ok {
		return "", false
	}
	value, _, _ := strings.Cut(rest, ".")
	return strings.TrimSpace(value), true
}
