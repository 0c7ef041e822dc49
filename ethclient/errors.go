package ethclient

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// ErrRangeTooLarge can be used by fake clients in tests to emulate a provider
// rejecting an oversized eth_getLogs range.
var ErrRangeTooLarge = errors.New("requested block range is too large")

// rangeErrorMarkers are substrings of error messages returned by popular RPC
// providers when an eth_getLogs query spans too many blocks or results.
var rangeErrorMarkers = []string{
	"block range",
	"too many results",
	"query returned more than",
	"response size exceeded",
}

const providerLimitExceededCode = -32005

// IsRangeTooLarge reports whether err indicates that the queried block range
// should be shrunk and retried rather than treated as a transient failure.
func IsRangeTooLarge(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRangeTooLarge) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		if rpcErr.ErrorCode() == providerLimitExceededCode {
			return true
		}
		msg := strings.ToLower(rpcErr.Error())
		for _, marker := range rangeErrorMarkers {
			if strings.Contains(msg, marker) {
				return true
			}
		}
	}
	return false
}
