package bridgeabi

//nolint:golint
import (
	_ "embed"

	"github.com/omni/bridge-relay/contract/abi"
)

//go:embed bridge.json
var bridgeJSONABI string

const (
	TokensLocked = "event TokensLocked(address indexed from, uint256 indexed toChainId, uint256 amount, uint256 nonce)"
)

var (
	BridgeABI = abi.MustReadABI(bridgeJSONABI)

	TokensLockedEventSignature = BridgeABI.Events["TokensLocked"].ID
)
