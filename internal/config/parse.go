package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"pairExchange/internal/amm"
)

// ParseIdentity converts a 20-byte hex string into an identity.
func ParseIdentity(input string) (amm.Identity, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return amm.Identity{}, fmt.Errorf("invalid identity: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAssetID converts a hex string of at most 32 bytes into an asset id,
// left-padding short values ("0x01").
func ParseAssetID(input string) (amm.AssetID, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "0x") && !strings.HasPrefix(input, "0X") {
		input = "0x" + input
	}
	if len(input)%2 == 1 {
		input = "0x0" + input[2:]
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return amm.AssetID{}, fmt.Errorf("invalid asset id %q: %w", input, err)
	}
	if len(data) > common.HashLength {
		return amm.AssetID{}, fmt.Errorf("asset id %q longer than %d bytes", input, common.HashLength)
	}
	return common.BytesToHash(data), nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	if isNumeric(input) {
		return strconv.ParseUint(input, 10, 64)
	}
	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

// ParseWindow parses a window length such as "5m" into whole seconds.
func ParseWindow(input string) (uint64, error) {
	d, err := time.ParseDuration(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("invalid window %q: %w", input, err)
	}
	if d < time.Second || d%time.Second != 0 {
		return 0, fmt.Errorf("window %q must be a positive whole number of seconds", input)
	}
	return uint64(d / time.Second), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
