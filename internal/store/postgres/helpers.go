package postgres

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// addrKey normalizes an address for storage. Addresses are compared as text
// in SQL, so they must be stored in one canonical case.
func addrKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// parseBig converts a NUMERIC column scanned as text back into a big.Int.
func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("postgres: invalid numeric value %q", s)
	}
	return v, nil
}
