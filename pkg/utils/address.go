package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsEthereumAddress reports whether the address has the EVM shape (0x-prefixed, 20 bytes hex)
func IsEthereumAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return false
	}
	return common.IsHexAddress(address)
}

// FilterEthereumAddresses keeps the addresses matching the wanted shape.
// evm=true keeps EVM addresses, evm=false keeps everything else.
func FilterEthereumAddresses(addresses []string, evm bool) []string {
	filtered := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if IsEthereumAddress(address) == evm {
			filtered = append(filtered, address)
		}
	}
	return filtered
}
