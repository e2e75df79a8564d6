// Package tron implements the account contract for the Tron network and its
// bandwidth/energy resource model. Accounts must be activated by an inbound
// transfer before they can act, and the same secp256k1 key as the EVM variant
// is reused; only the address encoding differs.
package tron

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

// addressPrefix is Tron's mainnet address version byte.
const addressPrefix = 0x41

// addressFromPubkey derives the 21-byte Tron address: the version byte
// followed by the last 20 bytes of keccak256 over the uncompressed public key
// without its 0x04 tag.
func addressFromPubkey(pub *ecdsa.PublicKey) []byte {
	uncompressed := crypto.FromECDSAPub(pub)
	hash := crypto.Keccak256(uncompressed[1:])
	return append([]byte{addressPrefix}, hash[12:]...)
}

// encodeAddress renders a 21-byte address in base58check.
func encodeAddress(raw []byte) string {
	chk := checksum(raw)
	return base58.Encode(append(raw, chk...))
}

// decodeAddress parses a base58check address back into its 21 raw bytes.
func decodeAddress(address string) ([]byte, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("not base58: %w", err)
	}
	if len(decoded) != 25 {
		return nil, fmt.Errorf("unexpected address length %d", len(decoded))
	}
	raw, chk := decoded[:21], decoded[21:]
	if raw[0] != addressPrefix {
		return nil, fmt.Errorf("unexpected address prefix 0x%02x", raw[0])
	}
	expected := checksum(raw)
	for i := range chk {
		if chk[i] != expected[i] {
			return nil, fmt.Errorf("checksum mismatch")
		}
	}
	return raw, nil
}

// isValidAddress reports whether value parses as a mainnet Tron address.
func isValidAddress(value string) bool {
	_, err := decodeAddress(value)
	return err == nil
}

func checksum(raw []byte) []byte {
	first := sha256.Sum256(raw)
	second := sha256.Sum256(first[:])
	return second[:4]
}
