package keyring

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	stringArgsOnce sync.Once
	stringArgs     abi.Arguments
)

func initStringArgs() {
	stringArgsOnce.Do(func() {
		stringType, err := abi.NewType("string", "", nil)
		if err != nil {
			panic(fmt.Sprintf("failed to build abi string type: %v", err))
		}
		stringArgs = abi.Arguments{{Type: stringType}}
	})
}

// EvmPrivateKey maps a derived credential hash to a 32-byte secp256k1 private
// key: keccak256 over the ABI string-encoding of the hash's lowercase hex.
// One-way and deterministic; the Tron account reuses the same key bytes and
// only the address encoding differs, so switching chain families never
// re-derives a different secret.
//
// The hex-then-ABI-encode step looks roundabout but is part of the derivation
// contract; the address space depends on these exact bytes.
func EvmPrivateKey(hash []byte) ([]byte, error) {
	if len(hash) != HashLen {
		return nil, fmt.Errorf("derived hash must be %d bytes, got %d", HashLen, len(hash))
	}
	initStringArgs()

	packed, err := stringArgs.Pack(hex.EncodeToString(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to encode hash: %w", err)
	}
	key := crypto.Keccak256(packed)

	// Reject the astronomically unlikely out-of-range scalar instead of
	// handing a broken key to the curve.
	if _, err := crypto.ToECDSA(key); err != nil {
		return nil, fmt.Errorf("derived key is not a valid curve scalar: %w", err)
	}
	return key, nil
}
