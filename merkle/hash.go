// Package merkle implements the sparse binary hash tree over the full
// 2^64-byte physical address space, with an 8-byte word as its leaf.
// Interior hashes are Keccak-256 of the concatenation of their two
// children.
package merkle

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Hash is a 32-byte Keccak-256 digest.
type Hash [32]byte

// String renders the hash the same way MarshalText does, so it prints
// legibly in error messages and structured log attributes.
func (h Hash) String() string {
	return hexutil.Encode(h[:])
}

// MarshalText renders the hash as a 0x-prefixed hex string, so an
// access.Log serialises the same way the rest of the ecosystem's Keccak
// hashes do.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(h[:])), nil
}

// UnmarshalText parses a 0x-prefixed hex string of exactly 32 bytes.
func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return err
	}
	if len(b) != len(h) {
		return &hashLengthError{got: len(b)}
	}
	copy(h[:], b)
	return nil
}

type hashLengthError struct{ got int }

func (e *hashLengthError) Error() string {
	return "merkle: hash must be 32 bytes"
}

// LeafLevel is log2 of the leaf word size (8 bytes).
const LeafLevel = 3

// RootLevel is log2 of the address space size covered by the tree.
const RootLevel = 64

// PageLevel is log2 of the page size, the unit update_page operates on.
const PageLevel = 12

// HashPair hashes the concatenation of two child hashes.
func HashPair(left, right Hash) Hash {
	return Hash(crypto.Keccak256Hash(left[:], right[:]))
}

// HashWord hashes the little-endian bytes of one 8-byte leaf word.
func HashWord(word uint64) Hash {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], word)
	return Hash(crypto.Keccak256Hash(b[:]))
}

// pristine[k] is the hash of a fully-zeroed subtree covering 2^k bytes,
// for k in [LeafLevel, RootLevel]. Precomputed once, exactly as
// rvgo/fast/memory.go precomputes zeroHashes.
var pristine = func() [RootLevel + 1]Hash {
	var out [RootLevel + 1]Hash
	out[LeafLevel] = HashWord(0)
	for k := LeafLevel + 1; k <= RootLevel; k++ {
		out[k] = HashPair(out[k-1], out[k-1])
	}
	return out
}()

// Pristine returns the hash of an empty subtree covering 2^level bytes.
func Pristine(level int) Hash {
	return pristine[level]
}
