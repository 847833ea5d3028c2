package access

import "github.com/creol-io/machine-emulator/merkle"

// Type discriminates a read from a write in one logged access.
type Type int

const (
	Read Type = iota
	Write
)

func (t Type) String() string {
	if t == Write {
		return "write"
	}
	return "read"
}

// LogType selects what a logging state-access records: proofs cost a
// Merkle walk per access and are only needed when the log will be
// verified against a root hash rather than just replayed for its side
// effects.
type LogType struct {
	Proofs      bool
	Annotations bool
}

// WordAccess is one logged read or write of an aligned word, mirroring
// the original machine's word_access record: the value read (or the
// value present before a write), the value written (writes only), and
// an optional inclusion proof.
type WordAccess struct {
	Type     Type
	Address  uint64
	Log2Size int
	Read     uint64
	Written  uint64
	Proof    *merkle.Proof
}

// Bracket annotates a region of the log for human consumption; it plays
// no part in replay verification.
type Bracket struct {
	Type BracketType
	Text string
	Note int
}

// Log is the ordered sequence of accesses a logging state-access
// produces while executing exactly one instruction, plus the brackets
// and notes recorded alongside it.
type Log struct {
	Type      LogType
	Accesses  []WordAccess
	Brackets  []Bracket
	Notes     []string
}
