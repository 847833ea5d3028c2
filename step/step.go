// Package step implements the step driver (C12): it refreshes the
// Merkle tree, snapshots the root, runs exactly one instruction through
// a logging state-access, and snapshots the root again.
package step

import (
	"github.com/creol-io/machine-emulator/access"
	"github.com/creol-io/machine-emulator/interp"
	"github.com/creol-io/machine-emulator/logaccess"
	"github.com/creol-io/machine-emulator/merkle"
	"github.com/creol-io/machine-emulator/pma"
	"github.com/creol-io/machine-emulator/replay"
	"github.com/creol-io/machine-emulator/state"
)

// Result is one step's outcome: the access log an eventual verifier can
// replay, and the root hashes it should reconstruct before and after.
type Result struct {
	Log            access.Log
	RootHashBefore merkle.Hash
	RootHashAfter  merkle.Hash
}

// RefreshDirtyPages drains every memory-backed PMA entry's dirty bitmap
// into tree, and re-projects the shadow page unconditionally (the shadow
// device has no dirty bitmap of its own; it is cheap to recompute since
// it is only 4 KiB and derived from scalars already in hand).
func RefreshDirtyPages(st *state.State, tree *merkle.Tree) {
	for _, e := range st.PMA.Entries() {
		if e.Memory == nil || e.Dirty == nil {
			continue
		}
		words := e.Dirty.Swap()
		for w, word := range words {
			if word == 0 {
				continue
			}
			for b := 0; b < 64; b++ {
				if word&(uint64(1)<<uint(b)) == 0 {
					continue
				}
				pageIdx := uint64(w)*64 + uint64(b)
				start := pageIdx * pma.PageSize
				if start >= uint64(len(e.Memory.Data)) {
					continue
				}
				end := start + pma.PageSize
				if end > uint64(len(e.Memory.Data)) {
					end = uint64(len(e.Memory.Data))
				}
				page := make([]byte, pma.PageSize)
				copy(page, e.Memory.Data[start:end])
				tree.UpdatePage(e.Start+start, page)
			}
		}
	}
	tree.UpdatePage(pma.ShadowStart, state.Peek(st))
}

// Run executes exactly one instruction under a logging state-access
// bound to st and tree, returning the resulting access log and root
// hash snapshots.
func Run(st *state.State, tree *merkle.Tree, logType access.LogType) (Result, error) {
	RefreshDirtyPages(st, tree)
	before := tree.GetRootHash()

	la := logaccess.New(st, tree, logType)
	if err := interp.Step(la); err != nil {
		return Result{}, err
	}

	RefreshDirtyPages(st, tree)
	after := tree.GetRootHash()

	return Result{Log: la.Log(), RootHashBefore: before, RootHashAfter: after}, nil
}

// Verify replays log against no real machine state, checking every
// access the interpreter performs in order and, when verifyProofs is
// set, checking each access's Merkle proof and folding it forward into
// a reconstructed root hash. oneBased controls whether replay errors
// report 1-based access indices.
func Verify(log access.Log, verifyProofs, oneBased bool) (merkle.Hash, error) {
	ra, err := replay.New(log, verifyProofs, oneBased)
	if err != nil {
		return merkle.Hash{}, err
	}
	if err := interp.Step(ra); err != nil {
		return merkle.Hash{}, err
	}
	if err := ra.Finish(); err != nil {
		return merkle.Hash{}, err
	}
	return ra.RootHash(), nil
}
