package merkle

// Proof is the sibling chain from a leaf (or subtree root) up to the
// tree's root, sufficient to recompute the root from a single target
// hash.
type Proof struct {
	Address       uint64
	Log2Size      int
	TargetHash    Hash
	SiblingHashes []Hash
	RootHash      Hash
}

// GetProof returns the proof for the subtree of size 2^log2Size covering
// addr. 3 <= log2Size <= 64. For log2Size == RootLevel the proof carries
// no siblings and TargetHash equals RootHash.
func (t *Tree) GetProof(addr uint64, log2Size int) Proof {
	target := t.hashAt(addr, log2Size)
	var siblings []Hash
	for level := log2Size; level < RootLevel; level++ {
		siblingAddr := addr ^ (uint64(1) << uint(level))
		siblings = append(siblings, t.hashAt(siblingAddr, level))
	}
	mask := (uint64(1) << uint(log2Size)) - 1
	return Proof{
		Address:       addr &^ mask,
		Log2Size:      log2Size,
		TargetHash:    target,
		SiblingHashes: siblings,
		RootHash:      t.GetRootHash(),
	}
}

// Fold recomputes a root hash by folding target up through siblings,
// placing the rolling hash on the side indicated by the address bit at
// each level. addr only needs its bits from log2Size upward to be
// correct; low bits are irrelevant.
func Fold(addr uint64, log2Size int, target Hash, siblings []Hash) Hash {
	rolling := target
	for i, sibling := range siblings {
		level := log2Size + i
		if (addr>>uint(level))&1 == 0 {
			rolling = HashPair(rolling, sibling)
		} else {
			rolling = HashPair(sibling, rolling)
		}
	}
	return rolling
}

// Verify reports whether proof folds to its own claimed root hash.
func (p Proof) Verify() bool {
	return Fold(p.Address, p.Log2Size, p.TargetHash, p.SiblingHashes) == p.RootHash
}
