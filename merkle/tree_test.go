package merkle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyTreeIsAllPristine(t *testing.T) {
	tr := New()
	require.Equal(t, Pristine(RootLevel), tr.GetRootHash())
}

func TestUpdatePageChangesRoot(t *testing.T) {
	tr := New()
	before := tr.GetRootHash()

	page := make([]byte, 1<<PageLevel)
	page[0] = 0xAA
	tr.UpdatePage(0x80000000, page)

	after := tr.GetRootHash()
	require.NotEqual(t, before, after)
}

func TestProofSoundnessAfterUpdate(t *testing.T) {
	tr := New()
	page := make([]byte, 1<<PageLevel)
	for i := range page {
		page[i] = byte(i)
	}
	const paddr = uint64(0x80001000)
	tr.UpdatePage(paddr, page)

	for _, lvl := range []int{LeafLevel, 4, PageLevel, 20, 40, RootLevel} {
		proof := tr.GetProof(paddr, lvl)
		require.True(t, proof.Verify(), "log2Size=%d", lvl)
		require.Equal(t, tr.GetRootHash(), proof.RootHash)
	}
}

func TestRootLevelProofHasNoSiblings(t *testing.T) {
	tr := New()
	proof := tr.GetProof(0, RootLevel)
	require.Empty(t, proof.SiblingHashes)
	require.Equal(t, tr.GetRootHash(), proof.TargetHash)
}

func TestGetWordRoundTrip(t *testing.T) {
	tr := New()
	page := make([]byte, 1<<PageLevel)
	page[8] = 0x07
	tr.UpdatePage(0x1000, page)
	require.Equal(t, uint64(7), tr.GetWord(0x1008))
	require.Equal(t, uint64(0), tr.GetWord(0x1000))
}

func TestDeterministicRootForSameContent(t *testing.T) {
	page := make([]byte, 1<<PageLevel)
	page[100] = 42

	t1 := New()
	t1.UpdatePage(0x2000, page)

	t2 := New()
	t2.UpdatePage(0x2000, page)

	require.Equal(t, t1.GetRootHash(), t2.GetRootHash())
}
