package merkle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashMarshalUnmarshalTextRoundTrip(t *testing.T) {
	h := HashWord(0x0123456789ABCDEF)

	text, err := h.MarshalText()
	require.NoError(t, err)
	require.Equal(t, h.String(), string(text))

	var got Hash
	require.NoError(t, got.UnmarshalText(text))
	require.Equal(t, h, got)
}

func TestHashJSONRoundTrip(t *testing.T) {
	h := HashPair(HashWord(1), HashWord(2))

	b, err := json.Marshal(h)
	require.NoError(t, err)

	var got Hash
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, h, got)
}

func TestHashUnmarshalTextRejectsWrongLength(t *testing.T) {
	var h Hash
	require.Error(t, h.UnmarshalText([]byte("0x0102")))
}
