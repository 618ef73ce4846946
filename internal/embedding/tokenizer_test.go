package embedding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWordPieceTokenizerWrapsWithClsAndSep(t *testing.T) {
	tok, err := newWordPieceTokenizer("")
	require.NoError(t, err)

	out := tok.Tokenize("click submit", 32)
	require.Equal(t, tok.clsTokenID, out.InputIDs[0])
	require.Equal(t, tok.sepTokenID, out.InputIDs[len(out.InputIDs)-1])
	require.Equal(t, len(out.InputIDs), len(out.AttentionMask))
}

func TestWordPieceTokenizerTruncatesToMaxLength(t *testing.T) {
	tok, err := newWordPieceTokenizer("")
	require.NoError(t, err)

	out := tok.Tokenize("click submit button search input field menu nav", 5)
	require.LessOrEqual(t, len(out.InputIDs), 5)
	require.Equal(t, tok.sepTokenID, out.InputIDs[len(out.InputIDs)-1])
}

func TestWordPieceTokenizerUnknownWordFallsBackToUNK(t *testing.T) {
	tok, err := newWordPieceTokenizer("")
	require.NoError(t, err)

	out := tok.Tokenize("zzzznotinvocabzzzz", 32)
	require.Contains(t, out.InputIDs, tok.unkTokenID)
}
