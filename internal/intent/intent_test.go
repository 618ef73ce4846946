package intent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuleBasedParserClick(t *testing.T) {
	p := NewRuleBasedParser()
	got, err := p.Parse("click the submit button")
	require.NoError(t, err)
	require.Equal(t, ActionClick, got.Action)
	require.Equal(t, "the submit button", got.TargetPhrase)
}

func TestRuleBasedParserTypeWithValue(t *testing.T) {
	p := NewRuleBasedParser()
	got, err := p.Parse(`type the search box with "golang tutorials"`)
	require.NoError(t, err)
	require.Equal(t, ActionType, got.Action)
	require.Equal(t, "the search box", got.TargetPhrase)
	require.Equal(t, "golang tutorials", got.Value)
}

func TestRuleBasedParserNavigate(t *testing.T) {
	p := NewRuleBasedParser()
	got, err := p.Parse("go to https://example.com/pricing")
	require.NoError(t, err)
	require.Equal(t, ActionNavigate, got.Action)
	require.Equal(t, "https://example.com/pricing", got.Value)
}

func TestRuleBasedParserDefaultsToClick(t *testing.T) {
	p := NewRuleBasedParser()
	got, err := p.Parse("the pricing link")
	require.NoError(t, err)
	require.Equal(t, ActionClick, got.Action)
	require.Equal(t, "the pricing link", got.TargetPhrase)
}

func TestRuleBasedParserSelectWithValue(t *testing.T) {
	p := NewRuleBasedParser()
	got, err := p.Parse(`select the country dropdown with "Canada"`)
	require.NoError(t, err)
	require.Equal(t, ActionSelect, got.Action)
	require.Equal(t, "Canada", got.Value)
}
