package selfheal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	present map[string]bool
}

func (f *fakeProber) Exists(ctx context.Context, locator string) (bool, error) {
	return f.present[locator], nil
}

type fakeResnapshotter struct {
	locator string
	err     error
	called  bool
}

func (f *fakeResnapshotter) Requery(ctx context.Context, targetPhrase string) (string, error) {
	f.called = true
	return f.locator, f.err
}

func TestRelaxExactMatchConvertsTextAndAttr(t *testing.T) {
	alts := RelaxExactMatch(`//button[text()='Submit']`)
	require.Contains(t, alts, `//button[contains(text(), 'Submit')]`)

	alts = RelaxExactMatch(`//input[@id='submit-btn']`)
	require.Contains(t, alts, `//input[contains(@id, 'submit-btn')]`)
}

func TestRemoveIndexStripsAndSubstitutes(t *testing.T) {
	alts := RemoveIndex(`//ul/li[3]/a`)
	require.Contains(t, alts, `//ul/li/a`)
	require.Contains(t, alts, `//ul/li[1]/a`)
	require.Contains(t, alts, `//ul/li[last()]/a`)
}

func TestRemoveIndexNoOpWithoutIndex(t *testing.T) {
	require.Nil(t, RemoveIndex(`//ul/li/a`))
}

func TestFuzzyTextGeneratesVariants(t *testing.T) {
	alts := FuzzyText(`//div[text()='Hello World']`)
	require.Len(t, alts, 3)
	require.Contains(t, alts[2], "contains(text(), 'Hello')")
}

func TestPivotGeneratesParentChildSibling(t *testing.T) {
	alts := Pivot(`//div[@id='x']`)
	require.Contains(t, alts, `//div[@id='x']/..`)
	require.Contains(t, alts, `//div[@id='x']/*[1]`)
	require.Contains(t, alts, `//div[@id='x']/following-sibling::*[1]`)
	require.Contains(t, alts, `//div[@id='x']/preceding-sibling::*[1]`)
}

func TestHealFindsRemoveIndexCandidate(t *testing.T) {
	probe := &fakeProber{present: map[string]bool{`//ul/li[1]/a`: true}}
	res, err := Heal(context.Background(), probe, nil, `//ul/li[3]/a`, "third item")
	require.NoError(t, err)
	require.Equal(t, `//ul/li[1]/a`, res.Locator)
	require.Equal(t, StrategyRemoveIndex, res.Strategy)
}

func TestHealFallsBackToResnapshot(t *testing.T) {
	probe := &fakeProber{present: map[string]bool{}}
	resnap := &fakeResnapshotter{locator: "//a[@id='new']"}
	res, err := Heal(context.Background(), probe, resnap, `//ul/li[3]/a`, "third item")
	require.NoError(t, err)
	require.True(t, resnap.called)
	require.Equal(t, StrategyResnapshot, res.Strategy)
	require.Equal(t, "//a[@id='new']", res.Locator)
}

func TestHealReturnsErrorWhenNothingResolves(t *testing.T) {
	probe := &fakeProber{present: map[string]bool{}}
	resnap := &fakeResnapshotter{err: errors.New("no fresh snapshot available")}
	_, err := Heal(context.Background(), probe, resnap, `//ul/li[3]/a`, "third item")
	require.Error(t, err)
}

func TestHealWithoutResnapshotterReturnsErrorOnExhaustion(t *testing.T) {
	probe := &fakeProber{present: map[string]bool{}}
	_, err := Heal(context.Background(), probe, nil, `//ul/li[3]/a`, "third item")
	require.Error(t, err)
}
