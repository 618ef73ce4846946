package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeExistsAndUnique(t *testing.T) {
	f := NewFake()
	f.Present["//button[1]"] = true
	f.Ambiguous["//button[1]"] = true

	ok, err := f.Exists(context.Background(), "//button[1]", StrategyXPath)
	require.NoError(t, err)
	require.True(t, ok)

	unique, err := f.Unique(context.Background(), "//button[1]", StrategyXPath)
	require.NoError(t, err)
	require.False(t, unique)

	ok, err = f.Exists(context.Background(), "//missing", StrategyXPath)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFakeClickRecordsCallAndSucceeds(t *testing.T) {
	f := NewFake()
	out := f.Click(context.Background(), "//button[1]")
	require.True(t, out.OK)
	require.NoError(t, out.Err)
	require.Len(t, f.Calls, 1)
	require.Equal(t, "click", f.Calls[0].Method)
}

func TestFakeFailLocatorReturnsError(t *testing.T) {
	f := NewFake()
	f.FailLocators["//broken"] = true

	out := f.Type(context.Background(), "//broken", "hello")
	require.False(t, out.OK)
	require.Error(t, out.Err)
}
