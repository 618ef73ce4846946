package embedding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanBatchesRespectsOrder(t *testing.T) {
	texts := []string{"one", "two", "three", "four"}
	batches := PlanBatches(texts, 0)
	require.Equal(t, [][]string{texts}, batches)
}

func TestPlanBatchesSplitsOnBudget(t *testing.T) {
	texts := []string{"alpha beta gamma delta", "epsilon"}
	batches := PlanBatches(texts, 1)

	var flattened []string
	for _, b := range batches {
		flattened = append(flattened, b...)
	}
	require.Equal(t, texts, flattened)
	require.Len(t, batches, 2)
}

func TestPlanBatchesOversizedSingleItemGetsOwnBatch(t *testing.T) {
	huge := "word "
	for i := 0; i < 50; i++ {
		huge += "word "
	}
	batches := PlanBatches([]string{huge}, 1)
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
}
