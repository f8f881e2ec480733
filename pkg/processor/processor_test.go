package processor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/blocking"
	"github.com/Ramsey-B/fern/pkg/models"
)

func TestLiveIndexSwap(t *testing.T) {
	logger := testLogger()
	blocker := blocking.NewEngine(logger, blocking.EngineConfig{MaxBlockSize: 100})
	proc := NewProcessor(logger, nil, blocker, blocking.AllStrategies, nil, nil, nil, nil)

	t.Run("nil until an index is installed", func(t *testing.T) {
		assert.Nil(t, proc.liveIndex())
	})

	t.Run("swap is visible to readers", func(t *testing.T) {
		index := blocker.Index(context.Background(), []*models.Record{
			{ID: "ent-1", Name: strPtr("Jane Doe")},
		}, blocking.AllStrategies)

		proc.setIndex(index)
		assert.Same(t, index, proc.liveIndex())
	})

	// concurrent rebuild swaps against consumer-side reads and inserts
	t.Run("concurrent swap and read", func(t *testing.T) {
		ctx := context.Background()
		var wg sync.WaitGroup

		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func(n int) {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					index := blocker.Index(ctx, []*models.Record{
						{ID: "ent-1", Name: strPtr("Jane Doe")},
					}, blocking.AllStrategies)
					proc.setIndex(index)
				}
			}(i)
			go func(n int) {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					if index := proc.liveIndex(); index != nil {
						blocker.Add(ctx, index, &models.Record{ID: "ent-2", Name: strPtr("Jane Doe")}, blocking.AllStrategies)
					}
				}
			}(i)
		}
		wg.Wait()

		assert.NotNil(t, proc.liveIndex())
	})
}
