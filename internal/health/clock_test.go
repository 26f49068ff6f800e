package health

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWebhookClock_ZeroValue(t *testing.T) {
	var c WebhookClock
	_, ok := c.Last()
	assert.False(t, ok)
}

func TestWebhookClock_KeepsLatest(t *testing.T) {
	var c WebhookClock
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c.Observe(base.Add(time.Minute))
	c.Observe(base) // older delivery arriving late

	got, ok := c.Last()
	assert.True(t, ok)
	assert.True(t, got.Equal(base.Add(time.Minute)))
}

func TestWebhookClock_Concurrent(t *testing.T) {
	var c WebhookClock
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Observe(base.Add(time.Duration(i) * time.Second))
		}(i)
	}
	wg.Wait()

	got, _ := c.Last()
	assert.True(t, got.Equal(base.Add(50*time.Second)))
}
