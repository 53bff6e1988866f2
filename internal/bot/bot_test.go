package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatchRunsHandlersConcurrently(t *testing.T) {
	var b Bot
	release := make(chan struct{})
	var done atomic.Int32

	for i := 0; i < 3; i++ {
		b.dispatch(context.Background(), "test", func(context.Context) error {
			<-release
			done.Add(1)
			return nil
		})
	}
	close(release)
	b.running.Wait()
	assert.EqualValues(t, 3, done.Load())
}

func TestDispatchSurvivesPanics(t *testing.T) {
	var b Bot
	var finished atomic.Bool

	b.dispatch(context.Background(), "test", func(context.Context) error {
		panic("boom")
	})
	b.dispatch(context.Background(), "test", func(context.Context) error {
		time.Sleep(5 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	b.running.Wait()
	assert.True(t, finished.Load())
}
