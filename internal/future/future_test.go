package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoCompletesWithValue(t *testing.T) {
	f := Go(func() (int, error) { return 42, nil })

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFailedCarriesErrorUnchanged(t *testing.T) {
	boom := errors.New("boom")

	_, err := Failed[string](boom).Get()
	assert.Same(t, boom, err)
}

func TestThenSkipsMapperOnFailure(t *testing.T) {
	boom := errors.New("boom")
	called := false

	f := Then(Failed[int](boom), func(int) (string, error) {
		called = true
		return "x", nil
	})

	_, err := f.Get()
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestThenMapsValue(t *testing.T) {
	f := Then(Resolved(2), func(v int) (int, error) { return v * 21, nil })

	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDiscard(t *testing.T) {
	_, err := Discard(Resolved("ignored")).Get()
	assert.NoError(t, err)
}

func TestAwaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	f := Go(func() (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConcurrentAwaiters(t *testing.T) {
	f := Go(func() (int, error) {
		time.Sleep(5 * time.Millisecond)
		return 7, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := f.Get()
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}
	wg.Wait()
}
