package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booru-dl/internal/model"
)

func TestNewCapacity(t *testing.T) {
	q := New(5)
	assert.Equal(t, 20, q.Cap())
}

func TestNewCapacityFloorsAtFour(t *testing.T) {
	q := New(0)
	assert.Equal(t, 4, q.Cap())
}

func TestSendRecvFIFO(t *testing.T) {
	q := New(1)
	p1 := model.NewPost(1, model.SiteDanbooru, nil)
	p2 := model.NewPost(2, model.SiteDanbooru, nil)

	go func() {
		q.Send(p1)
		q.Send(p2)
		q.Close()
	}()

	first, ok := q.Recv()
	require.True(t, ok)
	assert.Equal(t, uint64(1), first.Post.ID)

	second, ok := q.Recv()
	require.True(t, ok)
	assert.Equal(t, uint64(2), second.Post.ID)

	term, ok := q.Recv()
	require.True(t, ok)
	assert.True(t, term.Terminator)
}

func TestBackpressureBound(t *testing.T) {
	q := New(1) // capacity 4
	done := make(chan struct{})
	go func() {
		for i := uint64(0); i < 10; i++ {
			q.Send(model.NewPost(i, model.SiteDanbooru, nil))
		}
		q.Close()
		close(done)
	}()

	// Drain slowly, observing that depth never exceeds capacity.
	for i := 0; i < 10; i++ {
		item, ok := q.Recv()
		require.True(t, ok)
		require.False(t, item.Terminator)
		assert.LessOrEqual(t, q.Len(), q.Cap())
	}
	_, ok := q.Recv()
	require.True(t, ok)
	<-done
}
