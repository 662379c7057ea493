package lru

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutGetPromotes(t *testing.T) {
	l := New[string, string]()
	l.Put("a", "1", 10)
	l.Put("b", "2", 10)

	v, ok := l.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	// b is now the oldest because a was promoted.
	oldest, ok := l.Oldest()
	assert.True(t, ok)
	assert.Equal(t, "b", oldest)
}

func TestPutReplaceAdjustsBytes(t *testing.T) {
	l := New[string, int]()
	l.Put("a", 1, 100)
	l.Put("a", 2, 40)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, int64(40), l.Bytes())

	v, _ := l.Get("a")
	assert.Equal(t, 2, v)
}

func TestEvictOldestOrder(t *testing.T) {
	l := New[string, int]()
	l.Put("a", 1, 1)
	l.Put("b", 2, 1)
	l.Put("c", 3, 1)
	l.Get("a") // promote a; eviction order becomes b, c, a

	evicted := l.EvictOldest(2)
	assert.Equal(t, []string{"b", "c"}, evicted)
	assert.Equal(t, 1, l.Len())

	_, ok := l.Get("a")
	assert.True(t, ok)
}

func TestEvictOldestPastEmpty(t *testing.T) {
	l := New[string, int]()
	l.Put("a", 1, 1)
	evicted := l.EvictOldest(5)
	assert.Equal(t, []string{"a"}, evicted)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, int64(0), l.Bytes())
}

func TestEvictUntilFits(t *testing.T) {
	l := New[string, int]()
	l.Put("a", 1, 50)
	l.Put("b", 2, 30)
	l.Put("c", 3, 20)

	// Need total <= 40: evicts a (oldest), then b.
	evicted := l.EvictUntil(func(b int64) bool { return b <= 40 })
	assert.Equal(t, []string{"a", "b"}, evicted)
	assert.Equal(t, int64(20), l.Bytes())
}

func TestRemoveAndClear(t *testing.T) {
	l := New[string, int]()
	l.Put("a", 1, 5)
	l.Put("b", 2, 5)

	assert.True(t, l.Remove("a"))
	assert.False(t, l.Remove("a"))
	assert.Equal(t, int64(5), l.Bytes())

	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, int64(0), l.Bytes())
	_, ok := l.Get("b")
	assert.False(t, ok)
}

func TestPeekDoesNotPromote(t *testing.T) {
	l := New[string, int]()
	l.Put("a", 1, 1)
	l.Put("b", 2, 1)

	_, ok := l.Peek("a")
	assert.True(t, ok)

	oldest, _ := l.Oldest()
	assert.Equal(t, "a", oldest)
}
