package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendIsWriteOnce(t *testing.T) {
	l := New[int](4)
	require.True(t, l.Append("a.tif", 1))
	require.False(t, l.Append("a.tif", 2))

	v, ok := l.Get("a.tif")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.Equal(t, 1, l.Len())
}

func TestKeysKeepInsertionOrder(t *testing.T) {
	l := New[int](4)
	l.Append("c.tif", 3)
	l.Append("a.tif", 1)
	l.Append("b.tif", 2)

	require.Equal(t, []string{"c.tif", "a.tif", "b.tif"}, l.Keys())

	var visited []string
	l.Each(func(k string, _ int) { visited = append(visited, k) })
	require.Equal(t, []string{"c.tif", "a.tif", "b.tif"}, visited)
}

func TestConcurrentAppend(t *testing.T) {
	l := New[int](64)
	wg := sync.WaitGroup{}
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Append(fmt.Sprintf("f%02d.tif", i), i)
		}(i)
	}
	wg.Wait()
	require.Equal(t, 64, l.Len())
}

func TestMaxValueKey(t *testing.T) {
	l := New[time.Duration](4)
	l.Append("a.tif", 2*time.Second)
	l.Append("b.tif", 9*time.Second)
	l.Append("c.tif", 9*time.Second)
	l.Append("d.tif", time.Second)

	k, v, n := MaxValueKey(l)
	require.Equal(t, "b.tif", k)
	require.Equal(t, 9*time.Second, v)
	require.Equal(t, uint(2), n)
}

func TestRankByValue(t *testing.T) {
	l := New[time.Duration](4)
	l.Append("slow.tif", 30*time.Second)
	l.Append("fast.tif", time.Second)
	l.Append("mid.tif", 10*time.Second)

	require.Equal(t, []string{"fast.tif", "mid.tif", "slow.tif"}, RankByValue(l))

	empty := New[int](0)
	require.Empty(t, RankByValue(empty))
}
