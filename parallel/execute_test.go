package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecuteCoversRange(t *testing.T) {
	for _, n := range []int{0, 1, 7, 64, 1000} {
		seen := make([]int32, n)
		Execute(n, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i := range seen {
			require.Equal(t, int32(1), seen[i], "n=%d i=%d", n, i)
		}
	}
}

func TestExecuteNested(t *testing.T) {
	var total atomic.Int64
	Execute(32, func(start, end int) {
		for i := start; i < end; i++ {
			Execute(32, func(s, e int) {
				total.Add(int64(e - s))
			})
		}
	})
	require.Equal(t, int64(32*32), total.Load())
}

func TestExecuteMaxTasks(t *testing.T) {
	var calls atomic.Int32
	Execute(100, func(start, end int) {
		calls.Add(1)
	}, 1)
	require.Equal(t, int32(1), calls.Load())
}
