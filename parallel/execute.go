// Package parallel splits data-parallel loops over a shared goroutine pool.
package parallel

import (
	"errors"
	"log"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// pool is non-blocking: a saturated pool makes Execute run the chunk inline, so
// nested calls (an FFT inside a params job inside an errgroup) never deadlock.
var pool = sync.OnceValue(func() *ants.Pool {
	p, err := ants.NewPool(runtime.GOMAXPROCS(0), ants.WithNonblocking(true))
	if err != nil {
		log.Fatalln(err)
	}
	return p
})

// Execute calls work on [0, n) split into at most GOMAXPROCS contiguous chunks and
// returns once every chunk is done.
func Execute(n int, work func(start, end int), maxTasks ...int) {
	nbTasks := runtime.GOMAXPROCS(0)
	if len(maxTasks) == 1 && maxTasks[0] > 0 && maxTasks[0] < nbTasks {
		nbTasks = maxTasks[0]
	}
	if nbTasks > n {
		nbTasks = n
	}
	if nbTasks <= 1 {
		if n > 0 {
			work(0, n)
		}
		return
	}

	chunk := n / nbTasks
	extra := n % nbTasks

	var wg sync.WaitGroup
	start := 0
	for i := 0; i < nbTasks; i++ {
		end := start + chunk
		if i < extra {
			end++
		}
		s, e := start, end
		wg.Add(1)
		err := pool().Submit(func() {
			defer wg.Done()
			work(s, e)
		})
		if err != nil {
			if !errors.Is(err, ants.ErrPoolOverload) {
				log.Fatalln(err)
			}
			work(s, e)
			wg.Done()
		}
		start = end
	}
	wg.Wait()
}
