// hazarddemo runs a reader and writer goroutine racing over a single
// hazard-protected Config cell: the writer repeatedly publishes fresh
// configs, the reader repeatedly loads and prints the current one.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/fmstephe/hazard"
)

var (
	itersFlag = flag.Int("iters", 20, "The number of configs for the reader to print")
	seedFlag  = flag.Int64("seed", 0x1000, "The random seed used to generate configs")
)

// Config mirrors the original demo's plain struct of three values, swapped
// in and out of a single shared cell.
type Config struct {
	V1, V2, V3 uint32
}

func printConfig(name string, c *Config) {
	fmt.Printf("%s : { 0x%08x, 0x%08x, 0x%08x }\n", name, c.V1, c.V2, c.V3)
}

func main() {
	flag.Parse()

	var cell atomic.Pointer[Config]
	cell.Store(&Config{})

	domain := hazard.New[Config](func(*Config) {})
	defer domain.Free()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		readerLoop(domain, &cell, *itersFlag)
	}()

	go func() {
		defer wg.Done()
		writerLoop(domain, &cell, *itersFlag/2, *seedFlag)
	}()

	wg.Wait()
}

func readerLoop(domain *hazard.Domain[Config], cell *atomic.Pointer[Config], iters int) {
	// Wait until the writer starts publishing non-zero configs.
	for {
		c := hazard.Load(domain, cell)
		sum := c.V1 + c.V2
		hazard.Drop(domain, c)
		if sum != 0 {
			break
		}
	}

	for i := 0; i < iters; i++ {
		c := hazard.Load(domain, cell)
		printConfig("read config   ", c)
		hazard.Drop(domain, c)
	}
}

func writerLoop(domain *hazard.Domain[Config], cell *atomic.Pointer[Config], iters int, seed int64) {
	r := rand.New(rand.NewSource(seed))

	for i := 0; i < iters; i++ {
		c := &Config{
			V1: r.Uint32(),
			V2: r.Uint32(),
			V3: r.Uint32(),
		}
		printConfig("updated config", c)
		hazard.Swap(domain, cell, c, hazard.Sync)
	}
}
