package parser

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"redundancy-analyzer/src/model"
)

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(2)
	c.Put("a.go", []model.CodeModule{{ModuleName: "A"}})
	c.Put("b.go", []model.CodeModule{{ModuleName: "B"}})

	// touch a so b becomes the oldest
	_, ok := c.Get("a.go")
	assert.True(t, ok)

	c.Put("c.go", nil)
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("b.go")
	assert.False(t, ok)
	_, ok = c.Get("a.go")
	assert.True(t, ok)
}

func TestCache_FirstPutWins(t *testing.T) {
	c := NewCache(0)
	first := c.Put("a.go", []model.CodeModule{{ModuleName: "first"}})
	second := c.Put("a.go", []model.CodeModule{{ModuleName: "second"}})

	assert.Equal(t, "first", first[0].ModuleName)
	assert.Equal(t, "first", second[0].ModuleName)
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				path := fmt.Sprintf("f%d.go", (i*j)%32)
				if _, ok := c.Get(path); !ok {
					c.Put(path, nil)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
	hits, misses := c.Stats()
	assert.Equal(t, 800, hits+misses)
}
