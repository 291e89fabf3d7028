package logbuf

import (
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcurrentWriteAndRead(t *testing.T) {
	var buf Buffer
	logger := log.New(&buf, "", 0)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				logger.Printf("line %d", i)
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = buf.String()
		}
	}()
	wg.Wait()
	<-done

	assert.Equal(t, 400, strings.Count(buf.String(), "\n"))
	buf.Reset()
	assert.Empty(t, buf.String())
}
