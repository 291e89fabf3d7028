// +build debug

package rbm

import (
	"bytes"
	"fmt"
)

// lumberjack traces every Gibbs step when built with the debug tag.
type lumberjack struct {
	*bytes.Buffer
	ch chan string
}

func makeLumberJack() lumberjack {
	return lumberjack{
		Buffer: new(bytes.Buffer),
		ch:     make(chan string),
	}
}

func (l *lumberjack) start() {
	for s := range l.ch {
		l.WriteString(s)
		l.WriteByte('\n')
	}
}

func (l *lumberjack) log(msg string, args ...interface{}) {
	// the layer matrices are overwritten on the next step
	l.ch <- fmt.Sprintf(msg, args...)
}

func (l *lumberjack) Reset() { l.Buffer.Reset() }

func (l lumberjack) Trace() string { return l.String() }
