package oplog

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nalgeon/be"
)

func TestAppendAndFormat(t *testing.T) {
	l := New(10, nil)
	l.now = func() time.Time { return time.Date(2024, 1, 2, 13, 4, 5, 0, time.Local) }

	l.Append("converter says hi\n")
	l.Append("   ")
	l.Append("")

	entries := l.Entries()
	be.Equal(t, len(entries), 1)
	be.Equal(t, entries[0].Text, "converter says hi")
	be.Equal(t, entries[0].String(), "[13:04:05]\nconverter says hi")
}

func TestCapacityDropsOldest(t *testing.T) {
	l := New(3, nil)
	for i := 0; i < 5; i++ {
		l.Append(fmt.Sprintf("line %d", i))
	}

	entries := l.Entries()
	be.Equal(t, len(entries), 3)
	be.Equal(t, entries[0].Text, "line 2")
	be.Equal(t, entries[2].Text, "line 4")
}

func TestClearAndOnChange(t *testing.T) {
	l := New(5, nil)
	calls := 0
	l.OnChange(func() { calls++ })

	l.Append("a")
	l.Append("b")
	l.Clear()

	be.Equal(t, l.Len(), 0)
	be.Equal(t, calls, 3)
	be.Equal(t, l.String(), "")
}

func TestWriterAppendsChunks(t *testing.T) {
	l := New(5, nil)
	w := l.Writer()

	n, err := w.Write([]byte("chunk one\n"))
	be.Err(t, err, nil)
	be.Equal(t, n, 10)
	_, _ = w.Write([]byte("chunk two"))

	be.Equal(t, l.Len(), 2)
	be.True(t, strings.Contains(l.String(), "chunk one\n\n["))
}

func TestConcurrentAppend(t *testing.T) {
	l := New(1000, nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Append(fmt.Sprintf("%d-%d", i, j))
			}
		}(i)
	}
	wg.Wait()
	be.Equal(t, l.Len(), 500)
}
