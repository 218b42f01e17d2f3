package datastructures

import (
	"testing"
	"time"
)

func TestSafeQueueBasicOperations(t *testing.T) {
	q := NewSafeQueue[int](false)

	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)

	if value, ok := q.Dequeue(); !ok || value != 1 {
		t.Error("expected to dequeue 1")
	}
	if value, ok := q.Dequeue(); !ok || value != 2 {
		t.Error("expected to dequeue 2")
	}
	if value, ok := q.Dequeue(); !ok || value != 3 {
		t.Error("expected to dequeue 3")
	}
	if _, ok := q.Dequeue(); ok {
		t.Error("expected dequeue to fail on empty queue")
	}
}

func TestSafeQueueReadOperation(t *testing.T) {
	q := NewSafeQueue[int](true)
	defer q.Close()

	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)

	if value, ok := q.Read(true); !ok || value != 1 {
		t.Error("expected to read 1")
	}
	if value, ok := q.Read(true); !ok || value != 2 {
		t.Error("expected to read 2")
	}
	if value, ok := q.Read(true); !ok || value != 3 {
		t.Error("expected to read 3")
	}
	if q.Size() != 0 {
		t.Error("expected queue size 0 after draining")
	}

	go func() {
		time.Sleep(200 * time.Millisecond)
		q.Enqueue(4)
	}()

	done := make(chan struct {
		value int
		ok    bool
	}, 1)
	go func() {
		value, ok := q.Read(true)
		done <- struct {
			value int
			ok    bool
		}{value, ok}
	}()

	select {
	case result := <-done:
		if !result.ok || result.value != 4 {
			t.Error("expected to read 4")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for queue read")
	}
}

func TestSafeQueueConcurrentReaders(t *testing.T) {
	q := NewSafeQueue[int](true)
	defer q.Close()

	const readers, itemsPerReader = 5, 10
	results := make(chan int, readers*itemsPerReader)

	for i := 0; i < readers; i++ {
		go func() {
			for j := 0; j < itemsPerReader; j++ {
				if value, ok := q.Read(true); ok {
					results <- value
				}
			}
		}()
	}

	go func() {
		for i := 0; i < readers*itemsPerReader; i++ {
			q.Enqueue(i)
			time.Sleep(5 * time.Millisecond)
		}
	}()

	collected := make(map[int]bool)
	timeout := time.After(5 * time.Second)
	for i := 0; i < readers*itemsPerReader; i++ {
		select {
		case value := <-results:
			collected[value] = true
		case <-timeout:
			t.Fatalf("timeout: only collected %d of %d items", len(collected), readers*itemsPerReader)
		}
	}
	if len(collected) != readers*itemsPerReader {
		t.Errorf("expected %d unique items, got %d", readers*itemsPerReader, len(collected))
	}
}

func TestSafeQueueNonBlockingRead(t *testing.T) {
	q := NewSafeQueue[string](true)
	defer q.Close()

	if value, ok := q.Read(false); ok {
		t.Errorf("expected non-blocking read to fail on empty queue, got %q", value)
	}

	q.Enqueue("test")
	time.Sleep(50 * time.Millisecond)
	if value, ok := q.Read(false); !ok || value != "test" {
		t.Errorf("expected non-blocking read to return 'test', got %q ok=%v", value, ok)
	}
	if value, ok := q.Read(false); ok {
		t.Errorf("expected non-blocking read to fail again, got %q", value)
	}
}

func TestSafeQueueEndChannel(t *testing.T) {
	q := NewSafeQueue[int](true)
	defer q.Close()

	endCh := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(endCh)
	}()

	if value, ok := q.Read(true, endCh); ok {
		t.Errorf("expected read to be cancelled by end channel, got %d", value)
	}
}

func TestSafeQueueSize(t *testing.T) {
	q := NewSafeQueue[int](false)

	if size := q.Size(); size != 0 {
		t.Errorf("expected empty size 0, got %d", size)
	}
	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)
	if size := q.Size(); size != 3 {
		t.Errorf("expected size 3, got %d", size)
	}
	q.Dequeue()
	if size := q.Size(); size != 2 {
		t.Errorf("expected size 2, got %d", size)
	}
}

func TestSafeQueueFIFOOrder(t *testing.T) {
	q := NewSafeQueue[int](false)
	for i := 0; i < 10; i++ {
		q.Enqueue(i)
	}
	for i := 0; i < 10; i++ {
		if value, ok := q.Dequeue(); !ok || value != i {
			t.Errorf("expected to dequeue %d, got %d ok=%v", i, value, ok)
		}
	}
}

func TestSafeQueueClose(t *testing.T) {
	q := NewSafeQueue[int](true)
	if err := q.Close(); err != nil {
		t.Errorf("expected Close() to return nil, got %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected second Close() to return nil, got %v", err)
	}
}

func TestSafeQueueConcurrentEnqueueDequeue(t *testing.T) {
	q := NewSafeQueue[int](false)
	const goroutines, itemsPer = 10, 100
	dequeued := make(chan struct{}, goroutines*itemsPer)

	for i := 0; i < goroutines; i++ {
		go func(start int) {
			for j := 0; j < itemsPer; j++ {
				q.Enqueue(start*itemsPer + j)
			}
		}(i)
	}
	for i := 0; i < goroutines; i++ {
		go func() {
			for j := 0; j < itemsPer; j++ {
				for {
					if _, ok := q.Dequeue(); ok {
						dequeued <- struct{}{}
						break
					}
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}

	timeout := time.After(10 * time.Second)
	for i := 0; i < goroutines*itemsPer; i++ {
		select {
		case <-dequeued:
		case <-timeout:
			t.Fatalf("timeout after dequeuing %d of %d items", i, goroutines*itemsPer)
		}
	}
}
