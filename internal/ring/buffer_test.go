package ring

import (
	"testing"

	"github.com/probelabs/visor/internal/assert"
)

// TestNew_EdgeCases tests buffer creation with various edge case inputs
func TestNew_EdgeCases(t *testing.T) {
	// Disable strict mode and logs to test error returns cleanly
	oldStrictMode := assert.StrictMode
	oldSuppressLogs := assert.SuppressLogs
	assert.StrictMode = false
	assert.SuppressLogs = true
	defer func() {
		assert.StrictMode = oldStrictMode
		assert.SuppressLogs = oldSuppressLogs
	}()

	tests := []struct {
		name      string
		capacity  int
		wantError bool
	}{
		{"zero capacity", 0, true},
		{"negative capacity", -1, true},
		{"valid small capacity", 1, false},
		{"valid large capacity", 10000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := New[int](tt.capacity)
			if tt.wantError {
				if err == nil {
					t.Errorf("expected error for capacity %d, got nil", tt.capacity)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error for capacity %d: %v", tt.capacity, err)
				}
				if buf == nil {
					t.Errorf("expected non-nil buffer for capacity %d", tt.capacity)
				}
			}
		})
	}
}

func TestPushPop_Boundaries(t *testing.T) {
	const capacity = 3
	buf, err := New[string](capacity)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}

	if _, err := buf.Pop(); err != ErrBufferEmpty {
		t.Errorf("expected ErrBufferEmpty, got %v", err)
	}

	for i := 0; i < capacity; i++ {
		if err := buf.Push("item"); err != nil {
			t.Fatalf("failed to push item %d: %v", i, err)
		}
	}

	if err := buf.Push("overflow"); err != ErrBufferFull {
		t.Errorf("expected ErrBufferFull, got %v", err)
	}
	if !buf.IsFull() {
		t.Error("buffer should be full")
	}

	for i := 0; i < capacity; i++ {
		if _, err := buf.Pop(); err != nil {
			t.Fatalf("failed to pop item %d: %v", i, err)
		}
	}
	if !buf.IsEmpty() {
		t.Error("buffer should be empty")
	}
}

func TestPushPop_FIFOOrderWithWraparound(t *testing.T) {
	buf, err := New[int](4)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}

	// Exercise wraparound by cycling more items than capacity.
	next := 0
	for cycle := 0; cycle < 3; cycle++ {
		for i := 0; i < 4; i++ {
			if err := buf.Push(next); err != nil {
				t.Fatalf("push %d failed: %v", next, err)
			}
			next++
		}
		for i := 0; i < 4; i++ {
			got, err := buf.Pop()
			if err != nil {
				t.Fatalf("pop failed: %v", err)
			}
			want := cycle*4 + i
			if got != want {
				t.Errorf("expected %d, got %d", want, got)
			}
		}
	}
}

func TestLenCap(t *testing.T) {
	buf, err := New[int](8)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}
	if buf.Cap() != 8 {
		t.Errorf("expected cap 8, got %d", buf.Cap())
	}
	for i := 0; i < 5; i++ {
		if err := buf.Push(i); err != nil {
			t.Fatalf("push failed: %v", err)
		}
	}
	if buf.Len() != 5 {
		t.Errorf("expected len 5, got %d", buf.Len())
	}
}
