package websocket

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestByteCursor_Pop(t *testing.T) {
	c := newByteCursor(sliceSource([]byte{1}, []byte{2}))

	for _, want := range []byte{1, 2} {
		got, err := c.pop()
		if err != nil {
			t.Fatalf("pop failed: %v", err)
		}
		if got != want {
			t.Errorf("pop = %d, want %d", got, want)
		}
	}
}

func TestByteCursor_Take(t *testing.T) {
	tests := []struct {
		name   string
		chunks [][]byte
		n      int
		want   []byte
	}{
		{
			name:   "combine two chunks",
			chunks: [][]byte{{1}, {2}},
			n:      2,
			want:   []byte{1, 2},
		},
		{
			name:   "split a chunk",
			chunks: [][]byte{{1}, {2, 3}},
			n:      2,
			want:   []byte{1, 2},
		},
		{
			name:   "slice of a single chunk",
			chunks: [][]byte{{1, 2, 3}},
			n:      2,
			want:   []byte{1, 2},
		},
		{
			name:   "empty take",
			chunks: [][]byte{{1, 2, 3}},
			n:      0,
			want:   []byte{},
		},
		{
			name:   "across three chunks",
			chunks: [][]byte{{1}, {2}, {3, 4}},
			n:      4,
			want:   []byte{1, 2, 3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newByteCursor(sliceSource(tt.chunks...))

			got, err := c.take(tt.n)
			if err != nil {
				t.Fatalf("take failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) || len(got) != tt.n {
				t.Errorf("take(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestByteCursor_TakeAfterPop(t *testing.T) {
	c := newByteCursor(sliceSource([]byte{1, 2}, []byte{3}))

	b, err := c.pop()
	if err != nil || b != 1 {
		t.Fatalf("pop = %d, %v; want 1, nil", b, err)
	}

	got, err := c.take(2)
	if err != nil {
		t.Fatalf("take failed: %v", err)
	}
	if !bytes.Equal(got, []byte{2, 3}) {
		t.Errorf("take(2) = %v, want [2 3]", got)
	}
}

func TestByteCursor_EmptyTakeDoesNotPull(t *testing.T) {
	pulls := 0
	c := newByteCursor(SourceFunc(func() ([]byte, error) {
		pulls++
		return []byte{1}, nil
	}))

	if _, err := c.take(0); err != nil {
		t.Fatalf("take(0) failed: %v", err)
	}
	if pulls != 0 {
		t.Errorf("take(0) pulled %d chunks, want 0", pulls)
	}
}

func TestByteCursor_Chunks(t *testing.T) {
	c := newByteCursor(sliceSource([]byte{1, 2, 3}, []byte{4, 5}, []byte{6, 7}))

	var got [][]byte
	for chunk, err := range c.chunks(6) {
		if err != nil {
			t.Fatalf("chunks failed: %v", err)
		}
		got = append(got, chunk)
	}

	want := [][]byte{{1, 2, 3}, {4, 5}, {6}}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("chunk %d = %v, want %v", i, got[i], want[i])
		}
	}

	// The surplus byte stays buffered for the next call.
	b, err := c.pop()
	if err != nil || b != 7 {
		t.Errorf("pop after chunks = %d, %v; want 7, nil", b, err)
	}
}

func TestByteCursor_ChunksAfterPartialTake(t *testing.T) {
	c := newByteCursor(sliceSource([]byte{1, 2, 3, 4}))

	if _, err := c.take(1); err != nil {
		t.Fatalf("take failed: %v", err)
	}

	var got []byte
	for chunk, err := range c.chunks(3) {
		if err != nil {
			t.Fatalf("chunks failed: %v", err)
		}
		got = append(got, chunk...)
	}
	if !bytes.Equal(got, []byte{2, 3, 4}) {
		t.Errorf("chunks(3) = %v, want [2 3 4]", got)
	}
}

func TestByteCursor_PastEndOfStream(t *testing.T) {
	c := newByteCursor(sliceSource([]byte{1, 2, 3, 4}))

	_, err := c.take(5)
	if !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("take(5) error = %v, want ErrEndOfStream", err)
	}
}

func TestByteCursor_ChunksPastEndOfStream(t *testing.T) {
	c := newByteCursor(sliceSource([]byte{1, 2}))

	var (
		total int
		last  error
	)
	for chunk, err := range c.chunks(5) {
		if err != nil {
			last = err
			continue
		}
		total += len(chunk)
	}

	if total != 2 {
		t.Errorf("received %d bytes before failure, want 2", total)
	}
	if !errors.Is(last, ErrEndOfStream) {
		t.Errorf("chunks error = %v, want ErrEndOfStream", last)
	}
}

func TestByteCursor_SourceError(t *testing.T) {
	boom := errors.New("connection reset")
	c := newByteCursor(SourceFunc(func() ([]byte, error) {
		return []byte{9}, boom
	}))

	// The chunk delivered with the error is still consumed.
	b, err := c.pop()
	if err != nil || b != 9 {
		t.Fatalf("pop = %d, %v; want 9, nil", b, err)
	}

	_, err = c.pop()
	if !errors.Is(err, ErrEndOfStream) || !errors.Is(err, boom) {
		t.Errorf("pop error = %v, want ErrEndOfStream wrapping the cause", err)
	}
}

func TestReaderSource_CopiesChunks(t *testing.T) {
	src := NewReaderSource(bytes.NewReader([]byte("abcdef")), 4)

	first, err := src.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	second, err := src.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	if string(first) != "abcd" || string(second) != "ef" {
		t.Errorf("chunks = %q, %q; want \"abcd\", \"ef\"", first, second)
	}

	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next at end = %v, want io.EOF", err)
	}
}
