package ringbuf

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func seq(from, to byte) []byte {
	b := make([]byte, 0, int(to-from)+1)
	for v := from; ; v++ {
		b = append(b, v)
		if v == to {
			break
		}
	}
	return b
}

func TestNewBadSize(t *testing.T) {
	for _, tc := range []struct {
		initial, max int
	}{
		{0, 16},
		{16, 8},
	} {
		if _, err := New(tc.initial, tc.max); err == nil {
			t.Errorf("New(%d, %d): expected error", tc.initial, tc.max)
		}
	}
}

// TestOverflow is seed scenario 1 from the testable properties: a ring of
// (8, 16) that receives two 16-byte writes should end up full, with the
// second write's data at the head, and overflow reported.
func TestOverflow(t *testing.T) {
	r, err := New(8, 16)
	if err != nil {
		t.Fatal(err)
	}

	if over := r.Write(seq(0x01, 0x10)); over {
		t.Fatal("unexpected overflow on first write")
	}
	over := r.Write(seq(0x11, 0x20))
	if !over {
		t.Fatal("expected overflow on second write")
	}
	if got := r.Used(); got != 16 {
		t.Fatalf("Used() = %d, want 16", got)
	}

	got := make([]byte, 16)
	r.Read(got)
	if want := seq(0x11, 0x20); !bytes.Equal(got, want) {
		t.Errorf("Read() = %v, want %v", got, want)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	r, err := New(4, 64)
	if err != nil {
		t.Fatal(err)
	}
	var all []byte
	for i := 0; i < 20; i++ {
		chunk := []byte{byte(i), byte(i + 1), byte(i + 2)}
		all = append(all, chunk...)
		r.Write(chunk)
	}

	got := make([]byte, len(all))
	n := r.Read(got)
	if n != len(all) {
		t.Fatalf("Read() = %d bytes, want %d", n, len(all))
	}
	if diff := cmp.Diff(all, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// TestShrinkOnEmpty checks that capacity returns to initial once the ring
// has been fully drained after growing.
func TestShrinkOnEmpty(t *testing.T) {
	r, err := New(4, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	r.Write(make([]byte, 100)) // forces growth well beyond initial.
	if len(r.data) == r.initial {
		t.Fatal("expected ring to have grown")
	}

	r.Read(make([]byte, 100))
	if len(r.data) != r.initial {
		t.Errorf("len(data) = %d after drain, want initial %d", len(r.data), r.initial)
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	r, err := New(8, 64)
	if err != nil {
		t.Fatal(err)
	}
	r.Write([]byte("hello"))

	p := make([]byte, 5)
	r.Peek(p)
	if string(p) != "hello" {
		t.Fatalf("Peek() = %q, want hello", p)
	}
	if r.Used() != 5 {
		t.Fatalf("Used() = %d after peek, want 5", r.Used())
	}

	got := make([]byte, 5)
	r.Read(got)
	if string(got) != "hello" {
		t.Fatalf("Read() after peek = %q, want hello", got)
	}
	if !r.Empty() {
		t.Fatal("expected ring empty after read")
	}
}

func TestDiscard(t *testing.T) {
	r, err := New(8, 64)
	if err != nil {
		t.Fatal(err)
	}
	r.Write([]byte("0123456789"))
	r.Discard(4)
	got := make([]byte, 6)
	r.Read(got)
	if string(got) != "456789" {
		t.Fatalf("Read() after discard = %q, want 456789", got)
	}
}

func TestReadAlloc(t *testing.T) {
	r, err := New(8, 64)
	if err != nil {
		t.Fatal(err)
	}
	r.Write([]byte("frame-body"))
	got := r.ReadAlloc(5)
	if string(got) != "frame" {
		t.Fatalf("ReadAlloc() = %q, want frame", got)
	}
	if r.Used() != 5 {
		t.Fatalf("Used() = %d, want 5", r.Used())
	}
}

func TestWriteTo(t *testing.T) {
	r, err := New(8, 64)
	if err != nil {
		t.Fatal(err)
	}
	r.Write([]byte("journal-me"))

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(buf.Len()) {
		t.Fatalf("WriteTo() reported %d bytes, buffer holds %d", n, buf.Len())
	}
	if buf.String() != "journal-me" {
		t.Fatalf("WriteTo() wrote %q, want journal-me", buf.String())
	}
	if !r.Empty() {
		t.Fatal("expected ring empty after WriteTo")
	}
}

func TestThreadSafeConcurrentUse(t *testing.T) {
	r, err := NewThreadSafe(8, 1<<16)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			r.Write([]byte{byte(i)})
		}
		close(done)
	}()
	buf := make([]byte, 1)
	for i := 0; i < 1000; {
		if r.Read(buf) == 1 {
			i++
		}
	}
	<-done
}
