package frame

import "testing"

func TestReleaseExactlyOnce(t *testing.T) {
	f := NewAudioFrame(1, 1000, &AudioBlock{Format: SampleFormatS32, ChannelCount: 16, SampleCount: 1920})

	var calls int
	f.OnRelease(func() { calls++ })
	f.OnRelease(func() { calls++ })

	f.Release()
	f.Release()
	f.Release()

	if calls != 2 {
		t.Fatalf("release callbacks ran %d times total, want 2", calls)
	}
}

func TestReleaseOrder(t *testing.T) {
	f := NewVideoFrame(0, 0, &VideoImage{Width: 1920, Height: 1080})

	var order []int
	f.OnRelease(func() { order = append(order, 1) })
	f.OnRelease(func() { order = append(order, 2) })
	f.OnRelease(func() { order = append(order, 3) })
	f.Release()

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestCodedFrameFields(t *testing.T) {
	c := CodedFrame{OutputStreamID: 210, Payload: []byte{1, 2, 3}, PTS: 12345, RandomAccess: true}
	if !c.RandomAccess {
		t.Fatal("expected RandomAccess true")
	}
	if c.OutputStreamID != 210 {
		t.Fatalf("OutputStreamID = %d, want 210", c.OutputStreamID)
	}
}
