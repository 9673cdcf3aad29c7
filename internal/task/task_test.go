package task

import "testing"

func TestSignalCoalescesWakes(t *testing.T) {
	s := NewSignal()
	s.Wake()
	s.Wake()
	select {
	case <-s.C():
	default:
		t.Fatalf("expected signal after wake")
	}
	select {
	case <-s.C():
		t.Fatalf("expected wakes to coalesce")
	default:
	}
}

func TestWakerFunc(t *testing.T) {
	calls := 0
	var w Waker = WakerFunc(func() { calls++ })
	w.Wake()
	Nop.Wake()
	if calls != 1 {
		t.Fatalf("calls got=%d", calls)
	}
}
