package yoke

import (
	"sync"
	"testing"
)

func TestSnapshot(t *testing.T) {
	var s Snapshot
	if got := s.Load(); got.Connected {
		t.Fatalf("zero snapshot should be disconnected: %+v", got)
	}

	m := GetMapping(0x068E, 0x00FF)
	st := Sample(m, &fakeDevice{axes: []int16{100, -200, 300}, hats: []uint8{uint8(HatUp)}})
	st.Name = "CH Flight Sim Yoke USB"
	s.Store(st)

	got := s.Load()
	if !got.Connected || got.Name != st.Name || got.Axes != st.Axes || got.Hat != HatUp {
		t.Fatalf("Load() = %+v, want %+v", got, st)
	}

	s.Store(State{})
	if s.Load().Connected {
		t.Fatal("snapshot not replaced")
	}
}

func TestSnapshotConcurrentAccess(t *testing.T) {
	var s Snapshot
	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 100 {
				s.Store(State{Connected: true, Axes: Readings{Yaw: int32(i*100 + j)}})
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				_ = s.Load()
			}
		}()
	}
	wg.Wait()
	if !s.Load().Connected {
		t.Fatal("expected a stored state")
	}
}
