package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/plantwatch/plantwatch/pkg/types"
)

func snap(soil float64) types.Snapshot {
	return types.Snapshot{SoilMoisture: soil}
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestPutAndLatest(t *testing.T) {
	st := New(10, time.Hour)
	st.Put(snap(500))
	st.Put(snap(480))

	e, ok := st.Latest()
	if !ok {
		t.Fatal("Latest: expected entry, got none")
	}
	if e.Snapshot.SoilMoisture != 480 {
		t.Errorf("SoilMoisture: got %v, want 480", e.Snapshot.SoilMoisture)
	}
}

func TestLatest_Empty(t *testing.T) {
	if _, ok := New(10, time.Hour).Latest(); ok {
		t.Fatal("Latest on empty store: expected false, got true")
	}
}

func TestPut_DropsOldestWhenFull(t *testing.T) {
	st := New(3, time.Hour)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		st.Put(snap(v))
	}

	got := st.Snapshots()
	if len(got) != 3 {
		t.Fatalf("len: got %d, want 3", len(got))
	}
	for i, want := range []float64{3, 4, 5} {
		if got[i].SoilMoisture != want {
			t.Errorf("[%d]: got %v, want %v", i, got[i].SoilMoisture, want)
		}
	}
}

func TestList_ExcludesStale(t *testing.T) {
	base := time.Now()
	st := New(10, 5*time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(snap(100))
	st.now = fixedClock(base)
	st.Put(snap(200))

	list := st.List()
	if len(list) != 1 {
		t.Fatalf("List: got %d entries, want 1", len(list))
	}
	if list[0].Snapshot.SoilMoisture != 200 {
		t.Errorf("List[0]: got %v, want 200", list[0].Snapshot.SoilMoisture)
	}
	if st.Count() != 2 {
		t.Errorf("Count: got %d, want 2 (stale not yet evicted)", st.Count())
	}
}

func TestEvict(t *testing.T) {
	base := time.Now()
	st := New(10, 5*time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(snap(100))
	st.Put(snap(110))
	st.now = fixedClock(base)
	st.Put(snap(200))

	if n := st.Evict(base); n != 2 {
		t.Errorf("Evict: removed %d, want 2", n)
	}
	if st.Count() != 1 {
		t.Errorf("Count after Evict: got %d, want 1", st.Count())
	}
}

func TestNoRetention(t *testing.T) {
	st := New(2, 0)
	st.now = fixedClock(time.Unix(0, 0))
	st.Put(snap(1))

	if n := st.Evict(time.Now()); n != 0 {
		t.Errorf("Evict with retention disabled removed %d", n)
	}
	if len(st.List()) != 1 {
		t.Error("List dropped an entry with retention disabled")
	}

	done := make(chan struct{})
	go func() {
		st.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return with retention disabled")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	st := New(10, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConcurrentAccess(t *testing.T) {
	st := New(10, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(v int) {
			defer wg.Done()
			st.Put(snap(float64(v)))
		}(i)
		go func() {
			defer wg.Done()
			_ = st.List()
			_, _ = st.Latest()
		}()
	}
	wg.Wait()
	if st.Count() != 10 {
		t.Errorf("Count: got %d, want 10", st.Count())
	}
}
