package perfc

import "testing"

func TestBasic_AddSub(t *testing.T) {
	b := NewBasic("test.basic", 0)
	for i := 0; i < 100; i++ {
		b.Add(1)
	}
	b.Sub(40)
	if v := b.Value(); v != 60 {
		t.Fatalf("Value() = %d, want 60", v)
	}
}

func TestBasic_ValueClampsAtZero(t *testing.T) {
	b := NewBasic("test.basic2", 0)
	b.Sub(10)
	if v := b.Value(); v != 0 {
		t.Fatalf("Value() = %d, want 0 (clamped)", v)
	}
}

func TestRate_Emit(t *testing.T) {
	r := NewRate("test.rate", 0)
	r.Add(10)
	first := r.Emit()
	if first["delta_ns"].(int64) != 0 {
		t.Fatalf("first Emit delta_ns = %v, want 0", first["delta_ns"])
	}
	if first["current"].(uint64) != 10 {
		t.Fatalf("first Emit current = %v, want 10", first["current"])
	}

	r.Add(5)
	second := r.Emit()
	if second["previous"].(uint64) != 10 {
		t.Fatalf("second Emit previous = %v, want 10", second["previous"])
	}
	if second["current"].(uint64) != 15 {
		t.Fatalf("second Emit current = %v, want 15", second["current"])
	}
}

func TestSimpleLatency(t *testing.T) {
	s := NewSimpleLatency("test.lat", 0)
	s.Record(100)
	s.Record(200)
	out := s.Emit()
	if out["sum"].(uint64) != 300 {
		t.Fatalf("sum = %v, want 300", out["sum"])
	}
	if out["hits"].(uint64) != 2 {
		t.Fatalf("hits = %v, want 2", out["hits"])
	}
}

func TestDist_RecordAndEmit(t *testing.T) {
	ivl := NewDefaultIvl()
	d := NewLatency("test.dist", 0, ivl, 1.0) // sample everything
	for _, v := range []uint64{50, 150, 5000, 50000} {
		d.Record(v)
	}
	out := d.Emit()
	if out["hits"].(uint64) != 4 {
		t.Fatalf("hits = %v, want 4", out["hits"])
	}
	if out["minimum"].(uint64) != 50 {
		t.Fatalf("minimum = %v, want 50", out["minimum"])
	}
	if out["maximum"].(uint64) != 50000 {
		t.Fatalf("maximum = %v, want 50000", out["maximum"])
	}
	hist, ok := out["histogram"].([]map[string]any)
	if !ok || len(hist) != len(ivl.Bound)+1 {
		t.Fatalf("histogram length = %v, want %d", len(hist), len(ivl.Bound)+1)
	}
}

func TestDist_ZeroSamplePctRecordsNothing(t *testing.T) {
	ivl := NewDefaultIvl()
	d := NewDistribution("test.dist0", 0, ivl, 0.0)
	for i := 0; i < 1000; i++ {
		d.Record(uint64(i + 1))
	}
	out := d.Emit()
	if out["hits"].(uint64) != 1 { // guarded to 1 when samples==0
		t.Fatalf("hits = %v, want 1 (no samples recorded)", out["hits"])
	}
	if out["sum"].(uint64) != 0 {
		t.Fatalf("sum = %v, want 0", out["sum"])
	}
}
