package perfc

import "testing"

func TestSet_LevelGating(t *testing.T) {
	s := NewSet("test", 2)
	low := NewBasic("low", 0)
	high := NewBasic("high", 0)
	if err := s.Add(low, 1); err != nil {
		t.Fatalf("Add(low): %v", err)
	}
	if err := s.Add(high, 5); err != nil {
		t.Fatalf("Add(high): %v", err)
	}
	if !s.Enabled("low") {
		t.Error("low (level 1 <= priority 2) should be enabled")
	}
	if s.Enabled("high") {
		t.Error("high (level 5 > priority 2) should be disabled")
	}
}

func TestSet_Emit_SkipsDisabled(t *testing.T) {
	s := NewSet("test", 0)
	_ = s.Add(NewBasic("a", 0), 0)
	_ = s.Add(NewBasic("b", 0), 10)
	out := s.Emit()
	if _, ok := out["a"]; !ok {
		t.Error("enabled counter a missing from Emit")
	}
	if _, ok := out["b"]; ok {
		t.Error("disabled counter b should not appear in Emit")
	}
}

func TestSet_Add_DuplicateRejected(t *testing.T) {
	s := NewSet("test", 0)
	_ = s.Add(NewBasic("a", 0), 0)
	if err := s.Add(NewBasic("a", 0), 0); err == nil {
		t.Fatal("duplicate Add should fail")
	}
}

func TestDataTree_RegisterAndEmit(t *testing.T) {
	tree := NewDataTree()
	set := NewSet("c0", 0)
	_ = set.Add(NewBasic("ingests", 0), 0)
	set.Counter("ingests").(*Basic).Add(3)

	if err := tree.Register("/data/perfc/cn/c0", set); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := tree.Register("/data/perfc/cn/c0", set); err == nil {
		t.Fatal("duplicate Register should fail")
	}

	out := tree.EmitAll()
	sub, ok := out["/data/perfc/cn/c0"].(map[string]any)
	if !ok {
		t.Fatalf("EmitAll missing /data/perfc/cn/c0, got %v", out)
	}
	ingests, ok := sub["ingests"].(map[string]any)
	if !ok || ingests["value"].(uint64) != 3 {
		t.Fatalf("ingests = %v, want value 3", sub["ingests"])
	}

	if err := tree.Remove("/data/perfc/cn/c0"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := tree.Remove("/data/perfc/cn/c0"); err == nil {
		t.Fatal("Remove on missing path should fail")
	}
}

func TestDataTree_EmitPrefixFilter(t *testing.T) {
	tree := NewDataTree()
	_ = tree.Register("/data/perfc/cn/a", NewSet("a", 0))
	_ = tree.Register("/data/perfc/c0/b", NewSet("b", 0))

	out := tree.Emit("/data/perfc/cn")
	if len(out) != 1 {
		t.Fatalf("Emit(prefix) returned %d sets, want 1", len(out))
	}
}

func TestDataTree_RegisterRejectsLongPath(t *testing.T) {
	tree := NewDataTree()
	long := make([]byte, MaxPathLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := tree.Register(string(long), NewSet("x", 0)); err == nil {
		t.Fatal("Register with overlong path should fail")
	}
}
