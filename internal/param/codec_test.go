package param

import "testing"

func TestIntCodec_RejectsFractional(t *testing.T) {
	c := IntCodec{Signed: false}
	if _, err := c.Convert("1.5"); err == nil {
		t.Fatal("Convert(1.5) should fail for an integer kind")
	}
}

func TestIntCodec_RejectsNegativeUnsigned(t *testing.T) {
	c := IntCodec{Signed: false}
	if _, err := c.Convert("-1"); err == nil {
		t.Fatal("Convert(-1) should fail for an unsigned kind")
	}
}

func TestIntCodec_SignedRoundTrip(t *testing.T) {
	c := IntCodec{Signed: true}
	v, err := c.Convert("-42")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if err := c.Validate(v, Bounds{Min: -100, Max: 100}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.Stringify(v) != "-42" {
		t.Fatalf("Stringify = %q, want -42", c.Stringify(v))
	}
}

func TestEnumCodec(t *testing.T) {
	c := EnumCodec{Values: []string{"capacity_only", "staging_only", "pmem_only"}}
	v, err := c.Convert(`"staging_only"`)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if v.(int) != 1 {
		t.Fatalf("index = %v, want 1", v)
	}
	if c.Jsonify(v) != "staging_only" {
		t.Fatalf("Jsonify = %v, want staging_only", c.Jsonify(v))
	}
	if _, err := c.Convert(`"nonexistent"`); err == nil {
		t.Fatal("Convert(nonexistent) should fail")
	}
}

func TestArrayCodec(t *testing.T) {
	c := ArrayCodec{Elem: IntCodec{Signed: false}}
	v, err := c.Convert("[1,2,3]")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if err := c.Validate(v, Bounds{Max: 5}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := c.Validate(v, Bounds{Max: 2}); err == nil {
		t.Fatal("Validate should reject array longer than Bounds.Max")
	}
	j := c.Jsonify(v).([]any)
	if len(j) != 3 || j[0].(uint64) != 1 {
		t.Fatalf("Jsonify = %v", j)
	}
}

func TestStringCodec_MaxLength(t *testing.T) {
	c := StringCodec{}
	v, _ := c.Convert(`"hello"`)
	if err := c.Validate(v, Bounds{Max: 3}); err == nil {
		t.Fatal("Validate should reject string longer than Bounds.Max")
	}
	if err := c.Validate(v, Bounds{Max: 10}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestBoolCodec(t *testing.T) {
	c := BoolCodec{}
	v, err := c.Convert("true")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if err := c.Validate(v, Bounds{}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.Stringify(v) != "true" {
		t.Fatalf("Stringify = %q", c.Stringify(v))
	}
}
