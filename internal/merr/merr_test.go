package merr

import (
	"errors"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindBadValue, 400},
		{KindBadArgument, 400},
		{KindNotFound, 404},
		{KindReadOnly, 423},
		{KindOutOfMemory, 503},
		{KindUnsupported, 405},
		{KindIO, 500},
		{KindBadMetadata, 500},
		{KindInternal, 500},
	}
	for _, tt := range tests {
		if got := tt.kind.HTTPStatus(); got != tt.want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(KindIO, "op", nil) != nil {
		t.Fatalf("Wrap with nil err must return nil")
	}
}

func TestIsAndKindOf(t *testing.T) {
	err := New(KindNotFound, "region.find", "key 7 not free")
	if !Is(err, KindNotFound) {
		t.Fatalf("Is(err, KindNotFound) = false")
	}
	if Is(err, KindIO) {
		t.Fatalf("Is(err, KindIO) = true, want false")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("KindOf(err) = %s, want not-found", KindOf(err))
	}

	wrapped := Wrap(KindIO, "file.read", errors.New("short read"))
	if KindOf(wrapped) != KindIO {
		t.Fatalf("KindOf(wrapped) = %s, want io", KindOf(wrapped))
	}

	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatalf("KindOf(plain error) should default to internal")
	}
	if KindOf(nil) != KindInvalid {
		t.Fatalf("KindOf(nil) should be invalid")
	}
}

func TestErrorString(t *testing.T) {
	e := New(KindBadValue, "param.set", "csched_hi_th_pct: not in bounds")
	if got := e.Error(); got == "" {
		t.Fatalf("Error() returned empty string")
	}
}
