package kvdbparams

import (
	"encoding/json"
	"fmt"
)

func unmarshalString(text string, out *string) error {
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("not a string: %w", err)
	}
	return nil
}

func errUnknownEnum(kind, value string) error {
	return fmt.Errorf("unknown %s: %q", kind, value)
}

func errWrongType(want string, got any) error {
	return fmt.Errorf("expected %s, got %T", want, got)
}
