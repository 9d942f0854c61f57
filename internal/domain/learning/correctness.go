package learning

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Correctness is the verdict attached to a submission. Skipped submissions
// never produce a durable record.
type Correctness string

const (
	Correct   Correctness = "correct"
	Incorrect Correctness = "incorrect"
	Skipped   Correctness = "skipped"
)

// CorrectnessFromBool maps a nullable verdict onto the three variants.
func CorrectnessFromBool(v *bool) Correctness {
	switch {
	case v == nil:
		return Skipped
	case *v:
		return Correct
	default:
		return Incorrect
	}
}

func (c Correctness) Valid() bool {
	switch c {
	case Correct, Incorrect, Skipped:
		return true
	}
	return false
}

// MarshalJSON renders the verdict as true, false or null.
func (c Correctness) MarshalJSON() ([]byte, error) {
	switch c {
	case Correct:
		return []byte("true"), nil
	case Incorrect:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (c *Correctness) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = Skipped
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("correctness must be true, false or null")
	}
	*c = CorrectnessFromBool(&b)
	return nil
}
