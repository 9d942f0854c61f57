package envutil

import (
	"reflect"
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SQ_TEST_INT", "nope")
	if got := Int("SQ_TEST_INT", 7, nil); got != 7 {
		t.Fatalf("Int: got=%d want=7", got)
	}
	t.Setenv("SQ_TEST_INT", " 42 ")
	if got := Int("SQ_TEST_INT", 7, nil); got != 42 {
		t.Fatalf("Int: got=%d want=42", got)
	}
}

func TestStringBlankUsesDefault(t *testing.T) {
	t.Setenv("SQ_TEST_STR", "   ")
	if got := String("SQ_TEST_STR", "fallback", nil); got != "fallback" {
		t.Fatalf("String: got=%q", got)
	}
}

func TestListAndSeconds(t *testing.T) {
	t.Setenv("SQ_TEST_LIST", "magnetism, ,Gravity,")
	got := List("SQ_TEST_LIST", nil, nil)
	if !reflect.DeepEqual(got, []string{"magnetism", "Gravity"}) {
		t.Fatalf("List: got=%v", got)
	}
	t.Setenv("SQ_TEST_SECS", "90")
	if d := Seconds("SQ_TEST_SECS", time.Second, nil); d != 90*time.Second {
		t.Fatalf("Seconds: got=%v", d)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("SQ_TEST_BOOL", "off")
	if Bool("SQ_TEST_BOOL", true, nil) {
		t.Fatalf("Bool: expected false")
	}
	t.Setenv("SQ_TEST_BOOL", "maybe")
	if !Bool("SQ_TEST_BOOL", true, nil) {
		t.Fatalf("Bool: expected default true")
	}
}
