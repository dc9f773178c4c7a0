package pointer_test

import (
	"testing"

	"deedles.dev/wlcomp/pointer"
)

func TestButtonString(t *testing.T) {
	tests := []struct {
		button   pointer.Button
		expected string
	}{
		{pointer.ButtonLeft, "left"},
		{pointer.ButtonMiddle, "middle"},
		{pointer.ButtonTask, "task"},
		{pointer.ButtonTask + 1, "unknown"},
		{0, "unknown"},
	}

	for _, test := range tests {
		if s := test.button.String(); s != test.expected {
			t.Fatalf("expected %q for 0x%x but got %q", test.expected, uint32(test.button), s)
		}
	}
}

func TestButtonMirror(t *testing.T) {
	if b := pointer.ButtonLeft.Mirror(); b != pointer.ButtonRight {
		t.Fatalf("left mirrored to %v", b)
	}
	if b := pointer.ButtonRight.Mirror(); b != pointer.ButtonLeft {
		t.Fatalf("right mirrored to %v", b)
	}
	if b := pointer.ButtonMiddle.Mirror(); b != pointer.ButtonMiddle {
		t.Fatalf("middle mirrored to %v", b)
	}
}
