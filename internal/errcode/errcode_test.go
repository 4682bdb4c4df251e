package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestRenderingFailedWrapsCause(t *testing.T) {
	root := errors.New("navigation timeout")
	err := RenderingFailed("pdf.render", root)

	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is to match cause")
	}
	if !IsKind(err, KindRenderingFailed) {
		t.Fatalf("expected rendering_failed kind, got %q", KindOf(err))
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("construct: %w", NotFound("assembler.construct", "cv not found"))

	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected wrapped not_found to be detected")
	}
	if IsKind(err, KindForbidden) {
		t.Fatalf("unexpected forbidden kind")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no kind")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Validation("section.order", "duplicate key \"work\"")
	want := `section.order: validation_failed: duplicate key "work"`
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}

func TestCodeMapping(t *testing.T) {
	cases := []struct {
		err       error
		code      int
		permanent bool
	}{
		{nil, OK, false},
		{Validation("pdf.options", "scale"), InvalidRequest, true},
		{Forbidden("assembler.authorize", "private"), AccessDenied, true},
		{fmt.Errorf("export: %w", NotFound("assembler.authorize", "cv")), ResourceMissing, true},
		{RenderingFailed("pdf.render", errors.New("crash")), RenderFailed, false},
		{errors.New("redis down"), SystemError, false},
	}
	for _, tc := range cases {
		if got := Code(tc.err); got != tc.code {
			t.Fatalf("Code(%v) = %d, want %d", tc.err, got, tc.code)
		}
		if got := Permanent(tc.err); got != tc.permanent {
			t.Fatalf("Permanent(%v) = %v, want %v", tc.err, got, tc.permanent)
		}
	}
}
