package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestEngineErrorUnwrap(t *testing.T) {
	cause := errors.New("chrome not found")
	err := &EngineError{Op: "launch", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("EngineError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "launch") {
		t.Errorf("EngineError message should name the operation: %q", err.Error())
	}
}

func TestNavigationErrorUnwrap(t *testing.T) {
	err := &NavigationError{URL: "https://a.example", Err: errors.New("timeout")}

	var navErr *NavigationError
	if !errors.As(err, &navErr) {
		t.Fatal("errors.As should match NavigationError")
	}
	if navErr.URL != "https://a.example" {
		t.Errorf("URL = %q", navErr.URL)
	}
	if !strings.Contains(err.Error(), "https://a.example") {
		t.Errorf("NavigationError message should carry the URL: %q", err.Error())
	}
}

func TestCaptureErrorUnwrap(t *testing.T) {
	cause := errors.New("target closed")
	err := &CaptureError{Err: cause}

	if !errors.Is(err, cause) {
		t.Error("CaptureError should unwrap to its cause")
	}
}
