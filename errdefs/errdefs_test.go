package errdefs

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorsAs(t *testing.T) {

	wrapped := fmt.Errorf("build: %w", NewConfigError("blurKernelSize", "must be odd, got %d", 4))

	var cfgErr *ConfigError

	if !errors.As(wrapped, &cfgErr) {
		t.Fatalf("expected ConfigError in chain, got %v", wrapped)
	}

	if cfgErr.Field != "blurKernelSize" {
		t.Errorf("expected field blurKernelSize, got %s", cfgErr.Field)
	}

	acq := &AcquisitionError{Source: "out/a.tif", Err: io.ErrUnexpectedEOF}

	if !errors.Is(acq, io.ErrUnexpectedEOF) {
		t.Errorf("expected AcquisitionError to unwrap to cause")
	}

	var inv *InvariantViolation

	if !errors.As(fmt.Errorf("x: %w", NewInvariantViolation("box %d", 3)), &inv) {
		t.Errorf("expected InvariantViolation in chain")
	}

	if inv.Error() != "invariant violation: box 3" {
		t.Errorf("unexpected message %q", inv.Error())
	}
}
