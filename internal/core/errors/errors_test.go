package errors

import (
	"errors"
	"io/fs"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "uri not tracked")
		if err.Error() != "[NOT_FOUND] uri not tracked" {
			t.Errorf("expected [NOT_FOUND] uri not tracked, got %s", err.Error())
		}
	})

	t.Run("Newf", func(t *testing.T) {
		err := Newf(CodeValidationError, "bad glob %q", "[")
		if err.Error() != `[VALIDATION_ERROR] bad glob "["` {
			t.Errorf("unexpected message %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeIO, "read failed")
		expected := "[IO_ERROR] read failed: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("WrapNil", func(t *testing.T) {
		if Wrap(nil, CodeIO, "nothing") != nil {
			t.Error("expected nil when wrapping nil")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(fs.ErrNotExist, CtxURI, "file:///a.css")
		if !IsCode(err, CodeInternal) {
			t.Fatalf("expected internal code, got %v", err)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			t.Error("expected context wrapper to keep the cause")
		}

		domain := AddContext(New(CodeIO, "read"), CtxPath, "/tmp/a.css")
		var de *DomainError
		if !errors.As(domain, &de) || de.Context[CtxPath] != "/tmp/a.css" {
			t.Errorf("expected context on existing domain error, got %v", domain)
		}
	})
}
