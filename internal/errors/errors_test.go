package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestShelfError_Error(t *testing.T) {
	err := &ShelfError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "card not found",
	}

	expected := "NOT_FOUND: card not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("title is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "title is required" {
		t.Errorf("Message = %q, want %q", err.Message, "title is required")
	}
}

func TestNewInvalidField(t *testing.T) {
	err := NewInvalidField("url", "must be an absolute http(s) URL")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Details["field"] != "url" {
		t.Errorf("Details[field] = %v, want %q", err.Details["field"], "url")
	}
	if err.Message != "url: must be an absolute http(s) URL" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("abc")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["id"] != "abc" {
		t.Errorf("Details[id] = %v, want %q", err.Details["id"], "abc")
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/cards.json")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileNotFound)
	}
	if err.Details["path"] != "/tmp/cards.json" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
}

func TestNewInvalidFormat(t *testing.T) {
	err := NewInvalidFormat("import document must be a JSON array")

	if err.Code != ErrInvalidFormat {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidFormat)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
}

func TestNewStorage(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStorage("write", "cardManager_cards", cause)

	if err.Code != ErrStorage {
		t.Errorf("Code = %q, want %q", err.Code, ErrStorage)
	}
	if err.Status != 500 {
		t.Errorf("Status = %d, want 500", err.Status)
	}
	if err.Details["key"] != "cardManager_cards" {
		t.Errorf("Details[key] = %v", err.Details["key"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("storage error should unwrap to its cause")
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("encoder exploded"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "encoder exploded" {
			t.Errorf("Details[internal_error] = %v", err.Details["internal_error"])
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		if !Is(NewNotFound("x"), ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		if Is(NewNotFound("x"), ErrInvalidFormat) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		if Is(fmt.Errorf("plain"), ErrNotFound) {
			t.Error("Is() = true, want false for non-ShelfError")
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("cards[2]: %w", NewInvalidFormat("bad"))
		if !Is(wrapped, ErrInvalidFormat) {
			t.Error("Is() = false, want true for wrapped ShelfError")
		}
	})
}

func TestAs(t *testing.T) {
	sErr, ok := As(fmt.Errorf("ctx: %w", NewNotFound("x")))
	if !ok || sErr.Code != ErrNotFound {
		t.Errorf("As() = %v, %v", sErr, ok)
	}
	if _, ok := As(fmt.Errorf("plain")); ok {
		t.Error("As() = true for plain error")
	}
}
