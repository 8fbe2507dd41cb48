package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidDeclaration, "graph %s has no name", "app.yaml")

	if err.Code != ErrCodeInvalidDeclaration {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidDeclaration)
	}
	if want := "INVALID_DECLARATION: graph app.yaml has no name"; err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	if err.Unwrap() != nil {
		t.Errorf("Unwrap() = %v, want nil", err.Unwrap())
	}
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrCodeStorage, fs.ErrPermission, "write metadata for %s", "com.example.NetContainer")

	if want := "STORAGE_ERROR: write metadata for com.example.NetContainer: permission denied"; err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("errors.Is(err, fs.ErrPermission) = false, want true")
	}
}

func TestIsAndGetCode(t *testing.T) {
	mismatch := New(ErrCodeMetadataMismatch, "metadata for A has version 0, want 1")
	tests := []struct {
		name string
		err  error
		code Code
		is   bool
		want Code
	}{
		{"direct", mismatch, ErrCodeMetadataMismatch, true, ErrCodeMetadataMismatch},
		{"other code", mismatch, ErrCodeMetadataCorrupt, false, ErrCodeMetadataMismatch},
		{"outermost code wins", Wrap(ErrCodeStorage, mismatch, "load A"), ErrCodeStorage, true, ErrCodeStorage},
		{"fmt wrapped", fmt.Errorf("a.yaml: %w", mismatch), ErrCodeMetadataMismatch, true, ErrCodeMetadataMismatch},
		{"plain", errors.New("plain"), ErrCodeInternal, false, ""},
		{"nil", nil, "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.is {
				t.Errorf("Is() = %v, want %v", got, tt.is)
			}
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidSchema, "declaration does not match schema")); got != "declaration does not match schema" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain error")); got != "plain error" {
		t.Errorf("UserMessage() = %q", got)
	}
}
