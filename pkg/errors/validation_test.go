package errors

import (
	"strings"
	"testing"
)

func TestValidateDeclarationName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "AppGraph", false},
		{"qualified", "com.example.AppGraph", false},
		{"nested", "com.example.AppGraph$Factory", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 600), true},
		{"space", "App Graph", true},
		{"newline", "App\nGraph", true},
		{"leading dot", ".AppGraph", true},
		{"trailing dot", "AppGraph.", true},
		{"empty segment", "com..AppGraph", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDeclarationName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDeclarationName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidDeclaration) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidDeclaration)
			}
		})
	}
}

func TestValidateMemberName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"provideValue", false},
		{"_hidden", false},
		{"get$impl", false},
		{"", true},
		{"1abc", true},
		{"with-dash", true},
	}

	for _, tt := range tests {
		err := ValidateMemberName(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateMemberName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateScopeName(t *testing.T) {
	if err := ValidateScopeName("@SingleIn"); err != nil {
		t.Errorf("ValidateScopeName(@SingleIn) = %v", err)
	}
	if err := ValidateScopeName("bad scope"); err == nil {
		t.Error("ValidateScopeName(bad scope) = nil, want error")
	}
}
