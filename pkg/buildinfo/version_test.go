package buildinfo

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get(3)
	if info.Format != 3 {
		t.Errorf("Format = %d, want 3", info.Format)
	}
	if info.Version == "" {
		t.Error("Version should never be empty")
	}
}

func TestTemplate(t *testing.T) {
	if !strings.Contains(Template(), "{{.Name}} version "+Version) {
		t.Errorf("Template() = %q, want cobra name placeholder", Template())
	}
	if !strings.HasPrefix(String(), "version: ") {
		t.Errorf("String() = %q", String())
	}
}
