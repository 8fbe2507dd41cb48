package binding

import (
	"strings"
	"testing"

	"github.com/matzehuels/bindgraph/pkg/key"
)

func TestKindString(t *testing.T) {
	for _, k := range Kinds() {
		if s := k.String(); strings.HasPrefix(s, "Kind(") {
			t.Errorf("Kind %d has no name", int(k))
		}
	}
	if got := Kind(99).String(); got != "Kind(99)" {
		t.Errorf("Kind(99).String() = %q", got)
	}
}

func TestDependsOn(t *testing.T) {
	intKey := key.New("Int", key.Qualifier{})
	b := &Binding{
		Kind: Provided,
		Key:  key.New("String", key.Qualifier{}),
		Deps: []Dependency{{Contextual: key.Contextual{Key: intKey, Wrap: key.ProviderWrap}}},
	}
	if !b.DependsOn(intKey, false) {
		t.Error("DependsOn(Int, false) = false, want true")
	}
	if b.DependsOn(intKey, true) {
		t.Error("DependsOn(Int, true) = true, want false for a Provider request")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		b    Binding
		want string
	}{
		{Binding{Kind: Provided, Declaration: "AppContainer#provideValue"}, "@Provides AppContainer#provideValue"},
		{Binding{Kind: Alias, Declaration: "AppContainer#bind"}, "@Binds AppContainer#bind"},
		{Binding{Kind: ConstructorInjected, Key: key.New("com.example.Foo", key.Qualifier{})}, "@Inject com.example.Foo"},
	}
	for _, tt := range tests {
		if got := tt.b.Describe(); got != tt.want {
			t.Errorf("Describe() = %q, want %q", got, tt.want)
		}
	}
}
