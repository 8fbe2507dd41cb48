package container

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/matzehuels/bindgraph/pkg/cache"
	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/key"
	"github.com/matzehuels/bindgraph/pkg/metadata"
)

func provides(name, typ string, params ...decl.Param) decl.Member {
	return decl.Member{Name: name, Type: typ, Provides: true, Params: params}
}

func names(cs []*Container) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestFindContainer_Local(t *testing.T) {
	m := &decl.Module{Containers: []*decl.Container{{
		Name:     "AppContainer",
		Includes: []string{"Other"},
		Members: []decl.Member{
			provides("provideValue", "String"),
			{Name: "override", Type: "String", Provides: true, Synthetic: true},
			{Name: "bind", Type: "Service", Binds: true, Receiver: "Impl"},
			{Name: "strings", Type: "Set<String>", Multibinds: true, AllowEmpty: true},
		},
		Companion: &decl.Container{Members: []decl.Member{provides("provideInt", "Int")}},
	}}}
	r := NewResolver(m)
	c, err := r.FindContainer(context.Background(), "AppContainer")
	if err != nil {
		t.Fatalf("FindContainer() error = %v", err)
	}
	var ids []string
	for _, p := range c.Providers {
		ids = append(ids, p.ID)
	}
	want := []string{"AppContainer#provideValue", "AppContainer.Companion#provideInt"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("providers = %v, want %v", ids, want)
	}
	if len(c.Aliases()) != 1 || len(c.Multibinds()) != 1 {
		t.Errorf("binds mirror = %+v", c.Binds)
	}
	if !c.Multibinds()[0].AllowEmpty {
		t.Error("allowEmpty lost")
	}
}

func TestFindContainer_EmptyIsCached(t *testing.T) {
	m := &decl.Module{Containers: []*decl.Container{{Name: "Empty", Members: []decl.Member{{Name: "x", Type: "Int", Synthetic: true, Provides: true}}}}}
	r := NewResolver(m)
	for i := 0; i < 2; i++ {
		c, err := r.FindContainer(context.Background(), "Empty")
		if c != nil || err != nil {
			t.Errorf("FindContainer(Empty) = %v, %v, want nil, nil", c, err)
		}
	}
	if r.containers.Len() != 1 {
		t.Errorf("memo entries = %d, want 1", r.containers.Len())
	}
}

// Scenario F: A includes B includes A.
func TestResolveAllCached_IncludeCycle(t *testing.T) {
	m := &decl.Module{Containers: []*decl.Container{
		{Name: "A", Includes: []string{"B"}, Members: []decl.Member{provides("a", "Int")}},
		{Name: "B", Includes: []string{"A"}, Members: []decl.Member{provides("b", "String")}},
	}}
	r := NewResolver(m)
	ctx := context.Background()

	got, err := r.ResolveAllCached(ctx, []string{"A"})
	if err != nil {
		t.Fatalf("ResolveAllCached() error = %v", err)
	}
	if !reflect.DeepEqual(names(got), []string{"A", "B"}) {
		t.Errorf("ResolveAllCached(A) = %v, want [A B]", names(got))
	}

	ca, _ := r.Closure(ctx, "A")
	cb, _ := r.Closure(ctx, "B")
	if !reflect.DeepEqual(ca, []string{"B"}) || !reflect.DeepEqual(cb, []string{"A"}) {
		t.Errorf("Closure(A) = %v, Closure(B) = %v", ca, cb)
	}
}

func TestClosure_ColdResolver(t *testing.T) {
	m := &decl.Module{Containers: []*decl.Container{
		{Name: "A", Includes: []string{"B"}, Members: []decl.Member{provides("a", "Int")}},
		{Name: "B", Members: []decl.Member{provides("b", "String")}},
	}}
	r := NewResolver(m, WithStore(metadata.NewStore(cache.NewMemoryCache())))

	done := make(chan struct{})
	var got []string
	var err error
	go func() {
		defer close(done)
		got, err = r.Closure(context.Background(), "A")
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Closure(A) on a fresh resolver did not return")
	}
	if err != nil {
		t.Fatalf("Closure(A) error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("Closure(A) = %v, want [B]", got)
	}
	rec, ok, err := r.Store().Load(context.Background(), "A")
	if err != nil || !ok || !reflect.DeepEqual(rec.Includes, []string{"B"}) {
		t.Errorf("metadata for A = %+v, %v, %v, want includes [B]", rec, ok, err)
	}
}

func TestResolveAllCached_Diamond(t *testing.T) {
	m := &decl.Module{Containers: []*decl.Container{
		{Name: "Root", Includes: []string{"Left", "Right"}, Members: []decl.Member{provides("r", "R")}},
		{Name: "Left", Includes: []string{"Shared"}, Members: []decl.Member{provides("l", "L")}},
		{Name: "Right", Includes: []string{"Shared"}, Members: []decl.Member{provides("rr", "RR")}},
		{Name: "Shared", Members: []decl.Member{provides("s", "S")}},
	}}
	r := NewResolver(m)
	got, err := r.ResolveAllCached(context.Background(), []string{"Root", "Shared"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Root", "Shared", "Left", "Right"}
	if !reflect.DeepEqual(names(got), want) {
		t.Errorf("ResolveAllCached() = %v, want %v", names(got), want)
	}
	closure, _ := r.Closure(context.Background(), "Root")
	if !reflect.DeepEqual(closure, []string{"Left", "Shared", "Right"}) {
		t.Errorf("Closure(Root) = %v", closure)
	}
}

func TestFindContainer_ExternalMetadataMissing(t *testing.T) {
	m := &decl.Module{Containers: []*decl.Container{
		{Name: "Lib", External: true, Annotated: true},
		{Name: "Plain", External: true},
	}}
	r := NewResolver(m, WithStore(metadata.NewStore(cache.NewMemoryCache())))

	_, err := r.FindContainer(context.Background(), "Lib")
	var dl diag.List
	if !errors.As(err, &dl) || dl.Count(diag.ExternalMetadataMissing) != 1 {
		t.Errorf("FindContainer(Lib) error = %v, want ExternalMetadataMissing", err)
	}

	c, err := r.FindContainer(context.Background(), "Plain")
	if c != nil || err != nil {
		t.Errorf("FindContainer(Plain) = %v, %v, want known-empty", c, err)
	}
}

func TestFindContainer_StructuralViolations(t *testing.T) {
	m := &decl.Module{Containers: []*decl.Container{
		{Name: "Base", Members: []decl.Member{provides("b", "B")}},
		{Name: "Derived", Supertypes: []string{"Base"}, Members: []decl.Member{provides("d", "D")}},
		{Name: "Generic", TypeParams: []string{"T"}, Members: []decl.Member{provides("g", "G")}},
		{Name: "SelfAlias", Members: []decl.Member{{Name: "bind", Type: "Foo", Binds: true, Receiver: "Foo"}}},
		{Name: "BadMulti", Members: []decl.Member{{Name: "m", Type: "List<Int>", Multibinds: true}}},
		{Name: "NoMapKey", Members: []decl.Member{{Name: "m", Type: "Int", Provides: true, Into: decl.IntoMap}}},
	}}
	r := NewResolver(m)
	for _, name := range []string{"Derived", "Generic", "SelfAlias", "BadMulti", "NoMapKey"} {
		_, err := r.FindContainer(context.Background(), name)
		var dl diag.List
		if !errors.As(err, &dl) || dl.Count(diag.StructuralViolation) == 0 {
			t.Errorf("FindContainer(%s) error = %v, want StructuralViolation", name, err)
		}
	}
}

// Round trip: a consumer reading the metadata derives the same container.
func TestMetadataRoundTrip(t *testing.T) {
	store := metadata.NewStore(cache.NewMemoryCache())
	ctx := context.Background()
	local := &decl.Module{Containers: []*decl.Container{
		{Name: "Lib", Annotated: true, Includes: []string{"Dep"}, Members: []decl.Member{
			provides("provideClient", "Client", decl.Param{Name: "url", Type: "String", Qualifier: keyNamed("base")}),
			{Name: "bind", Type: "Api", Binds: true, Receiver: "Client"},
			{Name: "hooks", Type: "Set<Hook>", Multibinds: true},
			{Name: "hook", Type: "Hook", Provides: true, Into: decl.IntoSet},
		}},
		{Name: "Dep", Annotated: true, Members: []decl.Member{provides("provideUrl", "String")}},
	}}
	producer := NewResolver(local, WithStore(store))
	src, err := producer.FindContainer(ctx, "Lib")
	if err != nil {
		t.Fatal(err)
	}

	consumer := NewResolver(&decl.Module{Containers: []*decl.Container{
		{Name: "Lib", External: true, Annotated: true},
		{Name: "Dep", External: true, Annotated: true},
	}}, WithStore(store))
	ext, err := consumer.FindContainer(ctx, "Lib")
	if err != nil {
		t.Fatalf("consumer FindContainer() error = %v", err)
	}
	if !ext.FromMetadata {
		t.Error("FromMetadata = false")
	}

	a, _ := metadata.Encode(src.Record([]string{"Dep"}))
	b, _ := metadata.Encode(ext.Record(ext.Includes))
	if string(a) != string(b) {
		t.Errorf("metadata view differs:\n%s\nvs\n%s", a, b)
	}

	all, err := consumer.ResolveAllCached(ctx, []string{"Lib"})
	if err != nil || !reflect.DeepEqual(names(all), []string{"Lib", "Dep"}) {
		t.Errorf("consumer ResolveAllCached() = %v, %v", names(all), err)
	}
}

func TestFindContainer_UnknownName(t *testing.T) {
	r := NewResolver(&decl.Module{})
	_, err := r.FindContainer(context.Background(), "Nope")
	var dl diag.List
	if !errors.As(err, &dl) || dl.Count(diag.StructuralViolation) != 1 {
		t.Errorf("FindContainer(Nope) error = %v", err)
	}
}

func keyNamed(v string) key.Qualifier { return key.Named(v) }
