package generate

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/bindgraph/pkg/binding"
	"github.com/matzehuels/bindgraph/pkg/container"
	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/graphnode"
	"github.com/matzehuels/bindgraph/pkg/key"
)

func at(line int) decl.Location { return decl.Location{File: "app.kt", Line: line} }

func provides(name, typ string, line int, params ...decl.Param) decl.Member {
	return decl.Member{Name: name, Type: typ, Provides: true, Params: params, Location: at(line)}
}

func param(name, typ string) decl.Param { return decl.Param{Name: name, Type: typ} }

func accessor(name, typ string) decl.Accessor { return decl.Accessor{Name: name, Type: typ} }

// graphOf declares graph AppGraph including container AppContainer.
func graphOf(members []decl.Member, accessors ...decl.Accessor) *decl.Module {
	return &decl.Module{
		Containers: []*decl.Container{{Name: "AppContainer", Annotated: true, Members: members}},
		Graphs:     []*decl.Graph{{Name: "AppGraph", Containers: []string{"AppContainer"}, Accessors: accessors}},
	}
}

func builder(m *decl.Module) *graphnode.Builder {
	return graphnode.NewBuilder(container.NewResolver(m), nil)
}

func generate(t *testing.T, m *decl.Module, graph string) *Graph {
	t.Helper()
	n, err := builder(m).Node(context.Background(), graph)
	if err != nil {
		t.Fatalf("Node(%s) error = %v", graph, err)
	}
	return New(n, m).Generate(context.Background())
}

func k(typ string) key.TypeKey { return key.New(typ, key.Qualifier{}) }

// Scenario A.
func TestGenerate_SingleProvider(t *testing.T) {
	m := graphOf([]decl.Member{provides("provideValue", "String", 3)}, accessor("value", "String"))
	g := generate(t, m, "AppGraph")
	if !g.OK() {
		t.Fatalf("Diagnostics = %v", g.Diagnostics)
	}
	if len(g.Bindings) != 1 {
		t.Fatalf("Bindings = %v, want exactly one", g.Order)
	}
	b, ok := g.Binding(k("String"))
	if !ok || b.Kind != binding.Provided || b.Declaration != "AppContainer#provideValue" {
		t.Errorf("Binding(String) = %+v", b)
	}
	if len(g.Roots) != 1 || g.Roots[0].Name != "value" {
		t.Errorf("Roots = %+v", g.Roots)
	}
}

// Scenario B.
func TestGenerate_DuplicateBinding(t *testing.T) {
	m := graphOf([]decl.Member{provides("provideA", "Int", 3), provides("provideB", "Int", 7)}, accessor("value", "Int"))
	g := generate(t, m, "AppGraph")
	dups := g.Diagnostics.Of(diag.DuplicateBinding)
	if len(dups) != 1 {
		t.Fatalf("DuplicateBinding = %d, want 1: %v", len(dups), g.Diagnostics)
	}
	if want := []decl.Location{at(3), at(7)}; !reflect.DeepEqual(dups[0].Locations, want) {
		t.Errorf("Locations = %v, want %v", dups[0].Locations, want)
	}
}

// Scenario C.
func TestGenerate_SelfCycle(t *testing.T) {
	m := graphOf([]decl.Member{provides("provideInt", "Int", 3, param("value", "Int"))}, accessor("value", "Int"))
	g := generate(t, m, "AppGraph")
	cycles := g.Diagnostics.Of(diag.DependencyCycle)
	if len(cycles) != 1 {
		t.Fatalf("DependencyCycle = %v", g.Diagnostics)
	}
	if got := cycles[0].Details[0]; got != "Int <--> Int" {
		t.Errorf("cycle = %q, want %q", got, "Int <--> Int")
	}
}

func TestGenerate_DeferredSelfReferenceIsAllowed(t *testing.T) {
	m := graphOf([]decl.Member{provides("provideInt", "Int", 3, param("self", "Provider<Int>"))}, accessor("value", "Int"))
	if g := generate(t, m, "AppGraph"); !g.OK() {
		t.Errorf("Diagnostics = %v", g.Diagnostics)
	}
}

// Scenario D.
func TestGenerate_EmptyMultibinding(t *testing.T) {
	tests := []struct {
		name       string
		allowEmpty bool
		wantEmpty  int
	}{
		{"required", false, 1},
		{"allowEmpty", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := graphOf([]decl.Member{{Name: "strings", Type: "Set<String>", Multibinds: true, AllowEmpty: tt.allowEmpty}})
			g := generate(t, m, "AppGraph")
			if got := g.Diagnostics.Count(diag.EmptyMultibinding); got != tt.wantEmpty {
				t.Errorf("EmptyMultibinding = %d, want %d", got, tt.wantEmpty)
			}
			b, ok := g.Binding(k("Set<String>"))
			if !ok || b.Kind != binding.Multibinding || len(b.Multi.Contributors) != 0 {
				t.Errorf("Binding(Set<String>) = %+v", b)
			}
		})
	}
}

func TestGenerate_MissingBindingWithHints(t *testing.T) {
	m := graphOf([]decl.Member{
		{Name: "provideApi", Type: "String", Provides: true, Qualifier: key.Named("api"), Location: at(2)},
		provides("provideGreeting", "Greeting", 5, param("name", "String")),
	}, accessor("greeting", "Greeting"))
	g := generate(t, m, "AppGraph")
	missing := g.Diagnostics.Of(diag.MissingBinding)
	if len(missing) != 1 {
		t.Fatalf("MissingBinding = %v", g.Diagnostics)
	}
	d := missing[0]
	if d.Key != "String" {
		t.Errorf("Key = %q", d.Key)
	}
	if len(d.Similar) != 1 || d.Similar[0].Reason != diag.DifferentQualifier || d.Similar[0].Location != at(2) {
		t.Errorf("Similar = %+v", d.Similar)
	}
	wantTrace := []string{
		"String is injected at",
		"    [AppGraph] AppContainer#provideGreeting(name)",
		"Greeting is requested at",
		"    [AppGraph] AppGraph#greeting",
	}
	if !reflect.DeepEqual(d.Trace, wantTrace) {
		t.Errorf("Trace = %q, want %q", d.Trace, wantTrace)
	}
}

func TestGenerate_MissingReportedOnce(t *testing.T) {
	m := graphOf([]decl.Member{
		provides("a", "A", 1, param("s", "String")),
		provides("b", "B", 2, param("s", "String")),
	}, accessor("a", "A"), accessor("b", "B"))
	g := generate(t, m, "AppGraph")
	if got := g.Diagnostics.Count(diag.MissingBinding); got != 1 {
		t.Errorf("MissingBinding = %d, want 1", got)
	}
}

func TestGenerate_SubtypeHint(t *testing.T) {
	m := graphOf([]decl.Member{provides("impl", "RealRepo", 4)}, accessor("repo", "Repo"))
	m.Classes = []*decl.Class{{Name: "RealRepo", Supertypes: []string{"Repo"}}}
	g := generate(t, m, "AppGraph")
	d := g.Diagnostics.Of(diag.MissingBinding)
	if len(d) != 1 || len(d[0].Similar) != 1 || d[0].Similar[0].Reason != diag.Subtype {
		t.Errorf("MissingBinding = %+v", d)
	}
}

func TestGenerate_ConstructorInjection(t *testing.T) {
	m := graphOf([]decl.Member{provides("url", "Url", 1)}, accessor("repo", "Repo"))
	m.Classes = []*decl.Class{
		{Name: "Base", Members: []decl.InjectedMember{{Name: "clock", Type: "Clock"}}},
		{
			Name:       "Repo",
			Superclass: "Base",
			Inject:     true,
			Constructors: []decl.Constructor{{Params: []decl.Param{
				param("url", "Url"),
				{Name: "timeout", Type: "Duration", HasDefault: true},
			}}},
		},
		{Name: "Clock", Inject: true},
	}
	g := generate(t, m, "AppGraph")
	if !g.OK() {
		t.Fatalf("Diagnostics = %v", g.Diagnostics)
	}
	repo, _ := g.Binding(k("Repo"))
	if repo == nil || repo.Kind != binding.ConstructorInjected {
		t.Fatalf("Binding(Repo) = %+v", repo)
	}
	var deps []string
	for _, d := range repo.Deps {
		deps = append(deps, d.Raw().Type)
	}
	if want := []string{"Url", "Duration", "Clock"}; !reflect.DeepEqual(deps, want) {
		t.Errorf("deps = %v, want %v", deps, want)
	}
	if b, _ := g.Binding(k("Duration")); b == nil || b.Kind != binding.Absent {
		t.Errorf("Binding(Duration) = %+v, want Absent", b)
	}
	if want := []key.TypeKey{k("Repo"), k("Url"), k("Duration"), k("Clock")}; !reflect.DeepEqual(g.Order, want) {
		t.Errorf("Order = %v, want %v", g.Order, want)
	}
}

func TestGenerate_AmbiguousConstructor(t *testing.T) {
	m := graphOf(nil, accessor("repo", "Repo"))
	m.Classes = []*decl.Class{{Name: "Repo", Constructors: []decl.Constructor{{Inject: true}, {Inject: true}}}}
	g := generate(t, m, "AppGraph")
	if g.Diagnostics.Count(diag.StructuralViolation) != 1 || g.Diagnostics.Count(diag.MissingBinding) != 1 {
		t.Errorf("Diagnostics = %v", g.Diagnostics)
	}
}

func TestGenerate_SetMultibinding(t *testing.T) {
	m := graphOf([]decl.Member{
		{Name: "one", Type: "Plugin", Provides: true, Into: decl.IntoSet, Location: at(1)},
		{Name: "many", Type: "Set<Plugin>", Provides: true, Into: decl.ElementsIntoSet, Location: at(2)},
		{Name: "two", Type: "Plugin", Provides: true, Into: decl.IntoSet, Location: at(3)},
	}, accessor("plugins", "Set<Plugin>"))
	g := generate(t, m, "AppGraph")
	if !g.OK() {
		t.Fatalf("Diagnostics = %v", g.Diagnostics)
	}
	b, _ := g.Binding(k("Set<Plugin>"))
	if b == nil || b.Kind != binding.Multibinding {
		t.Fatalf("Binding(Set<Plugin>) = %+v", b)
	}
	want := []key.TypeKey{
		key.New("Plugin", key.ElementQualifier("AppContainer#one")),
		key.New("Set<Plugin>", key.ElementQualifier("AppContainer#many")),
		key.New("Plugin", key.ElementQualifier("AppContainer#two")),
	}
	if !reflect.DeepEqual(b.Multi.Contributors, want) {
		t.Errorf("Contributors = %v, want %v", b.Multi.Contributors, want)
	}
	for _, c := range want {
		if _, ok := g.Binding(c); !ok {
			t.Errorf("contribution %v not resolved", c)
		}
	}
}

func TestGenerate_MapMultibinding(t *testing.T) {
	entry := func(name, value string, line int) decl.Member {
		return decl.Member{Name: name, Type: "Handler", Provides: true, Into: decl.IntoMap,
			MapKey: &decl.MapKey{Type: "String", Value: value}, Location: at(line)}
	}
	t.Run("provider values", func(t *testing.T) {
		m := graphOf([]decl.Member{entry("a", "a", 1), entry("b", "b", 2)}, accessor("handlers", "Map<String, Provider<Handler>>"))
		g := generate(t, m, "AppGraph")
		if !g.OK() {
			t.Fatalf("Diagnostics = %v", g.Diagnostics)
		}
		b, _ := g.Binding(k("Map<String, Provider<Handler>>"))
		if b == nil || !b.Multi.ProviderValues || !b.Multi.Map {
			t.Fatalf("binding = %+v", b)
		}
		for _, d := range b.Deps {
			if !d.Deferred() {
				t.Errorf("dependency %v is eager, want deferred", d.Raw())
			}
		}
	})
	t.Run("duplicate key", func(t *testing.T) {
		m := graphOf([]decl.Member{entry("a", "same", 1), entry("b", "same", 2)}, accessor("handlers", "Map<String, Handler>"))
		g := generate(t, m, "AppGraph")
		dups := g.Diagnostics.Of(diag.DuplicateBinding)
		if len(dups) != 1 || !strings.Contains(dups[0].Message, "duplicate map key same") {
			t.Errorf("Diagnostics = %v", g.Diagnostics)
		}
	})
}

func TestGenerate_BindsAndInstances(t *testing.T) {
	m := graphOf([]decl.Member{
		provides("impl", "RealRepo", 1),
		{Name: "bindRepo", Type: "Repo", Binds: true, Receiver: "RealRepo", Location: at(2)},
	})
	m.Graphs[0].Creator = &decl.Creator{Name: "Factory", Params: []decl.CreatorParam{{Name: "port", Kind: decl.InstanceParam, Type: "Int"}}}
	m.Graphs[0].Accessors = []decl.Accessor{accessor("port", "Int")}
	g := generate(t, m, "AppGraph")
	if !g.OK() {
		t.Fatalf("Diagnostics = %v", g.Diagnostics)
	}
	if b, _ := g.Binding(k("Int")); b == nil || b.Kind != binding.BoundInstance {
		t.Errorf("Binding(Int) = %+v", b)
	}
	// Declared @Binds are seeded even when nothing requests them.
	if b, _ := g.Binding(k("Repo")); b == nil || b.Kind != binding.Alias {
		t.Errorf("Binding(Repo) = %+v", b)
	}
}

func TestGenerate_MembersInjector(t *testing.T) {
	m := graphOf([]decl.Member{provides("clock", "Clock", 1)})
	m.Classes = []*decl.Class{{Name: "Activity", Members: []decl.InjectedMember{{Name: "clock", Type: "Clock"}}}}
	m.Graphs[0].Injectors = []decl.Injector{{Name: "inject", Target: "Activity"}}
	g := generate(t, m, "AppGraph")
	if !g.OK() {
		t.Fatalf("Diagnostics = %v", g.Diagnostics)
	}
	b, _ := g.Binding(k("MembersInjector<Activity>"))
	if b == nil || b.Kind != binding.MembersInjected || len(b.Deps) != 1 {
		t.Errorf("injector binding = %+v", b)
	}
}

func TestGenerate_IncludedGraph(t *testing.T) {
	m := &decl.Module{Graphs: []*decl.Graph{
		{Name: "Lib", Accessors: []decl.Accessor{accessor("http", "HttpClient")}},
		{Name: "App", Accessors: []decl.Accessor{accessor("http", "HttpClient")},
			Creator: &decl.Creator{Name: "Factory", Params: []decl.CreatorParam{{Name: "lib", Kind: decl.IncludesParam, Type: "Lib"}}}},
	}}
	g := generate(t, m, "App")
	if !g.OK() {
		t.Fatalf("Diagnostics = %v", g.Diagnostics)
	}
	b, _ := g.Binding(k("HttpClient"))
	if b == nil || b.Kind != binding.GraphDependency || b.Owner != "Lib" {
		t.Errorf("Binding(HttpClient) = %+v", b)
	}
	if lib, _ := g.Binding(k("Lib")); lib == nil || lib.Kind != binding.BoundInstance {
		t.Errorf("Binding(Lib) = %+v", lib)
	}
}

func TestGenerate_ExtensionUsesParent(t *testing.T) {
	m := &decl.Module{
		Containers: []*decl.Container{{Name: "AppContainer", Annotated: true, Members: []decl.Member{provides("db", "Database", 1)}}},
		Graphs: []*decl.Graph{
			{Name: "App", Scopes: []string{"AppScope"}, Containers: []string{"AppContainer"}, Extensions: []string{"Session"}},
			{Name: "Session", Extension: true, Scopes: []string{"SessionScope"},
				Accessors: []decl.Accessor{accessor("db", "Database"), accessor("cache", "Cache"), accessor("user", "User")}},
		},
		Classes: []*decl.Class{
			{Name: "Cache", Inject: true, Scope: "AppScope"},
			{Name: "User", Inject: true, Scope: "SessionScope"},
		},
	}
	ctx := context.Background()
	b := builder(m)
	root, _ := b.Node(ctx, "App")
	parent := New(root, m)
	parent.Generate(ctx)
	childNode, err := b.Extension(ctx, root, "Session")
	if err != nil {
		t.Fatal(err)
	}
	child := New(childNode, m, WithParent(parent)).Generate(ctx)
	if !child.OK() {
		t.Fatalf("Diagnostics = %v", child.Diagnostics)
	}
	for _, typ := range []string{"Database", "Cache"} {
		cb, _ := child.Binding(k(typ))
		if cb == nil || cb.Kind != binding.GraphDependency || cb.Owner != "App" {
			t.Errorf("child Binding(%s) = %+v", typ, cb)
		}
		if !parent.Graph().Keeps(k(typ)) {
			t.Errorf("parent does not keep %s", typ)
		}
	}
	if pb, _ := parent.Graph().Binding(k("Cache")); pb == nil || pb.Scope != "AppScope" {
		t.Errorf("parent Binding(Cache) = %+v", pb)
	}
	if ub, _ := child.Binding(k("User")); ub == nil || ub.Kind != binding.ConstructorInjected || ub.Owner != "App>Session" {
		t.Errorf("child Binding(User) = %+v", ub)
	}
}

// generateExtension generates graph App and then its extension Session.
func generateExtension(t *testing.T, m *decl.Module) (parent, child *Graph) {
	t.Helper()
	ctx := context.Background()
	b := builder(m)
	root, err := b.Node(ctx, "App")
	if err != nil {
		t.Fatal(err)
	}
	pg := New(root, m)
	pg.Generate(ctx)
	childNode, err := b.Extension(ctx, root, "Session")
	if err != nil {
		t.Fatal(err)
	}
	return pg.Graph(), New(childNode, m, WithParent(pg)).Generate(ctx)
}

func TestGenerate_ExtensionExtendsParentMultibinding(t *testing.T) {
	m := &decl.Module{
		Containers: []*decl.Container{
			{Name: "AppC", Annotated: true, Members: []decl.Member{{Name: "a", Type: "String", Provides: true, Into: decl.IntoSet, Location: at(1)}}},
			{Name: "SesC", Annotated: true, Members: []decl.Member{{Name: "b", Type: "String", Provides: true, Into: decl.IntoSet, Location: at(2)}}},
		},
		Graphs: []*decl.Graph{
			{Name: "App", Containers: []string{"AppC"}, Extensions: []string{"Session"}, Accessors: []decl.Accessor{accessor("names", "Set<String>")}},
			{Name: "Session", Extension: true, Containers: []string{"SesC"}, Accessors: []decl.Accessor{accessor("names", "Set<String>")}},
		},
	}
	parent, child := generateExtension(t, m)
	if !parent.OK() || !child.OK() {
		t.Fatalf("Diagnostics = %v, %v", parent.Diagnostics, child.Diagnostics)
	}

	fromApp := key.New("String", key.ElementQualifier("AppC#a"))
	fromSession := key.New("String", key.ElementQualifier("SesC#b"))

	cb, _ := child.Binding(k("Set<String>"))
	if cb == nil || cb.Kind != binding.Multibinding {
		t.Fatalf("child Binding(Set<String>) = %+v, want a multibinding", cb)
	}
	if want := []key.TypeKey{fromApp, fromSession}; !reflect.DeepEqual(cb.Multi.Contributors, want) {
		t.Errorf("child Contributors = %v, want %v", cb.Multi.Contributors, want)
	}
	if a, _ := child.Binding(fromApp); a == nil || a.Kind != binding.GraphDependency || a.Owner != "App" {
		t.Errorf("child Binding(%v) = %+v, want a graph dependency on App", fromApp, a)
	}
	if !parent.Keeps(fromApp) {
		t.Errorf("parent does not keep %v", fromApp)
	}

	pb, _ := parent.Binding(k("Set<String>"))
	if pb == nil || !reflect.DeepEqual(pb.Multi.Contributors, []key.TypeKey{fromApp}) {
		t.Errorf("parent Binding(Set<String>) = %+v, want only its own contribution", pb)
	}
	if _, ok := parent.Binding(fromSession); ok {
		t.Errorf("parent resolved the child contribution %v", fromSession)
	}
}

func TestGenerate_ExtensionDuplicateMapKeyAcrossGraphs(t *testing.T) {
	entry := func(name string, line int) decl.Member {
		return decl.Member{Name: name, Type: "Handler", Provides: true, Into: decl.IntoMap,
			MapKey: &decl.MapKey{Type: "String", Value: "home"}, Location: at(line)}
	}
	m := &decl.Module{
		Containers: []*decl.Container{
			{Name: "AppC", Annotated: true, Members: []decl.Member{entry("appHome", 1)}},
			{Name: "SesC", Annotated: true, Members: []decl.Member{entry("sessionHome", 2)}},
		},
		Graphs: []*decl.Graph{
			{Name: "App", Containers: []string{"AppC"}, Extensions: []string{"Session"}},
			{Name: "Session", Extension: true, Containers: []string{"SesC"}, Accessors: []decl.Accessor{accessor("routes", "Map<String, Handler>")}},
		},
	}
	_, child := generateExtension(t, m)
	if got := child.Diagnostics.Count(diag.DuplicateBinding); got != 1 {
		t.Errorf("DuplicateBinding count = %d, want 1: %v", got, child.Diagnostics)
	}
}

func TestGenerate_ExtensionDefaultStaysInChild(t *testing.T) {
	m := &decl.Module{
		Containers: []*decl.Container{
			{Name: "AppC", Annotated: true, Members: []decl.Member{provides("db", "Database", 1)}},
			{Name: "SesC", Annotated: true, Members: []decl.Member{
				provides("user", "User", 2, decl.Param{Name: "n", Type: "Int", HasDefault: true}),
			}},
		},
		Graphs: []*decl.Graph{
			{Name: "App", Containers: []string{"AppC"}, Extensions: []string{"Session"}, Accessors: []decl.Accessor{accessor("db", "Database")}},
			{Name: "Session", Extension: true, Containers: []string{"SesC"}, Accessors: []decl.Accessor{accessor("user", "User")}},
		},
	}
	parent, child := generateExtension(t, m)
	if !child.OK() {
		t.Fatalf("Diagnostics = %v", child.Diagnostics)
	}
	if got, want := parent.Order, []key.TypeKey{k("Database")}; !reflect.DeepEqual(got, want) {
		t.Errorf("parent Order = %v, want %v", got, want)
	}
	if _, ok := parent.Binding(k("Int")); ok {
		t.Error("parent has a binding for Int it never requested")
	}
	if n, _ := child.Binding(k("Int")); n == nil || n.Kind != binding.Absent || n.Owner != "App>Session" {
		t.Errorf("child Binding(Int) = %+v, want Absent owned by the child", n)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	m := graphOf([]decl.Member{provides("provideValue", "String", 3)}, accessor("value", "String"))
	n, _ := builder(m).Node(context.Background(), "AppGraph")
	gen := New(n, m)
	a := gen.Generate(context.Background())
	b := gen.Generate(context.Background())
	if a != b || len(b.Roots) != 1 {
		t.Errorf("second Generate() re-ran: roots = %d", len(b.Roots))
	}
}
