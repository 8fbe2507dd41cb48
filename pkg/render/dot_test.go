package render

import (
	"strings"
	"testing"

	"github.com/matzehuels/bindgraph/pkg/seal"
)

func testPlan() *seal.Plan {
	return &seal.Plan{
		Graph: "AppGraph",
		Bindings: []seal.PlanBinding{
			{Field: "name_1", Key: "Name", Kind: "Provided"},
			{Field: "db_2", Key: "Database", Kind: "GraphDependency"},
			{Field: "greeting_3", Key: "Greeting", Kind: "ConstructorInjected", Scope: "AppScope", Declaration: "Greeting",
				Deps: []seal.PlanDep{{Field: "name_1", Key: "Name"}, {Field: "name_1", Key: "Name", Wrap: "provider"}, {Field: "db_2", Key: "Database"}}},
		},
		BreakPoints: []seal.PlanBreak{{From: "greeting_3", To: "db_2"}},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testPlan(), Options{})
	for _, want := range []string{
		`digraph "AppGraph" {`,
		`"name_1" [label="Name"];`,
		`"db_2" [label="Database", style="rounded,filled,dashed", fillcolor=lightgrey, fontcolor=black];`,
		`"greeting_3" -> "name_1";`,
		`"greeting_3" -> "name_1" [style=dashed, label="provider"];`,
		`"greeting_3" -> "db_2" [color=red];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q in:\n%s", want, dot)
		}
	}
}

func TestToDOT_Detailed(t *testing.T) {
	dot := ToDOT(testPlan(), Options{Detailed: true})
	if !strings.Contains(dot, `label="Greeting\nConstructorInjected\n@AppScope\nGreeting"`) {
		t.Errorf("detailed label missing:\n%s", dot)
	}
	if !strings.Contains(dot, "fillcolor=lightblue") {
		t.Error("scoped binding not highlighted")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.50 200.00" xmlns="x"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.50 200.00" width="100" height="200"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %q, want %q", got, want)
	}
	if string(normalizeViewBox([]byte("<svg/>"))) != "<svg/>" {
		t.Error("svg without viewBox changed")
	}
}
