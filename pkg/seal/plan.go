package seal

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/matzehuels/bindgraph/pkg/cache"
	"github.com/matzehuels/bindgraph/pkg/key"
)

// Plan is the wiring contract handed to code generators.
type Plan struct {
	Graph       string        `json:"graph"`
	Scopes      []string      `json:"scopes,omitempty"`
	Bindings    []PlanBinding `json:"bindings"`
	BreakPoints []PlanBreak   `json:"break_points,omitempty"`
	Accessors   []PlanEntry   `json:"accessors,omitempty"`
	Injectors   []PlanEntry   `json:"injectors,omitempty"`
	Kept        []string      `json:"kept,omitempty"`
	Extensions  []string      `json:"extensions,omitempty"`
}

// PlanBinding is one field of the generated graph, in initialization order.
type PlanBinding struct {
	Field       string    `json:"field"`
	Key         string    `json:"key"`
	Kind        string    `json:"kind"`
	Scope       string    `json:"scope,omitempty"`
	Declaration string    `json:"declaration,omitempty"`
	Owner       string    `json:"owner,omitempty"`
	Deps        []PlanDep `json:"deps,omitempty"`
}

// PlanDep is one dependency of a field.
type PlanDep struct {
	Field string `json:"field,omitempty"`
	Key   string `json:"key"`
	Wrap  string `json:"wrap,omitempty"`
	Name  string `json:"name,omitempty"`
}

// PlanBreak is a deferred edge, by field.
type PlanBreak struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PlanEntry is an accessor or injector reading a field.
type PlanEntry struct {
	Name  string `json:"name"`
	Field string `json:"field"`
	Wrap  string `json:"wrap,omitempty"`
}

// Plan builds the wiring plan. It is deterministic for a given declaration
// order.
func (s *Sealed) Plan() *Plan {
	g := s.Graph
	p := &Plan{
		Graph:      g.Name,
		Scopes:     g.Node.Scopes,
		Bindings:   make([]PlanBinding, 0, len(s.Order)),
		Extensions: g.Node.Extensions,
	}
	for _, b := range s.Order {
		pb := PlanBinding{
			Field:       s.Fields[b.Key],
			Key:         b.Key.String(),
			Kind:        b.Kind.String(),
			Scope:       b.Scope,
			Declaration: b.Declaration,
			Owner:       b.Owner,
		}
		for _, d := range b.Deps {
			pd := PlanDep{Field: s.Fields[d.Raw()], Key: d.Raw().String(), Name: d.Name}
			if d.Deferred() {
				pd.Wrap = d.Wrap.String()
			}
			pb.Deps = append(pb.Deps, pd)
		}
		p.Bindings = append(p.Bindings, pb)
	}
	for _, bp := range s.BreakPoints {
		p.BreakPoints = append(p.BreakPoints, PlanBreak{From: s.Fields[bp.From], To: s.Fields[bp.To]})
	}
	for _, r := range g.Roots {
		e := PlanEntry{Name: r.Name, Field: s.Fields[r.Request.Raw()]}
		if r.Request.Deferred() {
			e.Wrap = r.Request.Wrap.String()
		}
		if r.Injector {
			p.Injectors = append(p.Injectors, e)
		} else {
			p.Accessors = append(p.Accessors, e)
		}
	}
	for _, k := range g.Kept {
		p.Kept = append(p.Kept, s.Fields[k])
	}
	return p
}

// JSON encodes the plan with indentation.
func (p *Plan) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fieldDigits is the length of the key digest suffix of a field name.
const fieldDigits = 6

// FieldName returns the synthetic field identifier of k: the camel-cased
// short type name, the qualifier value, and a short digest of the full key.
//
//	String              -> string_<hash>
//	@Named("api") Url   -> urlApi_<hash>
//	Map<String, Plugin> -> mapStringPlugin_<hash>
//
// Short digests can collide; [Sealed.Fields] resolves collisions within one
// graph by falling back to the full digest.
func FieldName(k key.TypeKey) string { return fieldName(k, fieldDigits) }

func fieldName(k key.TypeKey, digits int) string {
	var b strings.Builder
	typ := k.Type
	if t, ok := k.Parsed(); ok {
		typ = t.Short()
	}
	words := identWords(typ)
	if !k.Qualifier.IsElement() {
		words = append(words, identWords(k.Qualifier.Value)...)
	}
	for i, w := range words {
		if i == 0 {
			b.WriteString(strings.ToLower(w[:1]) + w[1:])
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]) + w[1:])
	}
	if b.Len() == 0 {
		b.WriteString("binding")
	}
	b.WriteByte('_')
	digest := cache.Hash([]byte(k.String()))
	b.WriteString(digest[:min(digits, len(digest))])
	return b.String()
}

// assignFields names every key with a digits-long digest. Keys whose short
// name is shared by another key get the full digest instead.
func assignFields(keys []key.TypeKey, digits int) map[key.TypeKey]string {
	named := make(map[string][]key.TypeKey, len(keys))
	for _, k := range keys {
		n := fieldName(k, digits)
		named[n] = append(named[n], k)
	}
	fields := make(map[key.TypeKey]string, len(keys))
	for n, ks := range named {
		if len(ks) == 1 {
			fields[ks[0]] = n
			continue
		}
		for _, k := range ks {
			fields[k] = fieldName(k, sha256Digits)
		}
	}
	return fields
}

// sha256Digits is the length of a full hex key digest.
const sha256Digits = 64

func identWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) || r > unicode.MaxASCII
	})
}
