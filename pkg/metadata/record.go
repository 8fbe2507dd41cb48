package metadata

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"github.com/matzehuels/bindgraph/pkg/decl"
	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
	"github.com/matzehuels/bindgraph/pkg/key"
)

// Version is the record format version written by this build.
const Version = 1

// Param is one dependency of a provider factory.
type Param struct {
	Name    string         `json:"name"`
	Request key.Contextual `json:"request"`
}

// ProviderFactory describes a @Provides member.
type ProviderFactory struct {
	// ID is the opaque factory reference, container#member.
	ID           string            `json:"id"`
	Key          key.TypeKey       `json:"key"`
	Params       []Param           `json:"params,omitempty"`
	Scope        string            `json:"scope,omitempty"`
	Contribution decl.Contribution `json:"contribution,omitempty"`
	MapKey       *decl.MapKey      `json:"map_key,omitempty"`

	Location decl.Location `json:"-"`
}

// BindsDescriptor describes a @Binds or @Multibinds member.
type BindsDescriptor struct {
	ID string `json:"id"`
	// Target is the produced (bound) key.
	Target key.TypeKey `json:"target"`
	// Source is the aliased key; zero for @Multibinds.
	Source       key.TypeKey       `json:"source,omitzero"`
	Multibinds   bool              `json:"multibinds,omitempty"`
	AllowEmpty   bool              `json:"allow_empty,omitempty"`
	Scope        string            `json:"scope,omitempty"`
	Contribution decl.Contribution `json:"contribution,omitempty"`
	MapKey       *decl.MapKey      `json:"map_key,omitempty"`

	Location decl.Location `json:"-"`
}

// MultibindingKind returns "set" or "map" for a @Multibinds declaration.
func (b BindsDescriptor) MultibindingKind() string {
	if !b.Multibinds {
		return ""
	}
	if strings.HasPrefix(b.Target.Type, key.MapName+"<") {
		return "map"
	}
	return "set"
}

// Record is the persisted metadata of one container or graph.
type Record struct {
	Version      int               `json:"version"`
	Name         string            `json:"name"`
	IsGraph      bool              `json:"is_graph,omitempty"`
	CanBeManaged bool              `json:"can_be_managed,omitempty"`
	Providers    []ProviderFactory `json:"providers,omitempty"`
	Binds        []BindsDescriptor `json:"binds,omitempty"`
	// Includes lists every transitively included container.
	Includes []string `json:"includes,omitempty"`
	Scopes   []string `json:"scopes,omitempty"`
	// ParentGraphs and IncludedGraphs are recorded for extendable graphs.
	ParentGraphs   []string `json:"parent_graphs,omitempty"`
	IncludedGraphs []string `json:"included_graphs,omitempty"`
}

// Empty reports whether the record carries no bindings and no includes.
func (r *Record) Empty() bool {
	return len(r.Providers) == 0 && len(r.Binds) == 0 && len(r.Includes) == 0
}

// Normalize sorts the set-valued fields, so records derived from source
// and from metadata encode identically. Providers and binds keep their
// declaration order.
func (r *Record) Normalize() {
	if r.Version == 0 {
		r.Version = Version
	}
	for _, s := range []*[]string{&r.Includes, &r.Scopes, &r.ParentGraphs, &r.IncludedGraphs} {
		slices.Sort(*s)
		*s = slices.Compact(*s)
		if len(*s) == 0 {
			*s = nil
		}
	}
}

// Encode returns the canonical JSON encoding of r.
func Encode(r *Record) ([]byte, error) {
	c := *r
	c.Includes = slices.Clone(r.Includes)
	c.Scopes = slices.Clone(r.Scopes)
	c.ParentGraphs = slices.Clone(r.ParentGraphs)
	c.IncludedGraphs = slices.Clone(r.IncludedGraphs)
	c.Normalize()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&c); err != nil {
		return nil, bgerrors.Wrap(bgerrors.ErrCodeInternal, err, "encode metadata for %s", r.Name)
	}
	return buf.Bytes(), nil
}

// Decode parses a record and checks its version.
func Decode(data []byte) (*Record, error) {
	var r Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return nil, bgerrors.Wrap(bgerrors.ErrCodeMetadataCorrupt, err, "decode metadata")
	}
	if r.Version != Version {
		return nil, bgerrors.New(bgerrors.ErrCodeMetadataMismatch, "metadata for %s has version %d, want %d", r.Name, r.Version, Version)
	}
	if r.Name == "" {
		return nil, bgerrors.New(bgerrors.ErrCodeMetadataCorrupt, "metadata record without name")
	}
	r.Normalize()
	return &r, nil
}
