package decl

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
)

// Format is a declaration file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// SchemaURL identifies the embedded module schema.
const SchemaURL = "https://bindgraph.dev/schema/module.json"

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(SchemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(SchemaURL)
})

// Schema returns the compiled JSON schema declaration files must satisfy.
func Schema() (*jsonschema.Schema, error) { return compiledSchema() }

// SchemaSource returns the raw embedded schema document.
func SchemaSource() []byte { return bytes.Clone(schemaJSON) }

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", bgerrors.New(bgerrors.ErrCodeInvalidFormat, "unsupported declaration file %q (want .yaml, .toml or .json)", path)
}

// Decode parses, schema-validates and validates a module.
func Decode(data []byte, format Format) (*Module, error) {
	var doc any
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		var m map[string]any
		err = toml.Unmarshal(data, &m)
		doc = m
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	default:
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidFormat, "unknown format %q", format)
	}
	if err != nil {
		return nil, bgerrors.Wrap(bgerrors.ErrCodeInvalidFormat, err, "decode %s", format)
	}

	// Round-trip through JSON so every format validates and decodes the same way.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, bgerrors.Wrap(bgerrors.ErrCodeInvalidFormat, err, "normalize %s", format)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(normalized))
	if err != nil {
		return nil, bgerrors.Wrap(bgerrors.ErrCodeInvalidFormat, err, "normalize %s", format)
	}
	sch, err := Schema()
	if err != nil {
		return nil, bgerrors.Wrap(bgerrors.ErrCodeInternal, err, "compile declaration schema")
	}
	if err := sch.Validate(inst); err != nil {
		return nil, bgerrors.Wrap(bgerrors.ErrCodeInvalidSchema, err, "declaration does not match schema")
	}

	var m Module
	if err := json.Unmarshal(normalized, &m); err != nil {
		return nil, bgerrors.Wrap(bgerrors.ErrCodeInvalidFormat, err, "decode module")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFile reads one declaration file. Declarations without an explicit
// location are attributed to the file.
func LoadFile(path string) (*Module, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bgerrors.Wrap(bgerrors.ErrCodeNotFound, err, "read %s", path)
	}
	m, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.stamp(path)
	return m, nil
}

// LoadFiles reads and merges several declaration files into one module.
// An empty name takes the name of the first file's module.
func LoadFiles(name string, paths ...string) (*Module, error) {
	mods := make([]*Module, 0, len(paths))
	for _, p := range paths {
		m, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	if len(mods) == 1 && (name == "" || name == mods[0].Name) {
		return mods[0], nil
	}
	if name == "" && len(mods) > 0 {
		name = mods[0].Name
	}
	return Merge(name, mods...)
}

func (m *Module) stamp(file string) {
	for _, c := range m.Containers {
		stampContainer(c, file)
	}
	for _, g := range m.Graphs {
		stampLoc(&g.Location, file)
		stampMembers(g.Members, file)
		for i := range g.Accessors {
			stampLoc(&g.Accessors[i].Location, file)
		}
		for i := range g.Injectors {
			stampLoc(&g.Injectors[i].Location, file)
		}
		if g.Creator != nil {
			stampLoc(&g.Creator.Location, file)
			for i := range g.Creator.Params {
				stampLoc(&g.Creator.Params[i].Location, file)
			}
		}
	}
	for _, c := range m.Classes {
		stampLoc(&c.Location, file)
		for i := range c.Constructors {
			stampLoc(&c.Constructors[i].Location, file)
			stampParams(c.Constructors[i].Params, file)
		}
		for i := range c.Members {
			stampLoc(&c.Members[i].Location, file)
		}
	}
	for i := range m.Extensions {
		stampLoc(&m.Extensions[i].Location, file)
	}
}

func stampContainer(c *Container, file string) {
	if c.External {
		return
	}
	stampLoc(&c.Location, file)
	stampMembers(c.Members, file)
	if c.Companion != nil {
		stampContainer(c.Companion, file)
	}
}

func stampMembers(ms []Member, file string) {
	for i := range ms {
		stampLoc(&ms[i].Location, file)
		stampParams(ms[i].Params, file)
	}
}

func stampParams(ps []Param, file string) {
	for i := range ps {
		stampLoc(&ps[i].Location, file)
	}
}

func stampLoc(l *Location, file string) {
	if l.File == "" {
		l.File = file
	}
}
