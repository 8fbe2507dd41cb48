package container

import (
	"slices"

	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/metadata"
)

// Container is a resolved binding container. It is immutable once returned.
type Container struct {
	Name      string
	Providers []metadata.ProviderFactory
	Binds     []metadata.BindsDescriptor
	// Includes are the declared includes for local containers and the
	// transitive includes for containers loaded from metadata.
	Includes     []string
	IsGraph      bool
	CanBeManaged bool
	FromMetadata bool
	Location     decl.Location
}

// Empty reports whether the container declares nothing.
func (c *Container) Empty() bool {
	return len(c.Providers) == 0 && len(c.Binds) == 0 && len(c.Includes) == 0
}

// Aliases returns the @Binds descriptors.
func (c *Container) Aliases() []metadata.BindsDescriptor {
	var out []metadata.BindsDescriptor
	for _, b := range c.Binds {
		if !b.Multibinds {
			out = append(out, b)
		}
	}
	return out
}

// Multibinds returns the @Multibinds descriptors.
func (c *Container) Multibinds() []metadata.BindsDescriptor {
	var out []metadata.BindsDescriptor
	for _, b := range c.Binds {
		if b.Multibinds {
			out = append(out, b)
		}
	}
	return out
}

// Record converts c to its persisted form. transitive is the full include
// closure.
func (c *Container) Record(transitive []string) *metadata.Record {
	r := &metadata.Record{
		Version:      metadata.Version,
		Name:         c.Name,
		IsGraph:      c.IsGraph,
		CanBeManaged: c.CanBeManaged,
		Providers:    slices.Clone(c.Providers),
		Binds:        slices.Clone(c.Binds),
		Includes:     slices.Clone(transitive),
	}
	r.Normalize()
	return r
}

// FromRecord rebuilds a container from metadata.
func FromRecord(r *metadata.Record) *Container {
	return &Container{
		Name:         r.Name,
		Providers:    slices.Clone(r.Providers),
		Binds:        slices.Clone(r.Binds),
		Includes:     slices.Clone(r.Includes),
		IsGraph:      r.IsGraph,
		CanBeManaged: r.CanBeManaged,
		FromMetadata: true,
	}
}
