package sdfgraph

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrKindNotFound is returned by [Catalog.Lookup] for unregistered kind IDs.
var ErrKindNotFound = errors.New("operator kind not found")

// Catalog is a registry of operator kinds keyed by ID.
// The zero value is an empty catalog ready to use.
type Catalog struct {
	kinds map[string]*OperatorKind
}

// DefaultCatalog returns a new catalog holding every built-in operator kind.
func DefaultCatalog() *Catalog {
	var c Catalog
	var errs []error
	for _, kind := range builtinKinds() {
		errs = append(errs, c.Register(kind))
	}
	if err := errors.Join(errs...); err != nil {
		panic("sdfgraph: invalid built-in catalog: " + err.Error())
	}
	return &c
}

// Register validates and adds a kind to the catalog. Registering an ID twice is an error.
func (c *Catalog) Register(kind OperatorKind) error {
	err := kind.Validate()
	if err != nil {
		return err
	}
	if c.kinds == nil {
		c.kinds = make(map[string]*OperatorKind)
	} else if _, exists := c.kinds[kind.ID]; exists {
		return fmt.Errorf("operator kind %q already registered", kind.ID)
	}
	// Copy slices so the caller cannot mutate the registered kind.
	kind.Inputs = slices.Clone(kind.Inputs)
	kind.Outputs = slices.Clone(kind.Outputs)
	kind.Params = slices.Clone(kind.Params)
	kind.Library = slices.Clone(kind.Library)
	c.kinds[kind.ID] = &kind
	return nil
}

// Lookup returns the kind registered under id. The returned kind must not be modified.
func (c *Catalog) Lookup(id string) (*OperatorKind, error) {
	kind, ok := c.kinds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKindNotFound, id)
	}
	return kind, nil
}

// Kinds returns all registered kinds sorted by ID.
func (c *Catalog) Kinds() []*OperatorKind {
	kinds := make([]*OperatorKind, 0, len(c.kinds))
	for _, k := range c.kinds {
		kinds = append(kinds, k)
	}
	slices.SortFunc(kinds, func(a, b *OperatorKind) int { return strings.Compare(a.ID, b.ID) })
	return kinds
}

func builtinKinds() []OperatorKind {
	return []OperatorKind{
		// Primitives.
		sphereKind(),
		cubeKind(),
		planeKind(),
		torusKind(),
		// Domain operators.
		translateKind(),
		scaleKind(),
		bendKind(),
		twistKind(),
		mirrorKind(),
		roundKind(),
		shellKind(),
		// Combinators.
		unionKind(),
		intersectionKind(),
		differenceKind(),
		smoothMinKind(),
		smoothIntersectionKind(),
		smoothDifferenceKind(),
		// Values.
		scalarKind(),
		vector3Kind(),
		positionKind(),

		outputKind(),
	}
}
