// Package attr implements named expression holders and the lists that own
// them.
//
// Lists, const lists and templates live in an Arena and refer to their
// parent by Handle. Name lookup is case-insensitive and walks the parent
// chain one level at a time until a match is found or the chain ends.
// Templates are const lists registered by name in a TemplateStore and are
// shared by every list that uses them as a parent.
package attr

import (
	"errors"
	"strings"

	"github.com/mesh-intelligence/docmodel/pkg/expr"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
)

// Registered attribute and list type names.
const (
	TypeBoolean   = "BooleanAttribute"
	TypeNumber    = "NumberAttribute"
	TypeString    = "StringAttribute"
	TypeObject    = "ObjectAttribute"
	TypeMap       = "MapAttribute"
	TypeReference = "ReferenceAttribute"
	TypeList      = "AttributeList"
)

const legacyPrefix = "docmodel.attr."

// Errors returned by attribute persistence and the template store.
var (
	ErrUnknownType      = errors.New("unknown attribute type")
	ErrUnknownTemplate  = errors.New("unknown template")
	ErrTemplateExists   = errors.New("template already defined")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidPreset    = errors.New("invalid template preset")
	ErrParentNotInArena = errors.New("parent is not in this arena")
)

// Reader is the read-only view shared by mutable attributes and const
// snapshots.
type Reader interface {
	Name() string
	// DisplayName defaults to Name.
	DisplayName() string
	// TypeName is the registered type used to rebuild a mutable instance.
	TypeName() string
	Expression() expr.Reader
	Value() any
	// IsTransient reports whether the attribute is excluded from
	// persistence.
	IsTransient() bool
}

// Key returns the lookup key for name.
func Key(name string) string { return strings.ToUpper(name) }

// Registry returns the fixed attribute registry, legacy aliases included.
func Registry() *factory.Registry {
	base := map[string]factory.Constructor{
		TypeBoolean:   func() any { return NewBoolean("", false) },
		TypeNumber:    func() any { return NewNumber("", 0) },
		TypeString:    func() any { return NewString("", "") },
		TypeObject:    func() any { return NewObject("", nil) },
		TypeMap:       func() any { return NewMap("") },
		TypeReference: func() any { return NewReference("") },
		TypeList:      func() any { return newList(TypeList) },
	}
	entries := make(map[string]factory.Constructor, 2*len(base))
	for name, ctor := range base {
		entries[name] = ctor
		entries[legacyPrefix+name] = ctor
	}
	return factory.NewFixed("attributes", entries)
}
