/*
format.go - Sales format registration and lookup

PURPOSE:
  Provides a registry for catalog packages to register their sales format
  types (hardcover, ebook, audiobook, ...). This enables deserialization
  from storage/JSON back to concrete types while keeping this package
  agnostic of any particular catalog.

HOW IT WORKS:
  1. Catalog packages define their FormatType implementations
  2. Catalog packages register them on init() or explicit registration
  3. Factory/storage uses the registry to reconstruct types

USAGE:
  // In catalog/formats.go
  func init() {
      royalty.RegisterFormat(FormatHardcover)
      royalty.RegisterFormat(FormatEbook)
  }

  // In factory
  format := royalty.LookupFormat("ebook")  // returns catalog.FormatEbook

SEE ALSO:
  - catalog/formats.go: trade-publishing format implementations
  - schedule.go: per-format tier schedules keyed by FormatID
*/
package royalty

import (
	"fmt"
	"sync"
)

// =============================================================================
// FORMAT TYPE
// =============================================================================

// FormatType identifies one sales channel of a title. Each format carries
// its own tier schedule and its own net-sales floor within a period.
type FormatType interface {
	// FormatID is the stable identifier used in schedules, sales entries
	// and storage ("hardcover", "ebook", ...).
	FormatID() string

	// FormatClass groups formats for reporting ("print", "digital", "audio").
	FormatClass() string
}

// =============================================================================
// FORMAT REGISTRY
// =============================================================================

var (
	formatRegistry = make(map[string]FormatType)
	formatMu       sync.RWMutex
)

// RegisterFormat adds a format type to the global registry.
// Call this from catalog package init() functions.
func RegisterFormat(f FormatType) {
	formatMu.Lock()
	defer formatMu.Unlock()
	formatRegistry[f.FormatID()] = f
}

// LookupFormat finds a registered format type by ID.
// Returns nil if not found.
func LookupFormat(id string) FormatType {
	formatMu.RLock()
	defer formatMu.RUnlock()
	return formatRegistry[id]
}

// MustLookupFormat finds a registered format type or panics.
// Use in tests or when you're certain the format exists.
func MustLookupFormat(id string) FormatType {
	f := LookupFormat(id)
	if f == nil {
		panic(fmt.Sprintf("format type not registered: %s", id))
	}
	return f
}

// ListFormats returns all registered format types.
func ListFormats() []FormatType {
	formatMu.RLock()
	defer formatMu.RUnlock()
	result := make([]FormatType, 0, len(formatRegistry))
	for _, f := range formatRegistry {
		result = append(result, f)
	}
	return result
}

// ListFormatsByClass returns formats for a specific class.
func ListFormatsByClass(class string) []FormatType {
	formatMu.RLock()
	defer formatMu.RUnlock()
	var result []FormatType
	for _, f := range formatRegistry {
		if f.FormatClass() == class {
			result = append(result, f)
		}
	}
	return result
}

// =============================================================================
// STRING FORMAT - For testing and fallback
// =============================================================================

// StringFormat is a simple string-based format type.
// Use only for testing or as a fallback when catalog types aren't available.
type StringFormat struct {
	ID    string
	Class string
}

func (f StringFormat) FormatID() string    { return f.ID }
func (f StringFormat) FormatClass() string { return f.Class }

// NewStringFormat creates a StringFormat with "unknown" class.
// This is a fallback for when we have an ID but no registered type.
func NewStringFormat(id string) StringFormat {
	return StringFormat{ID: id, Class: "unknown"}
}

// GetOrCreateFormat looks up a format type, or creates a StringFormat fallback.
// Use this in deserialization when the catalog might not be loaded.
func GetOrCreateFormat(id string) FormatType {
	if f := LookupFormat(id); f != nil {
		return f
	}
	return NewStringFormat(id)
}
