package domain

import "slices"

// EntityKind tags the concrete type behind a CatalogEntity.
type EntityKind string

// Catalog entity kinds.
const (
	KindStyle    EntityKind = "style"
	KindMaterial EntityKind = "material"
)

// CatalogEntity is the capability interface shared by Style and Material.
// The recovery engine operates only on this interface: it resolves entities
// by slug and appends recovered image paths, without caring which concrete
// catalog type owns them.
type CatalogEntity interface {
	EntityID() string
	EntitySlug() string
	Kind() EntityKind
	ImagePaths() []string
	HasImagePath(path string) bool
}

// Style represents an interior-design style in the catalog
// (e.g. "Mid-Century Modern"). Styles own an ordered list of
// generated showcase images.
type Style struct {
	Record
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images"`
}

// EntityID implements CatalogEntity.
func (s *Style) EntityID() string { return s.ID }

// EntitySlug implements CatalogEntity.
func (s *Style) EntitySlug() string { return s.Slug }

// Kind implements CatalogEntity.
func (s *Style) Kind() EntityKind { return KindStyle }

// ImagePaths implements CatalogEntity.
func (s *Style) ImagePaths() []string { return s.Images }

// HasImagePath reports whether the style already references the given path.
func (s *Style) HasImagePath(path string) bool {
	return slices.Contains(s.Images, path)
}

// Material represents a physical material in the catalog
// (e.g. "Brushed Brass"). Like styles, materials own generated images.
type Material struct {
	Record
	Name       string   `json:"name"`
	Slug       string   `json:"slug"`
	CategoryID string   `json:"category_id,omitempty"`
	Images     []string `json:"images"`
}

// EntityID implements CatalogEntity.
func (m *Material) EntityID() string { return m.ID }

// EntitySlug implements CatalogEntity.
func (m *Material) EntitySlug() string { return m.Slug }

// Kind implements CatalogEntity.
func (m *Material) Kind() EntityKind { return KindMaterial }

// ImagePaths implements CatalogEntity.
func (m *Material) ImagePaths() []string { return m.Images }

// HasImagePath reports whether the material already references the given path.
func (m *Material) HasImagePath(path string) bool {
	return slices.Contains(m.Images, path)
}
