// Package types provides type definitions for structured data used throughout the a11y-remediator system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// ArtifactKind classifies a source artifact by the role it plays in the project.
type ArtifactKind string

const (
	// ArtifactTemplate is a standalone component template file.
	ArtifactTemplate ArtifactKind = "template"
	// ArtifactInline is a template literal embedded inside a logic file,
	// addressed by a virtual path with an ordinal suffix.
	ArtifactInline ArtifactKind = "inline"
	// ArtifactStatic is plain markup not owned by any component (e.g. the
	// root index document).
	ArtifactStatic ArtifactKind = "static"
	// ArtifactComponent is a markup-producing logic file (JSX/TSX or a
	// script file that embeds markup).
	ArtifactComponent ArtifactKind = "component"
	// ArtifactStylesheet is a global stylesheet.
	ArtifactStylesheet ArtifactKind = "stylesheet"
)

// SourceArtifact is a unit of template/markup source that can be edited.
// Raw is the text as read from storage; Normalized has runtime framework
// attributes stripped and whitespace collapsed, and is used only for
// matching, never written back.
type SourceArtifact struct {
	Path       string       `json:"path"`
	Kind       ArtifactKind `json:"kind"`
	Raw        string       `json:"-"`
	Normalized string       `json:"-"`
}

// ChangeKind classifies one proposed edit by the artifact family it touches.
type ChangeKind string

const (
	ChangeTemplate   ChangeKind = "template"
	ChangeCompanion  ChangeKind = "typescript"
	ChangeStylesheet ChangeKind = "styles"
)

// Change is a proposed edit to one artifact. It is held in the sandbox
// ledger until committed, and carries the original content so the edit can
// be reverted byte-for-byte.
type Change struct {
	Path      string     `json:"path"`
	Original  string     `json:"original"`
	Corrected string     `json:"corrected"`
	Kind      ChangeKind `json:"kind"`
}

// AttributedViolation pairs a violation with the mapping diagnostics that
// explain why it was attributed to an artifact.
type AttributedViolation struct {
	Violation   Violation `json:"violation"`
	MatchMethod string    `json:"match_method"`
}

// MappingEntry associates one artifact path with the violations attributed
// to it, in cascade order.
type MappingEntry struct {
	Path       string                `json:"path"`
	Violations []AttributedViolation `json:"violations"`
}
