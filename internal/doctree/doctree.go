package doctree

import "github.com/dgallion1/improvedoc/internal/source"

// Heading is a section heading that received an action fragment.
type Heading struct {
	ID    string       `json:"id"`             // Heading anchor id
	Depth int          `json:"depth"`          // 1 for div.sect1/h2, 2 for div.sect2/h3, ...
	Scope string       `json:"scope"`          // Prefix the id was matched against
	File  string       `json:"file,omitempty"` // Sub-file the heading maps to
	Links source.Links `json:"links"`          // Edit/history/raw/blame URLs
}

// Report summarizes one post-processing pass over a document.
type Report struct {
	DocFile  string          `json:"docfile"`
	Context  *source.Context `json:"context,omitempty"`
	File     string          `json:"file,omitempty"`
	Links    source.Links    `json:"links"` // Whole-document action
	Headings []Heading       `json:"headings"`
}
