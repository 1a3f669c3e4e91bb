// Package fragment renders the markup injected next to the document and its
// section headings.
package fragment

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dgallion1/improvedoc/internal/source"
)

// Variant selects the shape of the fragment.
type Variant string

const (
	// VariantButton is a single edit button.
	VariantButton Variant = "button"
	// VariantGroup is an edit button plus a history/raw/blame dropdown.
	VariantGroup Variant = "group"
)

// ParseVariant maps an attribute value to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantButton, VariantGroup:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown fragment variant %q", s)
}

// DefaultEditLabel is the edit label each variant uses when none is configured.
func (v Variant) DefaultEditLabel() string {
	if v == VariantButton {
		return "Improve this doc"
	}
	return "Edit"
}

// Placement says where the fragment goes.
type Placement int

const (
	// Document is the whole-document action at the top of the content root.
	Document Placement = iota
	// Heading sits right after a section heading.
	Heading
)

func (p Placement) style() template.CSS {
	if p == Heading {
		return "float: right; font-size: small; padding: 6px; margin-top: -55px;"
	}
	return "float: right; font-size: small; padding: 6px;"
}

const buttonHTML = `<a role="button" class="button secondary improvethisdoc" href="{{.Links.Edit}}" style="{{.Style}}">` +
	`<i class="fa fa-pencil-square-o"></i>&nbsp;{{.Labels.Edit}}</a>`

const groupHTML = `<div class="improvethisdoc improvethisdoc-group" style="{{.Style}}">` +
	`<a role="button" class="button secondary improvethisdoc-edit" href="{{.Links.Edit}}">` +
	`<i class="fa fa-pencil-square-o"></i>&nbsp;{{.Labels.Edit}}</a>` +
	`<details class="improvethisdoc-dropdown">` +
	`<summary class="button secondary" title="{{.Labels.Source}}"><i class="fa fa-caret-down"></i></summary>` +
	`<ul class="improvethisdoc-menu">` +
	`<li><a class="improvethisdoc-history" href="{{.Links.History}}"><i class="fa fa-history"></i>&nbsp;{{.Labels.History}}</a></li>` +
	`<li><a class="improvethisdoc-raw" href="{{.Links.Raw}}"><i class="fa fa-file-text-o"></i>&nbsp;{{.Labels.Raw}}</a></li>` +
	`<li><a class="improvethisdoc-blame" href="{{.Links.Blame}}"><i class="fa fa-user"></i>&nbsp;{{.Labels.Blame}}</a></li>` +
	`</ul></details></div>`

var (
	buttonTmpl = template.Must(template.New("button").Parse(buttonHTML))
	groupTmpl  = template.Must(template.New("group").Parse(groupHTML))
)

type data struct {
	Links  source.Links
	Labels source.Labels
	Style  template.CSS
}

// Render produces the fragment markup. URLs and labels are escaped.
func Render(v Variant, p Placement, links source.Links, labels source.Labels) (string, error) {
	tmpl := groupTmpl
	if v == VariantButton {
		tmpl = buttonTmpl
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data{Links: links, Labels: labels, Style: p.style()}); err != nil {
		return "", fmt.Errorf("render %s fragment: %w", v, err)
	}
	return buf.String(), nil
}
