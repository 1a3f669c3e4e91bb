// Package improve is the post-processing step that adds "edit this section"
// actions to a rendered HTML document.
package improve

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/dgallion1/improvedoc/internal/attrs"
	"github.com/dgallion1/improvedoc/internal/doctree"
	"github.com/dgallion1/improvedoc/internal/fragment"
	"github.com/dgallion1/improvedoc/internal/source"
	"github.com/dgallion1/improvedoc/internal/walker"
)

// ContentRootSelector locates the element the whole-document action is
// prepended to.
const ContentRootSelector = "div#doc-content"

// ErrNoContentRoot means an otherwise applicable document has no content root.
var ErrNoContentRoot = errors.New("content root not found")

// ErrInvalidAttributes means an attribute value could not be understood.
var ErrInvalidAttributes = errors.New("invalid attributes")

// Document describes the rendered document being post-processed.
type Document struct {
	DocFile    string           // Absolute path of the source file
	Backend    string           // Output backend, e.g. "html5"; empty means html
	Attributes attrs.Attributes // Build-time attributes
}

// Result is the outcome of one pass.
type Result struct {
	Output  string
	Applied bool // false when the output was passed through untouched
	Report  doctree.Report
}

// Processor annotates rendered documents. It holds no per-document state
// and may be shared across goroutines.
type Processor struct {
	log *slog.Logger
}

func NewProcessor(log *slog.Logger) *Processor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Processor{log: log}
}

// Process annotates output, the rendered HTML of doc. Documents that are not
// HTML or whose source path does not fit the configured layout are returned
// unchanged with Applied set to false.
func (p *Processor) Process(doc Document, output string) (Result, error) {
	log := p.log.With("docfile", doc.DocFile)
	passthrough := Result{Output: output, Report: doctree.Report{DocFile: doc.DocFile}}

	if !IsHTMLBackend(doc.Backend) {
		log.Debug("skipping non-html backend", "backend", doc.Backend)
		return passthrough, nil
	}

	// An unknown variant is reported below, once the document is known to apply.
	variant, _ := fragment.ParseVariant(doc.Attributes.Get(attrs.Variant, string(fragment.VariantGroup)))
	ctx, err := source.Resolve(doc.DocFile, doc.Attributes, variant.DefaultEditLabel())
	if errors.Is(err, source.ErrNotApplicable) {
		log.Debug("source path not applicable")
		return passthrough, nil
	}
	if err != nil {
		return passthrough, fmt.Errorf("resolve source: %w", err)
	}

	opts, err := readOptions(doc.Attributes)
	if err != nil {
		return passthrough, fmt.Errorf("%w: %w", ErrInvalidAttributes, err)
	}

	html, err := goquery.NewDocumentFromReader(strings.NewReader(output))
	if err != nil {
		return passthrough, fmt.Errorf("parse html: %w", err)
	}

	root := html.Find(ContentRootSelector).First()
	if root.Length() == 0 {
		return passthrough, fmt.Errorf("%w: %s", ErrNoContentRoot, ContentRootSelector)
	}

	report := doctree.Report{
		DocFile: doc.DocFile,
		Context: ctx,
		File:    ctx.FileName,
		Links:   ctx.Links(ctx.FileName),
	}

	// The whole-document action is unconditional.
	top, err := fragment.Render(opts.variant, fragment.Document, report.Links, ctx.Labels)
	if err != nil {
		return passthrough, err
	}
	root.PrependHtml(top)

	w := walker.New(walker.StandardLevels(opts.levels), opts.match, func(id string, _ int) (string, error) {
		return fragment.Render(opts.variant, fragment.Heading, ctx.Links(ctx.SectionFile(id)), ctx.Labels)
	})
	headings, err := w.Walk(html.Selection, ctx.RootScope())
	if err != nil {
		return passthrough, fmt.Errorf("walk sections: %w", err)
	}
	for i := range headings {
		headings[i].File = ctx.SectionFile(headings[i].ID)
		headings[i].Links = ctx.Links(headings[i].File)
	}
	report.Headings = headings

	out, err := html.Html()
	if err != nil {
		return passthrough, fmt.Errorf("render html: %w", err)
	}

	log.Info("annotated document", "organisation", ctx.Organisation, "repo", ctx.Repo, "headings", len(headings))
	return Result{Output: out, Applied: true, Report: report}, nil
}

// IsHTMLBackend reports whether backend renders HTML ("html5", "xhtml5", ...).
func IsHTMLBackend(backend string) bool {
	if backend == "" {
		return true
	}
	base := strings.TrimPrefix(strings.ToLower(backend), "x")
	base = strings.TrimRightFunc(base, unicode.IsDigit)
	return base == "html"
}

type options struct {
	variant fragment.Variant
	match   walker.MatchFunc
	levels  int
}

func readOptions(a attrs.Attributes) (options, error) {
	variant, err := fragment.ParseVariant(a.Get(attrs.Variant, string(fragment.VariantGroup)))
	if err != nil {
		return options{}, err
	}

	var match walker.MatchFunc
	switch m := a.Get(attrs.Match, "prefix"); m {
	case "prefix":
		match = walker.PrefixMatch
	case "reserved":
		match = walker.ReservedMarkerMatch(a.Get(attrs.ReservedMarker, "__"))
	default:
		return options{}, fmt.Errorf("unknown match rule %q", m)
	}

	levels, err := strconv.Atoi(a.Get(attrs.Levels, strconv.Itoa(walker.MaxLevels)))
	if err != nil || levels < 1 || levels > walker.MaxLevels {
		return options{}, fmt.Errorf("levels must be between 1 and %d", walker.MaxLevels)
	}

	return options{variant: variant, match: match, levels: levels}, nil
}
