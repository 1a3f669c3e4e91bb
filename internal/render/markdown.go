// Package render turns Markdown sources into HTML laid out the way the
// post-processor expects: a div#doc-content root with nested div.sectN
// section containers.
package render

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Options controls heading id generation.
type Options struct {
	IDPrefix    string // Prepended to generated ids; default "_"
	IDSeparator string // Replaces spaces, dots and hyphens; default "_"

	// AllowHTML passes raw HTML in the source through a sanitizer instead
	// of escaping it.
	AllowHTML bool
}

// SupportedExtensions lists source extensions Markdown can handle.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// IsMarkdown reports whether filename looks like a Markdown source.
func IsMarkdown(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Markdown renders src into a complete HTML document. The first "#" heading
// becomes the document title; "##" headings open div.sect1 containers, "###"
// div.sect2 and so on. Explicit ids ("## Intro {#_doc_intro}") are kept.
func Markdown(src []byte, opts Options) (string, error) {
	if opts.IDPrefix == "" {
		opts.IDPrefix = "_"
	}
	if opts.IDSeparator == "" {
		opts.IDSeparator = "_"
	}

	gmOpts := []goldmark.Option{
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
		),
		goldmark.WithExtensions(
			extension.GFM,
			emoji.Emoji,
		),
	}
	if opts.AllowHTML {
		gmOpts = append(gmOpts, goldmark.WithRendererOptions(gmhtml.WithUnsafe()))
	}
	md := goldmark.New(gmOpts...)
	ctx := parser.NewContext(parser.WithIDs(newSectionIDs(opts.IDPrefix, opts.IDSeparator)))

	var flat bytes.Buffer
	if err := md.Convert(src, &flat, parser.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	rendered := flat.Bytes()
	if opts.AllowHTML {
		rendered = sanitizer().SanitizeBytes(rendered)
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(rendered), body)
	if err != nil {
		return "", fmt.Errorf("parse rendered markdown: %w", err)
	}

	title, content := sectionize(nodes)

	var out bytes.Buffer
	if err := html.Render(&out, page(title, content)); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return out.String(), nil
}

// headingID accepts the ids sectionIDs generates, including non-ASCII letters.
var headingID = regexp.MustCompile(`^[\p{L}\p{N}_:.\-]+$`)

func sanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	for _, h := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		p.AllowAttrs("id").Matching(headingID).OnElements(h)
		p.AllowAttrs("class").OnElements(h)
	}
	return p
}

// sectionize nests the flat goldmark output into section containers and
// pulls out the document title.
func sectionize(nodes []*html.Node) (*html.Node, *html.Node) {
	type stackEntry struct {
		node  *html.Node
		level int
	}

	var title *html.Node
	content := element("div", "id", "doc-content")
	stack := []stackEntry{{node: content, level: 0}}

	for _, n := range nodes {
		level := sectionLevel(n)
		switch {
		case level == 0 && n.DataAtom == atom.H1 && title == nil && len(stack) == 1:
			title = n
			continue
		case level > 0:
			// Pop until the top is a shallower section.
			for len(stack) > 1 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			sect := element("div", "class", "sect"+strconv.Itoa(level))
			stack[len(stack)-1].node.AppendChild(sect)
			sect.AppendChild(n)
			stack = append(stack, stackEntry{node: sect, level: level})
			continue
		}
		stack[len(stack)-1].node.AppendChild(n)
	}
	return title, content
}

// sectionLevel maps h2 to 1, h3 to 2, ... and anything else to 0.
func sectionLevel(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	switch n.DataAtom {
	case atom.H2:
		return 1
	case atom.H3:
		return 2
	case atom.H4:
		return 3
	case atom.H5:
		return 4
	case atom.H6:
		return 5
	}
	return 0
}

func page(title, content *html.Node) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element("html")
	doc.AppendChild(root)

	head := element("head")
	head.AppendChild(element("meta", "charset", "utf-8"))
	if title != nil {
		t := element("title")
		t.AppendChild(&html.Node{Type: html.TextNode, Data: textContent(title)})
		head.AppendChild(t)
	}
	root.AppendChild(head)

	body := element("body")
	if title != nil {
		header := element("div", "id", "header")
		header.AppendChild(title)
		body.AppendChild(header)
	}
	body.AppendChild(content)
	root.AppendChild(body)
	return doc
}

// element builds a node with attributes given as key, value pairs.
func element(tag string, kv ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return n
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}
