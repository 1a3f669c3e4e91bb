// Package source recovers the repository location of a document from its
// source-file path and builds the URLs that point back at it.
package source

import (
	"errors"
	"path"
	"regexp"
	"strings"

	"github.com/dgallion1/improvedoc/internal/attrs"
)

// ErrNotApplicable means the document does not live in the expected
// directory layout. Callers pass their output through unchanged.
var ErrNotApplicable = errors.New("source path not applicable")

const (
	DefaultRootDir = "/adocs/documentation"
	DefaultSrcDir  = "/src/main/asciidoc"
	DefaultBranch  = "master"
	DefaultHost    = "https://github.com"
)

// Labels holds the human-readable text for each action.
type Labels struct {
	Edit    string `json:"edit"`
	Source  string `json:"source"`
	History string `json:"history"`
	Raw     string `json:"raw"`
	Blame   string `json:"blame"`
}

// Context is everything known about where a document's source lives.
// It is built once per document and never modified.
type Context struct {
	Organisation string `json:"organisation"`
	Repo         string `json:"repo"`
	Branch       string `json:"branch"`
	BasePath     string `json:"base_path"` // begins and ends with "/"
	FileName     string `json:"file_name"`
	FileStem     string `json:"file_stem"`
	FileExt      string `json:"file_ext"`
	Host         string `json:"host"`
	Labels       Labels `json:"labels"`
}

// Resolve parses docfile against the rootDir/srcDir convention configured in a.
// Configured organisation, repo and branch always win over the values
// recovered from the path.
func Resolve(docfile string, a attrs.Attributes, editLabel string) (*Context, error) {
	rootDir := a.Get(attrs.RootDir, DefaultRootDir)
	srcDir := a.Get(attrs.SrcDir, DefaultSrcDir)

	m, ok := matchPath(docfile, rootDir, srcDir)
	if !ok {
		return nil, ErrNotApplicable
	}

	ext := path.Ext(m.file)
	stem := strings.TrimSuffix(m.file, ext)
	if stem == "" {
		return nil, ErrNotApplicable
	}

	return &Context{
		Organisation: a.Get(attrs.Organisation, m.org),
		Repo:         a.Get(attrs.Repo, m.repo),
		Branch:       a.Get(attrs.Branch, DefaultBranch),
		BasePath:     rootDir + srcDir + m.relDir + "/",
		FileName:     m.file,
		FileStem:     stem,
		FileExt:      ext,
		Host:         strings.TrimSuffix(a.Get(attrs.Host, DefaultHost), "/"),
		Labels: Labels{
			Edit:    a.Get(attrs.EditLabel, a.Get(attrs.Label, editLabel)),
			Source:  a.Get(attrs.SourceLabel, "Source"),
			History: a.Get(attrs.HistoryLabel, "History"),
			Raw:     a.Get(attrs.RawLabel, "Raw"),
			Blame:   a.Get(attrs.BlameLabel, "Blame"),
		},
	}, nil
}

type pathMatch struct {
	org, repo, relDir, file string
}

// matchPath applies ".*/(org)/(repo){root}{src}(relDir)/(file)" to the whole
// path. Backslashes are treated as separators so Windows paths match too.
func matchPath(docfile, rootDir, srcDir string) (pathMatch, bool) {
	re, err := regexp.Compile(`^.*/([^/]+)/([^/]+)` + regexp.QuoteMeta(rootDir+srcDir) + `(.*)/([^/]+)$`)
	if err != nil {
		return pathMatch{}, false
	}
	g := re.FindStringSubmatch(strings.ReplaceAll(docfile, `\`, "/"))
	if g == nil {
		return pathMatch{}, false
	}
	return pathMatch{org: g[1], repo: g[2], relDir: g[3], file: g[4]}, true
}

// Verbs used in source-host URLs.
const (
	VerbEdit    = "edit"
	VerbHistory = "commits"
	VerbRaw     = "raw"
	VerbBlame   = "blame"
)

// URL builds host/org/repo/verb/branch/path/file.
func (c *Context) URL(verb, file string) string {
	return c.Host + "/" + c.Organisation + "/" + c.Repo + "/" + verb + "/" + c.Branch + c.BasePath + file
}

func (c *Context) EditURL(file string) string    { return c.URL(VerbEdit, file) }
func (c *Context) HistoryURL(file string) string { return c.URL(VerbHistory, file) }
func (c *Context) RawURL(file string) string     { return c.URL(VerbRaw, file) }
func (c *Context) BlameURL(file string) string   { return c.URL(VerbBlame, file) }

// Links is the set of URLs offered for one file.
type Links struct {
	Edit    string `json:"edit"`
	History string `json:"history"`
	Raw     string `json:"raw"`
	Blame   string `json:"blame"`
}

// Links returns every URL for file.
func (c *Context) Links(file string) Links {
	return Links{
		Edit:    c.EditURL(file),
		History: c.HistoryURL(file),
		Raw:     c.RawURL(file),
		Blame:   c.BlameURL(file),
	}
}

// RootScope is the prefix a top-level heading id must carry to belong to
// this file, e.g. "_migration-notes".
func (c *Context) RootScope() string {
	return "_" + c.FileStem
}

// SectionFile names the sub-file a heading id maps to.
func (c *Context) SectionFile(id string) string {
	return id + c.FileExt
}
