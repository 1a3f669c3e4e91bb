package render

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// sectionIDs generates heading ids the way asciidoctor does: prefix, lower
// case, separators for spaces, dots and hyphens, other punctuation dropped,
// and a numeric suffix for duplicates.
type sectionIDs struct {
	prefix    string
	separator string
	lower     cases.Caser
	seen      map[string]bool
}

func newSectionIDs(prefix, separator string) *sectionIDs {
	return &sectionIDs{
		prefix:    prefix,
		separator: separator,
		lower:     cases.Lower(language.Und),
		seen:      map[string]bool{},
	}
}

func (s *sectionIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	base := s.prefix + s.slug(string(value))
	if base == "" {
		base = "_section"
	}
	id := base
	for i := 2; s.seen[id]; i++ {
		id = base + s.separator + strconv.Itoa(i)
	}
	s.seen[id] = true
	return []byte(id)
}

// Put records an explicit id so generated ones never collide with it.
func (s *sectionIDs) Put(value []byte) {
	s.seen[string(value)] = true
}

func (s *sectionIDs) slug(title string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range s.lower.String(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingSep && b.Len() > 0 {
				b.WriteString(s.separator)
			}
			pendingSep = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-':
			pendingSep = true
		}
	}
	return b.String()
}
