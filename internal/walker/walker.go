// Package walker finds the section headings of a rendered document that map
// to addressable source files and injects an action fragment after each.
package walker

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dgallion1/improvedoc/internal/doctree"
)

// MaxLevels is the deepest section level the rendering convention produces.
const MaxLevels = 7

// Level pairs a section container selector with the heading tag it holds.
type Level struct {
	Container string
	Heading   string
}

// StandardLevels returns div.sect1/h2 through div.sectN/h(N+1).
// n is clamped to 1..MaxLevels.
func StandardLevels(n int) []Level {
	n = max(1, min(n, MaxLevels))
	levels := make([]Level, n)
	for i := range levels {
		levels[i] = Level{
			Container: fmt.Sprintf("div.sect%d", i+1),
			Heading:   fmt.Sprintf("h%d", i+2),
		}
	}
	return levels
}

// MatchFunc reports whether a heading id belongs to the current scope.
type MatchFunc func(scope, id string) bool

// PrefixMatch requires the id to start with the scope. This binds top-level
// headings to the current file and nested headings to their parent heading.
func PrefixMatch(scope, id string) bool {
	return strings.HasPrefix(id, scope)
}

// ReservedMarkerMatch accepts any id that does not start with marker,
// regardless of scope. It is looser than PrefixMatch and lets headings from
// unrelated branches through; use it only for compatibility.
func ReservedMarkerMatch(marker string) MatchFunc {
	return func(_, id string) bool {
		return !strings.HasPrefix(id, marker)
	}
}

// FragmentFunc returns the markup to insert after the heading with id.
type FragmentFunc func(id string, depth int) (string, error)

// Walker injects fragments after addressable headings.
type Walker struct {
	levels   []Level
	match    MatchFunc
	fragment FragmentFunc
}

// New returns a Walker. The levels slice is never modified.
func New(levels []Level, match MatchFunc, fragment FragmentFunc) *Walker {
	if match == nil {
		match = PrefixMatch
	}
	return &Walker{levels: levels, match: match, fragment: fragment}
}

// Walk annotates every addressable heading under root, starting with scope as
// the prefix for the first level, and returns them in document order.
func (w *Walker) Walk(root *goquery.Selection, scope string) ([]doctree.Heading, error) {
	var found []doctree.Heading
	if err := w.walk(root, 0, scope, &found); err != nil {
		return found, err
	}
	return found, nil
}

// walk handles w.levels[depth:]. Each frame reads one level by index, so
// siblings at the same depth always see the same remaining levels, and the
// scope only flows down from a heading into its own container.
func (w *Walker) walk(parent *goquery.Selection, depth int, scope string, found *[]doctree.Heading) error {
	if depth >= len(w.levels) {
		return nil
	}
	level := w.levels[depth]

	var err error
	parent.Find(level.Container).EachWithBreak(func(_ int, container *goquery.Selection) bool {
		container.Find(level.Heading).EachWithBreak(func(_ int, heading *goquery.Selection) bool {
			id, _ := heading.Attr("id")
			id = strings.TrimSpace(id)
			if id == "" || !w.match(scope, id) {
				return true
			}

			var frag string
			frag, err = w.fragment(id, depth+1)
			if err != nil {
				err = fmt.Errorf("heading %q: %w", id, err)
				return false
			}
			heading.AfterHtml(frag)
			*found = append(*found, doctree.Heading{ID: id, Depth: depth + 1, Scope: scope})

			err = w.walk(container, depth+1, id, found)
			return err == nil
		})
		return err == nil
	})
	return err
}
