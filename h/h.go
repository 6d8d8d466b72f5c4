// Package h is a small HTML builder over gomponents used by setstate views.
package h

import (
	"io"

	g "maragu.dev/gomponents"
	gc "maragu.dev/gomponents/components"
)

// H is a renderable DOM node or attribute.
type H interface {
	Render(w io.Writer) error
}

func retype(nodes []H) []g.Node {
	if len(nodes) == 0 {
		return nil
	}
	list := make([]g.Node, len(nodes))
	for i, node := range nodes {
		if n, ok := node.(g.Node); ok {
			list[i] = n
		}
	}
	return list
}

// Text renders an escaped text node.
func Text(s string) H {
	return g.Text(s)
}

// Textf renders an escaped, formatted text node.
func Textf(format string, a ...any) H {
	return g.Textf(format, a...)
}

type HTML5Props struct {
	Title    string
	Language string
	Head     []H
	Body     []H
}

// HTML5 renders a full HTML5 document.
func HTML5(p HTML5Props) H {
	return gc.HTML5(gc.HTML5Props{
		Title:    p.Title,
		Language: p.Language,
		Head:     retype(p.Head),
		Body:     retype(p.Body),
	})
}
