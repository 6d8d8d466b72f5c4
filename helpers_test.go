package setstate

import (
	"bytes"
	"io"
	"testing"

	"github.com/go-via/setstate/h"
)

func renderToString(node h.H) string {
	var buf bytes.Buffer
	_ = node.Render(&buf)
	return buf.String()
}

// quietApp returns an app whose logs go to w, or nowhere when w is nil.
func quietApp(w io.Writer) *V {
	v := New()
	if w == nil {
		w = io.Discard
	}
	v.Config(Options{LogOutput: w, LogLvl: LogLevelDebug})
	return v
}

// mountedCtx builds a context for a page composed by fn, without HTTP.
func mountedCtx(t *testing.T, v *V, fn ComposeFn) *Context {
	t.Helper()
	comp := newComposition("/test")
	fn(comp)
	c := newContext(genRandID(), v, comp)
	v.registerCtx(c)
	return c
}

func drainPatches(c *Context) []string {
	var out []string
	for {
		select {
		case p := <-c.patchChan:
			out = append(out, p.elements)
		default:
			return out
		}
	}
}
