package counter

import (
	"github.com/go-via/setstate"
	"github.com/go-via/setstate/h"
)

// RootID is the container element the counter is mounted into.
const RootID = "root"

const style = `body{font-family:system-ui,sans-serif;margin:3rem}` +
	`#count{font-size:2rem;margin-bottom:1rem}`

// NewApp builds the application with one counter mounted into #root.
func NewApp(opts setstate.Options) *setstate.V {
	v := setstate.New()
	v.Config(opts)
	v.AppendToHead(h.StyleEl(h.Text(style)))
	v.Mount(RootID, New(v.Logger()).Compose)
	return v
}
