// Package setstate is a small server-driven UI layer for Go.
//
// Pages and components declare state, actions and a view on a Composition.
// Every browser tab that loads a page gets its own Context. Actions run as
// event passes on that context: state updates queued during a pass are
// batched, applied in submission order, followed by their commit callbacks,
// and the view is pushed to the browser once over a Datastar SSE stream.
package setstate

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-via/setstate/h"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/starfederation/datastar-go/datastar"
)

const (
	datastarCDN = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

	// ctxSignal is the Datastar signal carrying the context id.
	ctxSignal = "ctx"

	defaultContextTTL = 10 * time.Minute
	shutdownTimeout   = 5 * time.Second
)

// V is the root application.
// It serves pages, owns the mounted contexts and their SSE connections.
type V struct {
	cfg                  Options
	log                  zerolog.Logger
	mux                  *http.ServeMux
	contextRegistry      map[string]*Context
	contextRegistryMutex sync.RWMutex
	documentHeadIncludes []h.H
	mountedRoot          string
}

// New creates a new application with default configuration.
func New() *V {
	v := &V{
		mux:             http.NewServeMux(),
		contextRegistry: make(map[string]*Context),
		cfg: Options{
			ServerAddress:   ":3000",
			LogLvl:          LogLevelInfo,
			LogOutput:       os.Stderr,
			DocumentTitle:   "setstate",
			MaxUpdatePasses: defaultMaxUpdatePasses,
			ContextTTL:      defaultContextTTL,
		},
	}
	v.resetLogger()
	v.documentHeadIncludes = []h.H{
		h.Script(h.Type("module"), h.Src(datastarCDN)),
	}

	v.mux.HandleFunc("GET /_sse", v.handleSSE)
	v.mux.HandleFunc("GET /_action/{id}", v.handleAction)
	return v
}

// Config overrides the default configuration with the given configuration options.
// Zero fields keep their current value.
func (v *V) Config(cfg Options) {
	if cfg.LogLvl != undefined {
		v.cfg.LogLvl = cfg.LogLvl
	}
	if cfg.LogOutput != nil {
		v.cfg.LogOutput = cfg.LogOutput
	}
	if cfg.DocumentTitle != "" {
		v.cfg.DocumentTitle = cfg.DocumentTitle
	}
	if cfg.ServerAddress != "" {
		v.cfg.ServerAddress = cfg.ServerAddress
	}
	if cfg.MaxUpdatePasses > 0 {
		v.cfg.MaxUpdatePasses = cfg.MaxUpdatePasses
	}
	if cfg.ContextTTL != 0 {
		v.cfg.ContextTTL = cfg.ContextTTL
	}
	v.resetLogger()
}

// AppendToHead appends the given h.H nodes to the head of the base HTML document.
// Useful for including css stylesheets.
func (v *V) AppendToHead(elements ...h.H) {
	for _, el := range elements {
		if el != nil {
			v.documentHeadIncludes = append(v.documentHeadIncludes, el)
		}
	}
}

// HTTPServeMux returns the handler serving the application.
func (v *V) HTTPServeMux() *http.ServeMux {
	return v.mux
}

// Page registers a route and the compose function of its page. Every GET of
// the route mounts a fresh Context.
//
// Example:
//
//	v.Page("/", func(c *setstate.Composition) {
//		count := setstate.State(c, 0)
//		inc := setstate.Action(c, func(ctx *setstate.Context) {
//			count.Update(ctx, func(n int) int { return n + 1 })
//		})
//		c.View(func(ctx *setstate.Context) h.H {
//			return h.Button(h.Textf("%d", count.Get(ctx)), inc.OnClick())
//		})
//	})
func (v *V) Page(route string, composeFn ComposeFn) {
	if composeFn == nil {
		panic("page " + route + " has no compose function")
	}
	c := newComposition(route)
	composeFn(c)
	if c.viewFn == nil {
		panic("page " + route + " has no view")
	}
	pattern := "GET " + route
	if route == "/" {
		pattern = "GET /{$}"
	}
	v.mux.HandleFunc(pattern, v.pageHandler(c))
}

// Mount renders the component built by composeFn into the container element
// rootID of the document served at "/". An app is mounted once; a second
// Mount or an empty container id panics.
func (v *V) Mount(rootID string, composeFn ComposeFn) {
	if rootID == "" {
		panic("mount: empty container id")
	}
	if v.mountedRoot != "" {
		panic(fmt.Sprintf("mount: app already mounted into #%s", v.mountedRoot))
	}
	v.mountedRoot = rootID
	v.Page("/", func(c *Composition) {
		root := c.Component(composeFn)
		c.View(func(ctx *Context) h.H {
			return h.Div(h.ID(rootID), root.Mount(ctx))
		})
	})
}

// Start serves the application on the configured address until ctx is
// cancelled. Cancelling ctx also ends the open SSE streams.
func (v *V) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              v.cfg.ServerAddress,
		Handler:           v.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	v.logInfo(nil, "listening on address: %s", v.cfg.ServerAddress)

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	v.logInfo(nil, "server stopped")
	return nil
}

func (v *V) pageHandler(comp *Composition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v.sweepContexts(time.Now())

		c := newContext(genRandID(), v, comp)
		v.logDebug(c, "GET %s", comp.route)
		v.registerCtx(c)

		headElements := append([]h.H{}, v.documentHeadIncludes...)
		headElements = append(headElements,
			h.Meta(h.DataSignals(ctxSignal, c.id)),
			h.Meta(h.DataInit("@get('/_sse')")),
		)
		view := h.HTML5(h.HTML5Props{
			Title:    v.cfg.DocumentTitle,
			Language: "en",
			Head:     headElements,
			Body:     []h.H{c.render()},
		})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := view.Render(w); err != nil {
			v.logErr(c, "render page failed: %v", err)
		}
	}
}

func (v *V) handleSSE(w http.ResponseWriter, r *http.Request) {
	c, err := v.ctxFromRequest(r)
	if err != nil {
		v.logWarn(nil, "sse connection refused: %v", err)
		writeErr(w, err)
		return
	}

	sse := datastar.NewSSE(w, r)
	c.streaming.Store(true)
	c.touch()
	v.logDebug(c, "SSE connection established")
	defer func() {
		c.streaming.Store(false)
		c.touch()
		v.logDebug(c, "SSE connection closed")
	}()

	for {
		select {
		case <-sse.Context().Done():
			return
		case p := <-c.patchChan:
			if err := sse.PatchElements(p.elements); err != nil {
				v.logDebug(c, "patch elements failed: %v", err)
				return
			}
		}
	}
}

func (v *V) handleAction(w http.ResponseWriter, r *http.Request) {
	actionID := r.PathValue("id")
	c, err := v.ctxFromRequest(r)
	if err != nil {
		v.logWarn(nil, "action '%s' failed: %v", actionID, err)
		writeErr(w, err)
		return
	}
	actionFn, err := c.getActionFn(actionID)
	if err != nil {
		v.logDebug(c, "action '%s' failed: %v", actionID, err)
		writeErr(w, err)
		return
	}
	c.touch()
	if err := c.dispatchAction(actionFn); err != nil {
		v.logErr(c, "action '%s' failed: %v", actionID, err)
		http.Error(w, "action failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrContextNotFound), errors.Is(err, ErrActionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func (v *V) ctxFromRequest(r *http.Request) (*Context, error) {
	var sigs map[string]any
	if err := datastar.ReadSignals(r, &sigs); err != nil {
		return nil, errors.Wrap(err, "read signals")
	}
	id, _ := sigs[ctxSignal].(string)
	return v.getCtx(id)
}

func (v *V) registerCtx(c *Context) {
	v.contextRegistryMutex.Lock()
	defer v.contextRegistryMutex.Unlock()
	v.contextRegistry[c.id] = c
	v.logDebug(c, "new context added to registry")
}

func (v *V) unregisterCtx(id string) {
	v.contextRegistryMutex.Lock()
	defer v.contextRegistryMutex.Unlock()
	delete(v.contextRegistry, id)
}

func (v *V) getCtx(id string) (*Context, error) {
	v.contextRegistryMutex.RLock()
	defer v.contextRegistryMutex.RUnlock()
	if c, ok := v.contextRegistry[id]; ok {
		return c, nil
	}
	return nil, errors.Wrapf(ErrContextNotFound, "ctx '%s'", id)
}

// sweepContexts unmounts contexts that have no SSE stream and have been idle
// longer than the configured TTL. A negative TTL disables sweeping.
func (v *V) sweepContexts(now time.Time) {
	ttl := v.cfg.ContextTTL
	if ttl < 0 {
		return
	}
	var stale []string
	v.contextRegistryMutex.RLock()
	for id, c := range v.contextRegistry {
		if !c.streaming.Load() && c.idleSince(now) > ttl {
			stale = append(stale, id)
		}
	}
	v.contextRegistryMutex.RUnlock()

	for _, id := range stale {
		v.unregisterCtx(id)
		v.logDebug(nil, "unmounted idle context %s", id)
	}
}

func genRandID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
