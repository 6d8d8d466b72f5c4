package setstate

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-via/setstate/h"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctxIDPattern = regexp.MustCompile(`ctx&#39;:&#39;([a-f0-9]{32})&#39;`)

func getPage(t *testing.T, v *V, path string) (string, string) {
	t.Helper()
	w := httptest.NewRecorder()
	v.HTTPServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	m := ctxIDPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "ctx signal missing from:\n%s", body)
	return body, m[1]
}

func signalsQuery(ctxID string) string {
	return "?datastar=" + url.QueryEscape(`{"ctx":"`+ctxID+`"}`)
}

func triggerAction(v *V, ctxID, actionID string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/_action/"+actionID+signalsQuery(ctxID), nil)
	v.HTTPServeMux().ServeHTTP(w, req)
	return w
}

func fiveUpApp(t *testing.T) (*V, *StateHandle[int], *ActionHandle) {
	t.Helper()
	v := quietApp(nil)
	var count *StateHandle[int]
	var five *ActionHandle
	v.Mount("root", func(c *Composition) {
		count = State(c, 0)
		five = Action(c, func(ctx *Context) {
			for range 5 {
				count.Update(ctx, inc)
			}
		})
		c.View(func(ctx *Context) h.H {
			return h.Div(
				h.P(h.Textf("Count: %d", count.Get(ctx))),
				h.Button(h.Text("increment"), five.OnClick()),
			)
		})
	})
	return v, count, five
}

func TestPage_RendersDocument(t *testing.T) {
	v, _, _ := fiveUpApp(t)

	body, ctxID := getPage(t, v, "/")

	assert.Contains(t, body, "<!doctype html>")
	assert.Contains(t, body, "<title>setstate</title>")
	assert.Contains(t, body, datastarCDN)
	assert.Contains(t, body, `data-init="@get(&#39;/_sse&#39;)"`)
	assert.Contains(t, body, `<div id="root">`)
	assert.Contains(t, body, "Count: 0")

	_, err := v.getCtx(ctxID)
	assert.NoError(t, err)
}

func TestPage_EachVisitMountsNewContext(t *testing.T) {
	v, count, five := fiveUpApp(t)

	_, first := getPage(t, v, "/")
	_, second := getPage(t, v, "/")
	require.NotEqual(t, first, second)

	assert.Equal(t, http.StatusNoContent, triggerAction(v, first, five.ID()).Code)

	a, _ := v.getCtx(first)
	b, _ := v.getCtx(second)
	assert.Equal(t, 5, count.Get(a))
	assert.Equal(t, 0, count.Get(b))
}

func TestPage_RootOnlyMatchesRoot(t *testing.T) {
	v, _, _ := fiveUpApp(t)

	w := httptest.NewRecorder()
	v.HTTPServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPage_Panics(t *testing.T) {
	v := quietApp(nil)
	assert.Panics(t, func() { v.Page("/a", nil) })
	assert.Panics(t, func() { v.Page("/b", func(*Composition) {}) })
}

func TestMount_OnceWithContainer(t *testing.T) {
	compose := func(c *Composition) {
		c.View(func(*Context) h.H { return h.Div() })
	}

	assert.Panics(t, func() { quietApp(nil).Mount("", compose) })

	v := quietApp(nil)
	v.Mount("root", compose)
	assert.PanicsWithValue(t, "mount: app already mounted into #root", func() {
		v.Mount("other", compose)
	})
}

func TestAction_AppliesBatchAndPatches(t *testing.T) {
	v, count, five := fiveUpApp(t)
	_, ctxID := getPage(t, v, "/")

	for click := 1; click <= 2; click++ {
		w := triggerAction(v, ctxID, five.ID())
		require.Equal(t, http.StatusNoContent, w.Code)

		c, err := v.getCtx(ctxID)
		require.NoError(t, err)
		assert.Equal(t, 5*click, count.Get(c))

		patches := drainPatches(c)
		require.Len(t, patches, 1)
		assert.Contains(t, patches[0], `<div id="root">`)
	}
}

func TestAction_Errors(t *testing.T) {
	v, _, five := fiveUpApp(t)
	_, ctxID := getPage(t, v, "/")

	assert.Equal(t, http.StatusNotFound, triggerAction(v, "nope", five.ID()).Code)
	assert.Equal(t, http.StatusNotFound, triggerAction(v, ctxID, "nope").Code)

	w := httptest.NewRecorder()
	v.HTTPServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/_action/"+five.ID()+"?datastar=%7Bbroken", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAction_PanicReturns500(t *testing.T) {
	var logs bytes.Buffer
	v := quietApp(&logs)
	var boom *ActionHandle
	v.Page("/", func(c *Composition) {
		boom = Action(c, func(*Context) { panic("kaput") })
		c.View(func(*Context) h.H { return h.Div() })
	})
	_, ctxID := getPage(t, v, "/")

	w := triggerAction(v, ctxID, boom.ID())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, logs.String(), "kaput")
	assert.Contains(t, logs.String(), `"ctx":"`+ctxID+`"`)
}

type lockedRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (w *lockedRecorder) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseRecorder.Write(b)
}

func (w *lockedRecorder) body() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseRecorder.Body.String()
}

func TestSSE_ForwardsPatches(t *testing.T) {
	v, _, five := fiveUpApp(t)
	_, ctxID := getPage(t, v, "/")

	sseCtx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/_sse"+signalsQuery(ctxID), nil).WithContext(sseCtx)
	w := &lockedRecorder{ResponseRecorder: httptest.NewRecorder()}
	done := make(chan struct{})
	go func() {
		v.HTTPServeMux().ServeHTTP(w, req)
		close(done)
	}()

	require.Equal(t, http.StatusNoContent, triggerAction(v, ctxID, five.ID()).Code)

	assert.Eventually(t, func() bool {
		b := w.body()
		return strings.Contains(b, "datastar-patch-elements") && strings.Contains(b, "Count: 5")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SSE handler did not return after cancel")
	}
	c, err := v.getCtx(ctxID)
	require.NoError(t, err)
	assert.False(t, c.streaming.Load())
}

func TestSSE_UnknownContext(t *testing.T) {
	v, _, _ := fiveUpApp(t)

	w := httptest.NewRecorder()
	v.HTTPServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/_sse"+signalsQuery("missing"), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSweepContexts(t *testing.T) {
	v, _, _ := fiveUpApp(t)
	v.Config(Options{ContextTTL: time.Minute})
	_, idle := getPage(t, v, "/")
	_, live := getPage(t, v, "/")
	liveCtx, _ := v.getCtx(live)
	liveCtx.streaming.Store(true)

	v.sweepContexts(time.Now().Add(2 * time.Minute))

	_, err := v.getCtx(idle)
	assert.ErrorIs(t, err, ErrContextNotFound)
	_, err = v.getCtx(live)
	assert.NoError(t, err)
}

func TestSweepContexts_Disabled(t *testing.T) {
	v, _, _ := fiveUpApp(t)
	v.Config(Options{ContextTTL: -1})
	_, id := getPage(t, v, "/")

	v.sweepContexts(time.Now().Add(24 * time.Hour))

	_, err := v.getCtx(id)
	assert.NoError(t, err)
}

func TestStart_StopsOnCancel(t *testing.T) {
	v := quietApp(nil)
	v.Config(Options{ServerAddress: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- v.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStart_ListenError(t *testing.T) {
	v := quietApp(nil)
	v.Config(Options{ServerAddress: "256.0.0.1:bad"})

	err := v.Start(context.Background())
	assert.ErrorContains(t, err, "serve")
}

func TestGenRandID(t *testing.T) {
	id := genRandID()
	assert.Regexp(t, `^[a-f0-9]{32}$`, id)
	assert.NotEqual(t, id, genRandID())
}
