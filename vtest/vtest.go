// Package vtest drives a setstate app through its http.Handler the way a
// browser tab would: load the page, hold the SSE stream open, click buttons
// and read the patched elements.
package vtest

import (
	"bufio"
	"context"
	"encoding/json"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

// PatchTimeout bounds how long Click waits for the resulting element patch.
var PatchTimeout = 2 * time.Second

var (
	ctxSignalRe   = regexp.MustCompile(`data-signals=["']([^"']+)["']`)
	buttonRe      = regexp.MustCompile(`<button([^>]*)>([^<]*)</button>`)
	clickActionRe = regexp.MustCompile(`data-on:click(?:\.[a-z]+)*=["']@get\(([^)]+)\)["']`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// Page represents one browser tab: its context id, current HTML and SSE stream.
type Page struct {
	t       testing.TB
	handler http.Handler
	ctxID   string
	html    string
	sse     *stream
	applied int
}

// Visit loads path, opens the page's SSE stream and registers Close as test
// cleanup.
func Visit(t testing.TB, handler http.Handler, path string) *Page {
	t.Helper()
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("vtest: GET %s returned %d", path, w.Code)
	}

	body := w.Body.String()
	ctxID := extractCtxID(body)
	if ctxID == "" {
		t.Fatalf("vtest: no ctx signal in page:\n%s", body)
	}

	p := &Page{
		t:       t,
		handler: handler,
		ctxID:   ctxID,
		html:    body,
		sse:     openStream(handler, ctxID),
	}
	t.Cleanup(p.Close)
	return p
}

// CtxID returns the context id of the page.
func (p *Page) CtxID() string {
	return p.ctxID
}

// HTML returns the latest HTML: the page itself, or the last element patch.
func (p *Page) HTML() string {
	return p.html
}

// Click triggers the action of the button whose label is text and waits for
// the element patch the action pushes.
func (p *Page) Click(text string) {
	p.t.Helper()
	actionURL := p.buttonAction(text)
	if actionURL == "" {
		p.t.Fatalf("vtest: no clickable button %q in:\n%s", text, p.html)
	}

	w := httptest.NewRecorder()
	p.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, actionURL+signalsQuery(p.ctxID), nil))
	if w.Code >= http.StatusBadRequest {
		p.t.Fatalf("vtest: action %s returned %d: %s", actionURL, w.Code, w.Body.String())
	}

	deadline := time.Now().Add(PatchTimeout)
	for {
		patches := p.sse.patches()
		if len(patches) > p.applied {
			p.applied = len(patches)
			p.html = patches[len(patches)-1]
			return
		}
		if time.Now().After(deadline) {
			p.t.Fatalf("vtest: no patch within %s after clicking %q", PatchTimeout, text)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Text returns the text content of the element with the given id.
func (p *Page) Text(id string) string {
	re := regexp.MustCompile(`<([a-z0-9]+)[^>]*\bid="` + regexp.QuoteMeta(id) + `"[^>]*>(.*?)</([a-z0-9]+)>`)
	m := re.FindStringSubmatch(p.html)
	if m == nil {
		return ""
	}
	return visibleText(m[2])
}

// AssertText asserts the element with the given id has exactly the text want.
func (p *Page) AssertText(id, want string) {
	p.t.Helper()
	if got := p.Text(id); got != want {
		p.t.Fatalf("vtest: #%s has text %q, want %q, html:\n%s", id, got, want, p.html)
	}
}

// AssertContains asserts the visible text of the page contains text.
func (p *Page) AssertContains(text string) {
	p.t.Helper()
	if !strings.Contains(visibleText(p.html), text) {
		p.t.Fatalf("vtest: expected page to contain %q, html:\n%s", text, p.html)
	}
}

// Close ends the SSE stream.
func (p *Page) Close() {
	if p.sse != nil {
		p.sse.close()
	}
}

func (p *Page) buttonAction(text string) string {
	for _, m := range buttonRe.FindAllStringSubmatch(p.html, -1) {
		if strings.TrimSpace(html.UnescapeString(m[2])) != text {
			continue
		}
		a := clickActionRe.FindStringSubmatch(m[1])
		if a == nil {
			return ""
		}
		u := html.UnescapeString(a[1])
		return strings.Trim(u, `'"`)
	}
	return ""
}

func visibleText(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(html.UnescapeString(s))
}

func extractCtxID(page string) string {
	m := ctxSignalRe.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	raw := strings.ReplaceAll(html.UnescapeString(m[1]), "'", `"`)
	var sigs map[string]any
	if err := json.Unmarshal([]byte(raw), &sigs); err != nil {
		return ""
	}
	id, _ := sigs["ctx"].(string)
	return id
}

func signalsQuery(ctxID string) string {
	b, _ := json.Marshal(map[string]string{"ctx": ctxID})
	return "?datastar=" + url.QueryEscape(string(b))
}

// syncedResponseWriter wraps httptest.ResponseRecorder with synchronized access
type syncedResponseWriter struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (w *syncedResponseWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseRecorder.Write(b)
}

func (w *syncedResponseWriter) safeBodyString() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseRecorder.Body.String()
}

type stream struct {
	recorder *syncedResponseWriter
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

func openStream(handler http.Handler, ctxID string) *stream {
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/_sse"+signalsQuery(ctxID), nil).WithContext(ctx)
	req.Header.Set("Accept", "text/event-stream")

	s := &stream{
		recorder: &syncedResponseWriter{ResponseRecorder: httptest.NewRecorder()},
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		handler.ServeHTTP(s.recorder, req)
	}()
	return s
}

// patches returns the element payloads received so far, oldest first.
func (s *stream) patches() []string {
	scanner := bufio.NewScanner(strings.NewReader(s.recorder.safeBodyString()))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var out []string
	for scanner.Scan() {
		if data, ok := strings.CutPrefix(scanner.Text(), "data: elements "); ok {
			out = append(out, data)
		}
	}
	return out
}

func (s *stream) close() {
	s.once.Do(func() {
		s.cancel()
		select {
		case <-s.done:
		case <-time.After(time.Second):
		}
	})
}
