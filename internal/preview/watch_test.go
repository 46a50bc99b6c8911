package preview

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/precache/internal/build"
	"github.com/vango-dev/precache/internal/errors"
)

func TestWatcher_Poll(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	app := write("app.js", "a")

	w := NewWatcher(WatcherConfig{Paths: []string{dir}, Ignore: []string{"**/*.map", "sw.js"}})
	if got := w.Poll(); got != nil {
		t.Fatalf("baseline poll = %v, want nil", got)
	}

	added := write("css/site.css", "body{}")
	write("app.js.map", "{}")
	write("sw.js", "x")
	if got, want := w.Poll(), []string{added}; !reflect.DeepEqual(got, want) {
		t.Errorf("after add = %v, want %v", got, want)
	}

	write("app.js", "ab")
	if got, want := w.Poll(), []string{app}; !reflect.DeepEqual(got, want) {
		t.Errorf("after modify = %v, want %v", got, want)
	}

	if err := os.Remove(added); err != nil {
		t.Fatal(err)
	}
	if got, want := w.Poll(), []string{added}; !reflect.DeepEqual(got, want) {
		t.Errorf("after remove = %v, want %v", got, want)
	}

	if got := w.Poll(); len(got) != 0 {
		t.Errorf("idle poll = %v", got)
	}
}

func TestWatcher_File(t *testing.T) {
	src := filepath.Join(t.TempDir(), "sw.js")
	if err := os.WriteFile(src, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	w := NewWatcher(WatcherConfig{Paths: []string{src}, Ignore: []string{"**"}})
	w.Poll()
	if err := os.WriteFile(src, []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := w.Poll(); len(got) != 1 || got[0] != src {
		t.Errorf("poll = %v, want [%s]", got, src)
	}
}

func TestServer_InjectLiveScript(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<body><h1>hi</h1></body>"), 0644)
	os.WriteFile(filepath.Join(dir, "about.html"), []byte("<p>about</p>"), 0644)
	os.WriteFile(filepath.Join(dir, "app.js"), []byte("a()"), 0644)

	srv := New(Config{Dir: dir, Watch: true}, staticSource(&build.Result{}, nil), quietLogger())
	h := srv.Handler()
	tag := `<script src="` + LiveScriptPath + `"></script>`

	tests := []struct {
		path string
		want string
	}{
		{"/", "<body><h1>hi</h1>" + tag + "</body>"},
		{"/about.html", "<p>about</p>" + tag},
		{"/app.js", "a()"},
	}
	for _, tt := range tests {
		rec := get(t, h, tt.path)
		if rec.Body.String() != tt.want {
			t.Errorf("GET %s = %q, want %q", tt.path, rec.Body.String(), tt.want)
		}
	}

	rec := get(t, h, LiveScriptPath)
	if !strings.Contains(rec.Body.String(), EventsPath) {
		t.Errorf("live script does not reference %s", EventsPath)
	}

	plain := New(Config{Dir: dir}, staticSource(&build.Result{}, nil), quietLogger())
	if body := get(t, plain.Handler(), "/").Body.String(); strings.Contains(body, tag) {
		t.Error("live script injected without Watch")
	}
}

// dial connects a page to the events endpoint and waits until the server
// has registered it.
func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + EventsPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.Pages() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestServer_RebuildPublishes(t *testing.T) {
	srv := New(Config{Dir: t.TempDir(), Watch: true}, staticSource(&build.Result{Count: 2}, nil), quietLogger())
	conn := dial(t, srv)

	srv.rebuild(context.Background(), []string{"app.js"})
	want := Event{Kind: EventRebuilt, Worker: "/sw.js", Entries: 2}
	if ev := readEvent(t, conn); ev != want {
		t.Errorf("event = %+v, want %+v", ev, want)
	}
}

func TestServer_RebuildError(t *testing.T) {
	err := &build.RunError{State: build.StateInjecting, Err: errors.New("E400").WithPath("src/sw.js")}
	srv := New(Config{Dir: t.TempDir(), Watch: true}, staticSource(nil, err), quietLogger())
	conn := dial(t, srv)

	srv.rebuild(context.Background(), []string{"src/sw.js"})
	ev := readEvent(t, conn)
	if ev.Kind != EventFailed || !strings.Contains(ev.Error, "E400") {
		t.Errorf("event = %+v, want E400 failure", ev)
	}
}

func TestHub_Close(t *testing.T) {
	srv := New(Config{Dir: t.TempDir(), Watch: true}, staticSource(&build.Result{}, nil), quietLogger())
	conn := dial(t, srv)

	srv.hub.Close()
	if n := srv.hub.Pages(); n != 0 {
		t.Errorf("Pages() = %d after Close", n)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected closed connection")
	}
}

func TestServer_RunWithWatch(t *testing.T) {
	srv := New(Config{
		Address:      "127.0.0.1:0",
		Dir:          t.TempDir(),
		Watch:        true,
		PollInterval: 10 * time.Millisecond,
	}, staticSource(&build.Result{}, nil), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
