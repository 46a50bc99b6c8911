package preview

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vango-dev/precache/internal/errors"
)

// watch rebuilds on every change until ctx is canceled.
func (s *Server) watch(ctx context.Context) {
	paths := s.config.WatchPaths
	if len(paths) == 0 {
		paths = []string{s.config.Dir}
	}
	watcher := NewWatcher(WatcherConfig{
		Paths:    paths,
		Ignore:   s.config.WatchIgnore,
		Interval: s.config.PollInterval,
	})
	s.logger.Info("watching for changes", "paths", paths)
	watcher.Run(ctx, func(changed []string) {
		s.rebuild(ctx, changed)
	})
}

// rebuild runs the source and tells connected pages the outcome.
func (s *Server) rebuild(ctx context.Context, changed []string) {
	s.logger.Info("files changed", "count", len(changed), "first", changed[0])
	result, err := s.source(ctx)
	if err != nil {
		s.logger.Error("rebuild failed", "error", err)
		msg := err.Error()
		if pe, ok := errors.As(err); ok {
			msg = pe.FormatCompact()
		}
		s.hub.Publish(Event{Kind: EventFailed, Error: msg})
		return
	}
	for _, warning := range result.Warnings {
		s.logger.Warn(warning)
	}
	s.hub.Publish(Event{Kind: EventRebuilt, Worker: s.config.WorkerPath, Entries: result.Count})
	s.logger.Info("rebuilt", "pages", s.hub.Pages(), "entries", result.Count)
}

func (s *Server) handleLiveScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(liveScript))
}

// injectLiveScript adds the live script to HTML pages. Everything else goes
// to next.
func (s *Server) injectLiveScript(next http.Handler) http.Handler {
	tag := []byte(`<script src="` + LiveScriptPath + `"></script>`)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") {
			name = path.Join(name, "index.html")
		}
		if path.Ext(name) != ".html" {
			next.ServeHTTP(w, r)
			return
		}
		page, err := os.ReadFile(filepath.Join(s.config.Dir, filepath.FromSlash(name)))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		i := bytes.LastIndex(page, []byte("</body>"))
		if i < 0 {
			i = len(page)
		}
		out := make([]byte, 0, len(page)+len(tag))
		out = append(out, page[:i]...)
		out = append(out, tag...)
		out = append(out, page[i:]...)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(out)
	})
}
