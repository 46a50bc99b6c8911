package preview

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// EventsPath is the WebSocket endpoint pages subscribe to.
	EventsPath = "/_precache/events"

	// LiveScriptPath serves the page script that subscribes to EventsPath.
	LiveScriptPath = "/_precache/live.js"
)

// EventKind names the outcome of a rebuild.
type EventKind string

const (
	EventRebuilt EventKind = "rebuilt"
	EventFailed  EventKind = "failed"
)

// Event is pushed to every subscribed page after a rebuild.
type Event struct {
	Kind EventKind `json:"kind"`

	// Worker is the worker URL pages should update before reloading.
	Worker string `json:"worker,omitempty"`

	// Entries is the manifest size of a successful rebuild.
	Entries int `json:"entries,omitempty"`

	// Error is the compact build error of a failed rebuild.
	Error string `json:"error,omitempty"`
}

// Hub fans rebuild events out to subscribed pages.
type Hub struct {
	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	mu    sync.Mutex
	pages map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// Preview pages are served from the same local server.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		writeTimeout: 2 * time.Second,
		pages:        make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP subscribes the page and blocks until it disconnects. Pages never
// send anything; reads only detect the close.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.pages[conn] = struct{}{}
	h.mu.Unlock()

	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	h.drop(conn)
}

// Publish sends ev to every page. Pages that cannot be written to within
// the write timeout are dropped.
func (h *Hub) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.pages {
		conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.pages, conn)
			conn.Close()
		}
	}
}

// Pages returns the number of subscribed pages.
func (h *Hub) Pages() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pages)
}

// Close disconnects every page.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.pages {
		conn.Close()
		delete(h.pages, conn)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.pages, conn)
	h.mu.Unlock()
	conn.Close()
}

// liveScript subscribes to EventsPath. After a rebuild it asks the browser
// to fetch the new worker, then reloads once the update check settles, so
// the reloaded page is controlled by the rebuilt precache. A failed rebuild
// is shown at the bottom of the page until the next success.
const liveScript = `(function () {
  'use strict';

  var retry = 500;

  function showFailure(text) {
    var box = document.getElementById('precache-failure');
    if (!box) {
      box = document.createElement('pre');
      box.id = 'precache-failure';
      box.style.cssText = 'position:fixed;left:0;right:0;bottom:0;margin:0;padding:12px;' +
        'background:#1a1a1a;color:#ff5555;font:13px monospace;white-space:pre-wrap;z-index:2147483647;';
      document.body.appendChild(box);
    }
    box.textContent = text;
  }

  function updateWorker(url) {
    if (!('serviceWorker' in navigator)) {
      return Promise.resolve();
    }
    return navigator.serviceWorker.getRegistration().then(function (reg) {
      if (reg && (!url || (reg.active && reg.active.scriptURL.endsWith(url)))) {
        return reg.update();
      }
    }).catch(function () {});
  }

  function subscribe() {
    var scheme = location.protocol === 'https:' ? 'wss:' : 'ws:';
    var socket = new WebSocket(scheme + '//' + location.host + '` + EventsPath + `');

    socket.onopen = function () {
      retry = 500;
    };
    socket.onmessage = function (msg) {
      var ev;
      try {
        ev = JSON.parse(msg.data);
      } catch (e) {
        return;
      }
      if (ev.kind === 'rebuilt') {
        console.info('[precache] rebuilt, ' + ev.entries + ' entries');
        updateWorker(ev.worker).then(function () {
          location.reload();
        });
      } else if (ev.kind === 'failed') {
        console.error('[precache] rebuild failed\n' + ev.error);
        showFailure(ev.error);
      }
    };
    socket.onclose = function () {
      setTimeout(subscribe, retry);
      retry = Math.min(retry * 2, 10000);
    };
  }

  subscribe();
})();
`
