// Package livereload tracks open browser connections and tells them to
// reload after the site is rebuilt.
package livereload

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/zyllian/webdog/internal/logfields"
	"github.com/zyllian/webdog/internal/metrics"
)

// ReloadMessage is the only message sent to clients.
const ReloadMessage = "reload"

// DefaultSendTimeout bounds each peer's send during a broadcast.
const DefaultSendTimeout = 2 * time.Second

// Peer is one live connection.
type Peer interface {
	Send(ctx context.Context, msg string) error
	Close() error
}

// Hub is the set of live connections keyed by remote address. It is safe
// for concurrent use.
type Hub struct {
	mu       sync.Mutex
	peers    map[string]Peer
	timeout  time.Duration
	recorder metrics.Recorder
}

// NewHub creates an empty hub. A nil recorder records nothing.
func NewHub(recorder metrics.Recorder) *Hub {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Hub{peers: map[string]Peer{}, timeout: DefaultSendTimeout, recorder: recorder}
}

// SetSendTimeout changes the per-peer broadcast deadline.
func (h *Hub) SetSendTimeout(d time.Duration) {
	h.mu.Lock()
	h.timeout = d
	h.mu.Unlock()
}

// Add registers p under addr, closing any peer it replaces.
func (h *Hub) Add(addr string, p Peer) {
	h.mu.Lock()
	old := h.peers[addr]
	h.peers[addr] = p
	n := len(h.peers)
	h.mu.Unlock()

	if old != nil && old != p {
		_ = old.Close()
	}
	h.recorder.SetLiveConnections(n)
}

// Remove drops addr if it is still registered to p.
func (h *Hub) Remove(addr string, p Peer) {
	h.mu.Lock()
	if cur, ok := h.peers[addr]; ok && cur == p {
		delete(h.peers, addr)
	}
	n := len(h.peers)
	h.mu.Unlock()
	h.recorder.SetLiveConnections(n)
}

// Len returns the number of registered peers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Broadcast sends ReloadMessage to every peer concurrently. Peers whose
// send fails or times out are closed and removed once every send has
// finished.
func (h *Hub) Broadcast(ctx context.Context) (sent, dropped int) {
	h.mu.Lock()
	snapshot := make(map[string]Peer, len(h.peers))
	for addr, p := range h.peers {
		snapshot[addr] = p
	}
	timeout := h.timeout
	h.mu.Unlock()

	var (
		wg       sync.WaitGroup
		failedMu sync.Mutex
		failed   = map[string]Peer{}
	)
	for addr, p := range snapshot {
		addr, p := addr, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := p.Send(sendCtx, ReloadMessage); err != nil {
				slog.Debug("Live reload send failed", logfields.RemoteAddr(addr), logfields.Error(err))
				failedMu.Lock()
				failed[addr] = p
				failedMu.Unlock()
			}
		}()
	}
	wg.Wait()

	for addr, p := range failed {
		h.Remove(addr, p)
		_ = p.Close()
	}

	sent = len(snapshot) - len(failed)
	h.recorder.IncReloadBroadcast()
	h.recorder.AddDroppedPeers(len(failed))
	slog.Debug("Live reload broadcast", logfields.Count(sent), slog.Int("dropped", len(failed)))
	return sent, len(failed)
}

// ServeHTTP upgrades the request to a WebSocket and keeps the peer
// registered until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", logfields.RemoteAddr(r.RemoteAddr), logfields.Error(err))
		return
	}
	p := &wsPeer{conn: conn}
	h.Add(r.RemoteAddr, p)
	slog.Debug("Live reload client connected", logfields.RemoteAddr(r.RemoteAddr))

	// Clients never send anything; CloseRead handles control frames and
	// cancels ctx once the connection is gone.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()
	h.Remove(r.RemoteAddr, p)
	_ = p.Close()
	slog.Debug("Live reload client disconnected", logfields.RemoteAddr(r.RemoteAddr))
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := h.peers
	h.peers = map[string]Peer{}
	h.mu.Unlock()
	for _, p := range peers {
		_ = p.Close()
	}
	h.recorder.SetLiveConnections(0)
}

type wsPeer struct {
	conn *websocket.Conn
}

func (p *wsPeer) Send(ctx context.Context, msg string) error {
	return p.conn.Write(ctx, websocket.MessageText, []byte(msg))
}

func (p *wsPeer) Close() error {
	return p.conn.Close(websocket.StatusNormalClosure, "")
}
