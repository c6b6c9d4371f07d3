package vfs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// HostPlugin is the name of the host plugin that owns the project files.
const HostPlugin = "fileManager"

const (
	hostWriteWait = 10 * time.Second
	hostReadWait  = 60 * time.Second
)

// hostRequest is a single call from the plugin to the host.
type hostRequest struct {
	ID     uint64   `json:"id"`
	Plugin string   `json:"plugin"`
	Method string   `json:"method"`
	Args   []string `json:"args"`
}

// hostResponse is the host answer to a hostRequest with the same ID.
type hostResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// HostCallError is returned when the host reports a failed call.
type HostCallError struct {
	Method  string
	Args    []string
	Message string
}

func (e *HostCallError) Error() string {
	return fmt.Sprintf("%s.%s%v: %s", HostPlugin, e.Method, e.Args, e.Message)
}

// HostStore is a PrimaryStore that forwards calls to an editor host over a
// websocket.  Calls are serialized: each request waits for its response.
type HostStore struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	nextID uint64
}

// DialHostStore connects to the host at the given ws:// or wss:// url.
func DialHostStore(ctx context.Context, url string) (*HostStore, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial host %s: %w", url, err)
	}
	return &HostStore{conn: conn}, nil
}

// Close closes the host connection.
func (s *HostStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(hostWriteWait))
	return s.conn.Close()
}

func deadline(ctx context.Context, wait time.Duration) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(wait)
}

func (s *HostStore) call(ctx context.Context, method string, result any, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	req := hostRequest{ID: s.nextID, Plugin: HostPlugin, Method: method, Args: args}

	if err := s.conn.SetWriteDeadline(deadline(ctx, hostWriteWait)); err != nil {
		return err
	}
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("host %s: %w", method, err)
	}
	if err := s.conn.SetReadDeadline(deadline(ctx, hostReadWait)); err != nil {
		return err
	}
	for {
		var resp hostResponse
		if err := s.conn.ReadJSON(&resp); err != nil {
			return fmt.Errorf("host %s: %w", method, err)
		}
		if resp.ID != req.ID {
			// stale answer to an abandoned call
			continue
		}
		if resp.Error != "" {
			return &HostCallError{Method: method, Args: args, Message: resp.Error}
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		return json.Unmarshal(resp.Result, result)
	}
}

// Exists implements PrimaryStore.
func (s *HostStore) Exists(ctx context.Context, name string) (bool, error) {
	name, err := cleanName(name)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := s.call(ctx, "exists", &exists, name); err != nil {
		return false, err
	}
	return exists, nil
}

// ReadFile implements PrimaryStore.  The host transfers text.
func (s *HostStore) ReadFile(ctx context.Context, name string) ([]byte, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	var content string
	if err := s.call(ctx, "readFile", &content, name); err != nil {
		return nil, err
	}
	return []byte(content), nil
}

// WriteFile implements PrimaryStore.
func (s *HostStore) WriteFile(ctx context.Context, name string, data []byte) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	return s.call(ctx, "writeFile", nil, name, string(data))
}

var hostUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// ServeHost returns a handler that answers HostStore calls from the given
// store.  It is the host side of the bridge and is used by local tooling and
// tests.
func ServeHost(store PrimaryStore, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := hostUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("host upgrade failed")
			return
		}
		defer conn.Close()

		ctx := r.Context()
		for {
			var req hostRequest
			if err := conn.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug().Err(err).Msg("host connection closed")
				}
				return
			}
			resp := serveHostRequest(ctx, store, req)
			if err := conn.SetWriteDeadline(time.Now().Add(hostWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(resp); err != nil {
				logger.Warn().Err(err).Uint64("id", req.ID).Msg("host write failed")
				return
			}
		}
	})
}

func serveHostRequest(ctx context.Context, store PrimaryStore, req hostRequest) hostResponse {
	resp := hostResponse{ID: req.ID}
	fail := func(err error) hostResponse {
		resp.Error = err.Error()
		return resp
	}
	if req.Plugin != HostPlugin {
		return fail(fmt.Errorf("unknown plugin %q", req.Plugin))
	}
	arg := func(i int) string {
		if i < len(req.Args) {
			return req.Args[i]
		}
		return ""
	}

	var result any
	switch req.Method {
	case "exists":
		exists, err := store.Exists(ctx, arg(0))
		if err != nil {
			return fail(err)
		}
		result = exists
	case "readFile":
		data, err := store.ReadFile(ctx, arg(0))
		if err != nil {
			return fail(err)
		}
		result = string(data)
	case "writeFile":
		if err := store.WriteFile(ctx, arg(0), []byte(arg(1))); err != nil {
			return fail(err)
		}
		return resp
	default:
		return fail(fmt.Errorf("unknown method %q", req.Method))
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fail(err)
	}
	resp.Result = raw
	return resp
}
