package src

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"pandatv/src/internal/channelview"
	m3u "pandatv/src/internal/m3u-parser"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// wsReadLimit : Requests are small JSON objects
const wsReadLimit = 64 * 1024

// wsClient : One browser connected to /data/
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool

	session     *channelview.Session
	revealDelay time.Duration
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn:        conn,
		session:     channelview.NewSession(nil, Settings.PageSize),
		revealDelay: Settings.RevealDelay(),
	}
}

// send serializes writes, a websocket connection supports one writer at a time.
func (c *wsClient) send(response ResponseStruct) error {
	if c.closed.Load() {
		return websocket.ErrCloseSent
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(&response)
}

// handle answers one request. A nil response means the answer is sent later.
func (c *wsClient) handle(ctx context.Context, request RequestStruct) *ResponseStruct {
	var response = &ResponseStruct{Status: true, Cmd: request.Cmd}
	var view channelview.View

	switch request.Cmd {
	case "getView":
		view = c.session.View()

	case "selectCategory":
		view = c.session.SelectCategory(request.Category)

	case "search":
		view = c.session.Search(request.Query)

	case "revealMore":
		ticket, ok := c.session.BeginReveal()
		if ok {
			revealCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "accepted")))
			time.AfterFunc(c.revealDelay, func() { c.finishReveal(ticket) })
			return nil
		}

		revealCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ignored")))
		view = c.session.View()
		response.Pending = c.session.Pending()

	case "play":
		channel, ok := findChannel(currentPlaylist().Channels, request.ID)
		if !ok {
			response.Status = false
			response.Error = fmt.Sprintf("%s: %q", getErrMsg(1021), request.ID)
			return response
		}

		var playback = newPlayback(channel)
		response.Playback = &playback
		showDebug(fmt.Sprintf("Play:%s (%s)", channel.Name, playback.Kind), 1)
		return response

	default:
		response.Status = false
		response.Error = fmt.Sprintf("%s: %q", getErrMsg(1020), request.Cmd)
		return response
	}

	response.View = &view
	return response
}

func (c *wsClient) finishReveal(ticket channelview.Ticket) {
	var view = c.session.FinishReveal(ticket)

	if err := c.send(ResponseStruct{Status: true, Cmd: "revealMore", View: &view}); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		showDebug(fmt.Sprintf("WebSocket:%s", err), 2)
	}
}

// wsSessions : Registry of open browser sessions
type wsSessions struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// add registers c and hands it the current playlist. Both happen under the registry lock, so a
// reload either published before the snapshot is read or reaches c through setChannels.
func (s *wsSessions) add(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.session.SetChannels(currentPlaylist().Channels)
	if s.clients == nil {
		s.clients = make(map[*wsClient]struct{})
	}
	s.clients[c] = struct{}{}
}

func (s *wsSessions) remove(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.closed.Store(true)
	delete(s.clients, c)
}

func (s *wsSessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.clients)
}

func (s *wsSessions) snapshot() []*wsClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	var clients = make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	return clients
}

// setChannels moves every session to a reloaded playlist and pushes the new view.
func (s *wsSessions) setChannels(channels []m3u.Channel) {
	for _, c := range s.snapshot() {
		var view = c.session.SetChannels(channels)
		if err := c.send(ResponseStruct{Status: true, Cmd: "playlist", View: &view}); err != nil {
			showDebug(fmt.Sprintf("WebSocket:%s", err), 2)
		}
	}
}

func (s *wsSessions) closeAll() {
	for _, c := range s.snapshot() {
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.conn.Close()
	}
}

// WS : Web Sockets /data/
func WS(w http.ResponseWriter, r *http.Request) {
	u := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}

	conn, err := u.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		ShowError(err, 1022)
		return
	}
	// The connection has been hijacked. ConnState will receive StateHijacked and will NOT receive StateClosed.
	defer atomic.AddInt64(&activeHTTPConnections, -1)
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)

	var client = newWSClient(conn)
	Data.Sessions.add(client)
	defer Data.Sessions.remove(client)

	for {
		var request RequestStruct

		if err := conn.ReadJSON(&request); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Error reading websocket message: %v", err)
			}
			break
		}
		showDebug(fmt.Sprintf("WebSocket:%s", request.Cmd), 2)

		var response = client.handle(r.Context(), request)
		if response == nil {
			continue
		}

		if err := client.send(*response); err != nil {
			log.Printf("Error writing websocket response: %v", err)
			break
		}
	}
}
