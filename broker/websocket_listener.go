// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package broker

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pb33f/lasso/frame"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// wsRawConnection adapts an upgraded websocket into a framed transport.
// Each inbound websocket message feeds the frame buffer, so a message
// may carry a partial frame or several frames. Writes are one frame per
// message, serialized by a mutex since receipts and routed messages can
// race.
type wsRawConnection struct {
	conn    *websocket.Conn
	buffer  *frame.Buffer
	writeMu sync.Mutex
}

func (c *wsRawConnection) ReadFrame() (*frame.Frame, error) {
	for {
		f, err := c.buffer.Next()
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		c.buffer.Append(data)
	}
}

func (c *wsRawConnection) WriteFrame(f *frame.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, frame.Marshal(f))
}

func (c *wsRawConnection) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *wsRawConnection) Close() error {
	return c.conn.Close()
}

type rawConnResult struct {
	conn RawConnection
	err  error
}

type webSocketListener struct {
	httpServer     *http.Server
	tcpListener    net.Listener
	connections    chan rawConnResult
	done           chan struct{}
	closeOnce      sync.Once
	allowedOrigins []string
	log            *logrus.Entry
}

// NewWebSocketListener serves the broker over websockets: an HTTP
// server on addr upgrades requests at endpoint and hands the upgraded
// sockets to Accept. allowedOrigins restricts cross-origin upgrades; an
// empty list allows any origin. HTTP access logging goes to the
// logrus writer.
func NewWebSocketListener(addr, endpoint string, allowedOrigins []string) (Listener, error) {
	log := logrus.WithFields(logrus.Fields{
		"component": "websocket-listener",
		"addr":      addr,
		"endpoint":  endpoint,
	})

	l := &webSocketListener{
		connections:    make(chan rawConnResult),
		done:           make(chan struct{}),
		allowedOrigins: allowedOrigins,
		log:            log,
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     l.checkOrigin,
	}

	router := mux.NewRouter()
	router.HandleFunc(endpoint, func(writer http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Connection"), "Upgrade") ||
			!strings.EqualFold(request.Header.Get("Upgrade"), "websocket") {
			log.WithField("remote", request.RemoteAddr).Warn("rejected non-upgrade request")
			writer.WriteHeader(http.StatusBadRequest)
			return
		}

		upgrader.Subprotocols = websocket.Subprotocols(request)
		conn, err := upgrader.Upgrade(writer, request, nil)
		if err != nil {
			l.offer(rawConnResult{err: err})
			return
		}

		log.WithField("remote", request.RemoteAddr).Debug("websocket connection upgraded")
		if !l.offer(rawConnResult{conn: &wsRawConnection{conn: conn, buffer: frame.NewBuffer()}}) {
			conn.Close()
		}
	})

	l.httpServer = &http.Server{
		Addr:    addr,
		Handler: handlers.LoggingHandler(log.WriterLevel(logrus.DebugLevel), router),
	}

	tcpListener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to bind websocket listener on %s", addr)
	}
	l.tcpListener = tcpListener

	go l.httpServer.Serve(tcpListener)
	return l, nil
}

func (l *webSocketListener) checkOrigin(r *http.Request) bool {
	if len(l.allowedOrigins) == 0 {
		return true
	}

	origin := r.Header["Origin"]
	if len(origin) == 0 {
		return true
	}
	u, err := url.Parse(origin[0])
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}

	for _, allowed := range l.allowedOrigins {
		if strings.EqualFold(u.Host, allowed) {
			return true
		}
	}
	return false
}

// offer hands a connection result to Accept, abandoning the handoff if
// the listener closes first so upgrade handlers never leak.
func (l *webSocketListener) offer(result rawConnResult) bool {
	select {
	case l.connections <- result:
		return true
	case <-l.done:
		return false
	}
}

func (l *webSocketListener) Accept() (RawConnection, error) {
	select {
	case result := <-l.connections:
		return result.conn, result.err
	case <-l.done:
		return nil, errors.New("websocket listener closed")
	}
}

func (l *webSocketListener) Addr() string {
	return l.tcpListener.Addr().String()
}

// Close stops the HTTP server and releases anything blocked in Accept
// or mid-handoff in an upgrade handler.
func (l *webSocketListener) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	return l.httpServer.Close()
}
