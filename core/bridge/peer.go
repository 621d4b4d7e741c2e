package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"asterplayer/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	// DefaultReadLimit leaves room for inline base64 audio.
	DefaultReadLimit = 16 << 20

	sendBuffer = 16
)

var (
	errPeerClosed = errors.New("bridge: peer closed")
	errPeerBusy   = errors.New("bridge: peer send buffer full")
)

// Peer is one WebSocket connection acting as a cross-origin window. Its
// origin is the Origin header of the upgrade request.
type Peer struct {
	conn      *websocket.Conn
	origin    string
	bridge    *Bridge
	readLimit int64

	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewPeer wraps an upgraded connection. readLimit <= 0 means
// DefaultReadLimit.
func NewPeer(conn *websocket.Conn, origin string, b *Bridge, readLimit int64) *Peer {
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}
	return &Peer{
		conn:      conn,
		origin:    normalizeOrigin(origin),
		bridge:    b,
		readLimit: readLimit,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
}

// Origin returns the peer's origin.
func (p *Peer) Origin() string {
	return p.origin
}

// PostMessage implements Channel.
func (p *Peer) PostMessage(env Envelope, targetOrigin string) error {
	if targetOrigin != TargetAny && normalizeOrigin(targetOrigin) != p.origin {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	select {
	case <-p.done:
		return errPeerClosed
	default:
	}

	select {
	case p.send <- data:
		return nil
	case <-p.done:
		return errPeerClosed
	default:
		return errPeerBusy
	}
}

// Serve announces the bridge and processes messages until the connection
// closes or ctx is cancelled.
func (p *Peer) Serve(ctx context.Context) {
	stop := context.AfterFunc(ctx, p.close)
	defer stop()

	go p.writePump()
	p.bridge.Start(p)
	p.readPump(ctx)
}

func (p *Peer) close() {
	p.once.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}

func (p *Peer) readPump(ctx context.Context) {
	defer p.close()

	p.conn.SetReadLimit(p.readLimit)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("bridge read error",
					logger.String("origin", p.origin),
					logger.ErrorField(err))
			}
			return
		}
		p.conn.SetReadDeadline(time.Now().Add(pongWait))

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Warn("invalid bridge message",
				logger.String("origin", p.origin),
				logger.ErrorField(err))
			continue
		}

		err = p.bridge.HandleMessage(ctx, Message{Origin: p.origin, Source: p, Envelope: env})
		switch {
		case err == nil:
		case errors.Is(err, ErrOriginRejected):
			logger.Debug("bridge message dropped",
				logger.String("origin", p.origin),
				logger.String("type", string(env.Type)))
		default:
			logger.Warn("bridge message not answered",
				logger.String("origin", p.origin),
				logger.String("type", string(env.Type)),
				logger.ErrorField(err))
		}
	}
}

func (p *Peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.close()
	}()

	for {
		select {
		case <-p.done:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			p.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
