package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"asterplayer/logger"
	"asterplayer/model"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = 30 * time.Second
)

// liveFeed pushes track lists to one websocket. Only the newest list
// matters, so an unsent list is replaced rather than queued.
type liveFeed struct {
	conn   *websocket.Conn
	latest chan []byte
	mu     sync.Mutex
}

func newLiveFeed(conn *websocket.Conn) *liveFeed {
	return &liveFeed{conn: conn, latest: make(chan []byte, 1)}
}

func (f *liveFeed) publish(tracks []model.ViewTrack) {
	data, err := json.Marshal(tracks)
	if err != nil {
		logger.Error("encode live tracks", logger.ErrorField(err))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.latest:
	default:
	}
	f.latest <- data
}

func (f *liveFeed) abort(code int, reason string) {
	f.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	f.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	f.conn.Close()
}

// serve runs until the client goes away or ctx ends.
func (f *liveFeed) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		f.readPump()
	}()
	f.writePump(ctx)
}

// readPump only keeps the read deadline alive; clients never send data.
func (f *liveFeed) readPump() {
	f.conn.SetReadLimit(512)
	f.conn.SetReadDeadline(time.Now().Add(livePongWait))
	f.conn.SetPongHandler(func(string) error {
		f.conn.SetReadDeadline(time.Now().Add(livePongWait))
		return nil
	})
	for {
		if _, _, err := f.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("live read error", logger.ErrorField(err))
			}
			return
		}
	}
}

func (f *liveFeed) writePump(ctx context.Context) {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		f.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			f.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			f.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data := <-f.latest:
			f.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := f.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			f.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
