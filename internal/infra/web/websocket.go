package web

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

const maxMessageBytes = 4096

// clientMessage is a user interaction sent by the page.
type clientMessage struct {
	Type   string  `json:"type"`
	Device int     `json:"device"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *Server) handleWebSocket(c *gin.Context) {
	width := queryFloat(c, "width")
	height := queryFloat(c, "height")

	sess, err := s.sessions.Open(c.Request.Context(), width, height)
	if err != nil {
		s.logger.Warn("opening view", "error", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session", sess.ID, "error", err)
		_ = s.sessions.Close(context.Background(), sess.ID)
		return
	}
	s.logger.Info("view connected", "session", sess.ID, "width", width, "height", height)

	done := make(chan struct{})
	go s.writePump(conn, sess, done)
	s.readPump(conn, sess)
	close(done)

	if err := s.sessions.Close(context.Background(), sess.ID); err != nil {
		s.logger.Debug("closing view", "session", sess.ID, "error", err)
	}
	conn.Close()
	s.logger.Info("view disconnected", "session", sess.ID)
}

// readPump applies client interactions until the connection fails or the view stops.
func (s *Server) readPump(conn *websocket.Conn, sess *Session) {
	conn.SetReadLimit(maxMessageBytes)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("malformed client message", "session", sess.ID, "error", err)
			continue
		}
		if err := s.apply(sess, msg); err != nil {
			s.logger.Debug("client message rejected", "session", sess.ID, "type", msg.Type, "error", err)
		}
	}
}

func (s *Server) apply(sess *Session, msg clientMessage) error {
	ctx := context.Background()
	switch msg.Type {
	case "feed":
		_, _, err := sess.Feed(ctx, msg.Device)
		return err
	case "drag":
		return sess.Drag(ctx, msg.Device, msg.X, msg.Y)
	case "release":
		return sess.Release(ctx, msg.Device)
	case "resize":
		return sess.Resize(ctx, msg.Width, msg.Height)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// writePump sends the newest snapshot whenever the view publishes one. Intermediate snapshots are dropped
// when the client is slower than the frame rate.
func (s *Server) writePump(conn *websocket.Conn, sess *Session, done <-chan struct{}) {
	defer conn.Close()
	for {
		select {
		case <-done:
			return
		case <-sess.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "view stopped"),
				time.Now().Add(time.Second))
			return
		case <-sess.Updates():
			snap, ok := sess.Latest()
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.Debug("writing snapshot", "session", sess.ID, "error", err)
				return
			}
		}
	}
}

func queryFloat(c *gin.Context, key string) float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return 0
	}
	return v
}
