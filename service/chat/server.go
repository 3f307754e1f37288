package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"PRelay/logger"
	"PRelay/service/relay"
	"PRelay/tools/errs"
	"PRelay/tools/ids"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait     = 5 * time.Second
	pongWait      = 75 * time.Second
	pingPeriod    = 25 * time.Second
	maxFrameBytes = 64 * 1024
	frameTimeout  = 5 * time.Second
)

// Server is the client-facing edge of one gateway process. It upgrades
// WebSocket sessions, feeds their frames into the coordinator and
// exposes the process status endpoints.
type Server struct {
	co        *relay.Coordinator
	sendQueue int
	startedAt time.Time
}

func NewServer(co *relay.Coordinator, sendQueue int) *Server {
	return &Server{co: co, sendQueue: sendQueue, startedAt: time.Now()}
}

func (s *Server) RegisterRoutes(r gin.IRoutes) {
	r.GET("/ws", s.HandleWS)
	r.GET("/healthz", s.Health)
	r.GET("/metrics", s.Metrics)
	r.GET("/rooms/:roomId/stats", s.RoomStats)
}

// ===== WebSocket =====

func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	cl := NewClient(ids.GenerateString(), ws, s.sendQueue)
	logger.Infof("[ws] connected conn=%s remote=%s", cl.ConnID, ws.RemoteAddr())

	go cl.WritePump(pingPeriod, writeWait)
	s.readLoop(cl)
}

// readLoop owns all reads on the socket. It exits on the first read
// error, the write pump notices through CloseSend and closes the socket.
func (s *Server) readLoop(cl *Client) {
	ws := cl.WS
	reason := "connection closed"

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
		defer cancel()
		s.co.Disconnect(ctx, cl.ConnID, reason)
		cl.CloseSend()
	}()

	ws.SetReadLimit(maxFrameBytes)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s err=%v", cl.ConnID, rerr)
				reason = "client left"
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", cl.ConnID, rerr)
				reason = "timed out"
			} else {
				logger.Infof("[ws] read error conn=%s err=%v", cl.ConnID, rerr)
				reason = "connection lost"
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrameJSON(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("[ws] bad frame conn=%s err=%v sample=%q", cl.ConnID, perr, sample)
			s.sendError(cl, errs.ArgsError, "malformed frame")
			continue
		}

		if frame.Type == FrameDisconnect {
			reason = "client left"
			return
		}
		s.dispatch(cl, frame)
	}
}

func (s *Server) dispatch(cl *Client, f *InboundFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch f.Type {
	case FrameJoin:
		p, err := DecodeJoin(f)
		if err != nil {
			s.sendError(cl, errs.ArgsError, "join payload is invalid")
			return
		}
		_ = s.co.Join(ctx, cl, p.UserID, p.UserName, p.RoomID)
	case FrameSendMessage:
		p, err := DecodeSend(f)
		if err != nil {
			s.sendError(cl, errs.ArgsError, "message payload is invalid")
			return
		}
		_ = s.co.SendMessage(ctx, cl, p.Content, p.Kind)
	case FrameTypingStart:
		s.co.Typing(ctx, cl, true)
	case FrameTypingStop:
		s.co.Typing(ctx, cl, false)
	default:
		logger.Debugf("[ws] unknown frame type=%q conn=%s", f.Type, cl.ConnID)
		s.sendError(cl, errs.ArgsError, "unknown frame type")
	}
}

func (s *Server) sendError(cl *Client, code int, msg string) {
	frame, err := relay.BuildErrorEvent(code, msg)
	if err != nil {
		return
	}
	cl.Enqueue(frame)
}

// ===== status endpoints =====

func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), frameTimeout)
	defer cancel()

	if err := s.co.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"serverId":    s.co.ServerID(),
		"connections": s.co.LocalConnCount(),
		"uptimeSec":   int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"serverId":    s.co.ServerID(),
		"connections": s.co.LocalConnCount(),
		"rooms":       s.co.LocalRoomCounts(),
	})
}

func (s *Server) RoomStats(c *gin.Context) {
	roomID := c.Param("roomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": errs.ArgsError, "message": "roomId is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), frameTimeout)
	defer cancel()

	stats, err := s.co.RoomStats(ctx, roomID)
	if err != nil {
		logger.Errorf("[ws] room stats roomId=%s: %v", roomID, err)
		c.JSON(http.StatusBadGateway, gin.H{"code": errs.BackendError, "message": "presence backend unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
