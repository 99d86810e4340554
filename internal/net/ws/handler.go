package ws

import (
	"errors"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"arena/internal/game"
	"arena/internal/net/proto"
	"arena/internal/server"
	"arena/internal/telemetry"
)

const maxFrameBytes = 4096

// Room is the part of the authoritative room the socket handler drives.
type Room interface {
	Subscribe(token string, conn server.Conn) (game.PlayerID, error)
	Disconnect(token string, conn server.Conn, reason string)
	HandleClientMessage(recvTime time.Time, msg proto.SignedClientMessage) error
}

type HandlerConfig struct {
	Logger       telemetry.Logger
	Metrics      telemetry.Metrics
	SendBuffer   int
	WriteTimeout time.Duration
}

type Handler struct {
	room     Room
	cfg      HandlerConfig
	upgrader websocket.Upgrader
}

func NewHandler(room Room, cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.Nop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.WrapMetrics(nil)
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		room:     room,
		cfg:      cfg,
		upgrader: upgrader,
	}
}

// Handle upgrades /ws?token=... and pumps client frames into the room until
// the socket closes.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		nethttp.Error(w, "missing token", nethttp.StatusBadRequest)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.cfg.Logger.Printf("upgrade failed: %v", err)
		return
	}
	raw.SetReadLimit(maxFrameBytes)

	conn := newConnection(raw, h.cfg.SendBuffer, h.cfg.WriteTimeout, h.cfg.Metrics)
	playerID, err := h.room.Subscribe(token, conn)
	if err != nil {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown player")
		raw.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
		conn.Close()
		return
	}

	reason := "connection closed"
	defer func() {
		h.room.Disconnect(token, conn, reason)
		conn.Close()
	}()

	for {
		kind, payload, err := raw.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = err.Error()
			}
			return
		}
		if kind != websocket.BinaryMessage {
			h.cfg.Logger.Printf("discarding non-binary frame from player %d", playerID)
			continue
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.cfg.Logger.Printf("discarding malformed message from player %d: %v", playerID, err)
			continue
		}
		if msg.Token != token {
			h.cfg.Logger.Printf("discarding message from player %d signed with another token", playerID)
			continue
		}

		if err := h.room.HandleClientMessage(time.Now(), msg); err != nil {
			if errors.Is(err, server.ErrUnknownToken) {
				reason = "seat released"
				return
			}
			h.cfg.Logger.Printf("%s from player %d rejected: %v", msg.Message.Type, playerID, err)
		}
	}
}
