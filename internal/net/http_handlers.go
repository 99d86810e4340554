package net

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"arena/internal/net/proto"
	"arena/internal/net/ws"
	"arena/internal/server"
	"arena/internal/telemetry"
	"arena/logging"
)

const maxPlayerNameLength = 32

type HTTPHandlerConfig struct {
	ClientDir string
	Logger    telemetry.Logger
	Metrics   *logging.Metrics
	Router    *logging.Router
	Socket    ws.HandlerConfig
}

func NewHTTPHandler(room *server.Room, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Nop()
	}
	if cfg.Socket.Logger == nil {
		cfg.Socket.Logger = logger
	}
	if cfg.Socket.Metrics == nil && cfg.Metrics != nil {
		cfg.Socket.Metrics = telemetry.WrapMetrics(cfg.Metrics)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string               `json:"status"`
			ServerTime int64                `json:"serverTime"`
			TickRate   int                  `json:"tickRate"`
			Room       server.Diagnostics   `json:"room"`
			Telemetry  map[string]uint64    `json:"telemetry"`
			Logging    *logging.RouterStats `json:"logging,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			TickRate:   room.Settings().TicksPerSecond,
			Room:       room.Diagnostics(),
			Telemetry:  cfg.Metrics.Snapshot(),
		}
		if cfg.Router != nil {
			stats := cfg.Router.Stats()
			payload.Logging = &stats
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		var req proto.JoinRequest
		if r.Body != nil {
			defer r.Body.Close()
			decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
			if err := decoder.Decode(&req); err != nil && err != io.EOF {
				writeJoinReply(w, nethttp.StatusBadRequest, proto.JoinReply{Error: "invalid payload"})
				return
			}
		}
		req.PlayerName = strings.TrimSpace(req.PlayerName)
		if req.PlayerName == "" || len(req.PlayerName) > maxPlayerNameLength {
			writeJoinReply(w, nethttp.StatusBadRequest, proto.JoinReply{Error: "player name must be 1-32 characters"})
			return
		}

		success, err := room.Join(req)
		switch {
		case err == nil:
			logger.Printf("player %d (%s) joined game %s", success.YourPlayerID, req.PlayerName, success.GameID)
			writeJoinReply(w, nethttp.StatusOK, proto.JoinReply{Success: &success})
		case errors.Is(err, server.ErrGameFull):
			writeJoinReply(w, nethttp.StatusConflict, proto.JoinReply{Error: err.Error()})
		case errors.Is(err, server.ErrUnknownGame):
			writeJoinReply(w, nethttp.StatusNotFound, proto.JoinReply{Error: err.Error()})
		default:
			logger.Printf("join failed: %v", err)
			writeJoinReply(w, nethttp.StatusInternalServerError, proto.JoinReply{Error: "join failed"})
		}
	})

	mux.HandleFunc("/protocol/schema.json", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		data, err := proto.SchemaJSON()
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/schema+json")
		w.Write(data)
	})

	socket := ws.NewHandler(room, cfg.Socket)
	mux.HandleFunc("/ws", socket.Handle)

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func writeJoinReply(w nethttp.ResponseWriter, code int, reply proto.JoinReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
