package app

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"arena/internal/config"
	servernet "arena/internal/net"
	"arena/internal/net/proto"
	"arena/logging"
)

func TestBuildSinks(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"console", "json"}
	if _, err := buildSinks(cfg, io.Discard); err == nil {
		t.Fatalf("expected json sink without a path to fail")
	}

	cfg.JSON.FilePath = filepath.Join(t.TempDir(), "events.jsonl")
	sinks, err := buildSinks(cfg, io.Discard)
	if err != nil {
		t.Fatalf("build sinks: %v", err)
	}
	if len(sinks) != 2 || sinks[0].Name != "console" || sinks[1].Name != "json" {
		t.Fatalf("unexpected sinks %+v", sinks)
	}
	for _, named := range sinks {
		named.Sink.Close(context.Background())
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	jsonPath := filepath.Join(t.TempDir(), "events.jsonl")
	serverCfg := config.Default()
	serverCfg.HTTPAddress = "127.0.0.1:0"
	serverCfg.LogSinks = []string{"console", "json"}
	serverCfg.LogJSONPath = jsonPath

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan net.Addr, 1)
	done := make(chan error, 1)
	var console bytes.Buffer
	go func() {
		done <- Run(ctx, Config{
			Server: serverCfg,
			Stdout: &console,
			Ready:  func(addr net.Addr) { ready <- addr },
		})
	}()

	var addr net.Addr
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server never became ready")
	}
	baseURL := "http://" + addr.String()

	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.StatusCode, body)
	}

	joinCtx, joinCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer joinCancel()
	if _, err := servernet.RequestJoin(joinCtx, nil, baseURL, proto.JoinRequest{PlayerName: "alice"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read json log: %v", err)
	}
	if !strings.Contains(string(data), "game.player_joined") {
		t.Fatalf("expected join event in json log, got %q", data)
	}
}
