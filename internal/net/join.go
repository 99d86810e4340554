package net

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"

	"arena/internal/net/proto"
)

// ErrJoinRejected wraps the error string of a refused join.
var ErrJoinRejected = errors.New("join rejected")

// RequestJoin posts req to the /join route of the server at baseURL.
func RequestJoin(ctx context.Context, client *nethttp.Client, baseURL string, req proto.JoinRequest) (proto.JoinSuccess, error) {
	if client == nil {
		client = nethttp.DefaultClient
	}
	body, err := json.Marshal(req)
	if err != nil {
		return proto.JoinSuccess{}, err
	}
	endpoint := strings.TrimSuffix(baseURL, "/") + "/join"
	httpReq, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return proto.JoinSuccess{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return proto.JoinSuccess{}, fmt.Errorf("join %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	var reply proto.JoinReply
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&reply); err != nil {
		return proto.JoinSuccess{}, fmt.Errorf("join %s: status %d: %w", endpoint, resp.StatusCode, err)
	}
	if reply.Success == nil {
		return proto.JoinSuccess{}, fmt.Errorf("%w: %s", ErrJoinRejected, reply.Error)
	}
	if reply.Success.ProtocolVersion != proto.Version {
		return proto.JoinSuccess{}, fmt.Errorf("%w: server speaks protocol %d, want %d", ErrJoinRejected, reply.Success.ProtocolVersion, proto.Version)
	}
	return *reply.Success, nil
}

// SocketURL maps an http(s) base URL onto the websocket route.
func SocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = ""
	return u.String(), nil
}
