package network

import (
	"context"

	"arena/logging"
)

const (
	// EventAckAdvanced is emitted when a player's newest applied input moves forward.
	EventAckAdvanced logging.EventType = "network.ack_advanced"
	// EventInputDropped is emitted when an input arrives too late to be applied.
	EventInputDropped logging.EventType = "network.input_dropped"
	// EventPongReceived is emitted when a ping round trip completes.
	EventPongReceived logging.EventType = "network.pong_received"
	// EventSendFailed is emitted when a frame could not be written to a client.
	EventSendFailed logging.EventType = "network.send_failed"
)

type AckPayload struct {
	Previous uint64 `json:"previous"`
	Ack      uint64 `json:"ack"`
}

type InputDroppedPayload struct {
	InputTick   uint64 `json:"inputTick"`
	LastApplied uint64 `json:"lastApplied"`
}

type PongPayload struct {
	Sequence  uint32  `json:"sequence"`
	RTTMillis float64 `json:"rttMillis"`
}

type SendFailedPayload struct {
	Error string `json:"error"`
}

func AckAdvanced(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AckPayload, extra map[string]any) {
	publish(ctx, pub, EventAckAdvanced, logging.SeverityDebug, tick, actor, payload, extra)
}

// InputDropped publishes a warning for an input tagged at or before the last
// applied tag.
func InputDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload InputDroppedPayload, extra map[string]any) {
	publish(ctx, pub, EventInputDropped, logging.SeverityWarn, tick, actor, payload, extra)
}

func PongReceived(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PongPayload, extra map[string]any) {
	publish(ctx, pub, EventPongReceived, logging.SeverityDebug, tick, actor, payload, extra)
}

func SendFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SendFailedPayload, extra map[string]any) {
	publish(ctx, pub, EventSendFailed, logging.SeverityWarn, tick, actor, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}
