package server

import (
	"sort"
	"time"

	"arena/internal/game"
	"arena/internal/net/proto"
	"arena/internal/stats"
)

// Conn is the outbound half of a client connection.
type Conn interface {
	Send(msg proto.ServerMessage) error
	Close() error
}

const (
	// maxQueuedInputs bounds the inputs a member may have waiting for a
	// future tick.
	maxQueuedInputs = 64
	// maxOutstandingPings bounds the pings awaiting a pong.
	maxOutstandingPings = 16
)

type queuedInput struct {
	tick  game.TickNum
	input game.Input
}

// member is a seated player. All fields are guarded by the room mutex.
type member struct {
	id    game.PlayerID
	name  string
	token string
	conn  Conn

	queue       []queuedInput
	lastApplied game.TickNum
	hasApplied  bool

	pingSeq  uint32
	pingSent map[uint32]time.Time
	rtt      *stats.Var
}

func newMember(id game.PlayerID, name, token string) *member {
	return &member{
		id:       id,
		name:     name,
		token:    token,
		pingSent: make(map[uint32]time.Time),
		rtt:      stats.NewVar(stats.DefaultVarWindow),
	}
}

// enqueue keeps the queue sorted by tag. A repeated tag replaces the queued
// input. It reports false for tags that were already applied.
func (m *member) enqueue(tick game.TickNum, input game.Input) bool {
	if m.hasApplied && tick <= m.lastApplied {
		return false
	}
	i := sort.Search(len(m.queue), func(i int) bool { return m.queue[i].tick >= tick })
	if i < len(m.queue) && m.queue[i].tick == tick {
		m.queue[i].input = input
		return true
	}
	m.queue = append(m.queue, queuedInput{})
	copy(m.queue[i+1:], m.queue[i:])
	m.queue[i] = queuedInput{tick: tick, input: input}
	if len(m.queue) > maxQueuedInputs {
		m.queue = append(m.queue[:0], m.queue[len(m.queue)-maxQueuedInputs:]...)
	}
	return true
}

// take removes and returns the queued inputs tagged at or before tick.
func (m *member) take(tick game.TickNum) []queuedInput {
	n := sort.Search(len(m.queue), func(i int) bool { return m.queue[i].tick > tick })
	if n == 0 {
		return nil
	}
	out := append([]queuedInput(nil), m.queue[:n]...)
	m.queue = append(m.queue[:0], m.queue[n:]...)
	return out
}

func (m *member) ack() *game.TickNum {
	if !m.hasApplied {
		return nil
	}
	ack := m.lastApplied
	return &ack
}

func (m *member) nextPing(now time.Time) uint32 {
	m.pingSeq++
	m.pingSent[m.pingSeq] = now
	for seq := range m.pingSent {
		if m.pingSeq-seq >= maxOutstandingPings {
			delete(m.pingSent, seq)
		}
	}
	return m.pingSeq
}

// pong records the round trip of seq. Unknown or repeated sequences are
// ignored.
func (m *member) pong(seq uint32, at time.Time) (time.Duration, bool) {
	sent, ok := m.pingSent[seq]
	if !ok {
		return 0, false
	}
	delete(m.pingSent, seq)
	rtt := at.Sub(sent)
	if rtt < 0 {
		rtt = 0
	}
	m.rtt.Record(float64(rtt) / float64(time.Millisecond))
	return rtt, true
}
