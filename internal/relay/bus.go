package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fanoutChannel  = "relay:fanout"
	publishTimeout = 2 * time.Second
	publishQueue   = 256 // pending cross-instance publishes
)

type busMessage struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room,omitempty"` // empty means every connection
	Event  string          `json:"event"`
	Frame  json.RawMessage `json:"frame"`
}

// RedisBus extends a local Registry across instances. Each broadcast is
// delivered locally and queued for publishing once; instances skip their own
// messages. Publishing happens in Run, so a slow Redis never stalls the
// sender. When the queue is full the remote copy is dropped.
type RedisBus struct {
	client     *redis.Client
	local      *Registry
	instanceID string
	pending    chan []byte
	log        *zap.Logger
}

func NewRedisBus(client *redis.Client, local *Registry, log *zap.Logger) *RedisBus {
	return &RedisBus{
		client:     client,
		local:      local,
		instanceID: uuid.NewString(),
		pending:    make(chan []byte, publishQueue),
		log:        log.Named("bus"),
	}
}

func (b *RedisBus) Broadcast(room, event string, data any) {
	b.fanout(room, event, data)
}

func (b *RedisBus) BroadcastAll(event string, data any) {
	b.fanout("", event, data)
}

func (b *RedisBus) fanout(room, event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		b.log.Error("failed to encode broadcast", zap.String("event", event), zap.Error(err))
		return
	}
	b.deliverLocal(room, event, frame)

	raw, err := json.Marshal(busMessage{Origin: b.instanceID, Room: room, Event: event, Frame: frame})
	if err != nil {
		b.log.Error("failed to encode bus message", zap.Error(err))
		return
	}
	select {
	case b.pending <- raw:
	default:
		b.log.Warn("publish queue full, dropping remote broadcast", zap.String("event", event))
	}
}

func (b *RedisBus) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-b.pending:
			pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := b.client.Publish(pubCtx, fanoutChannel, raw).Err(); err != nil {
				b.log.Warn("failed to publish broadcast", zap.Error(err))
			}
			cancel()
		}
	}
}

func (b *RedisBus) deliverLocal(room, event string, frame []byte) {
	if room == "" {
		b.local.deliverAll(event, frame)
		return
	}
	b.local.deliverRoom(room, event, frame)
}

// Run publishes queued broadcasts and delivers those of other instances
// until ctx is cancelled.
func (b *RedisBus) Run(ctx context.Context) {
	go b.publishLoop(ctx)

	pubsub := b.client.Subscribe(ctx, fanoutChannel)
	defer pubsub.Close()
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handle(msg.Payload)
		}
	}
}

func (b *RedisBus) handle(payload string) {
	var m busMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		b.log.Warn("dropping bus message", zap.Error(err))
		return
	}
	if m.Origin == b.instanceID || len(m.Frame) == 0 {
		return
	}
	b.deliverLocal(m.Room, m.Event, m.Frame)
}
