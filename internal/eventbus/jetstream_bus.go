package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"
)

// subjectPrefix корень subject'ов событий: tileworld.chunk.spawned
const subjectPrefix = "tileworld"

// publishTimeout предел ожидания подтверждения одной публикации
const publishTimeout = 2 * time.Second

// outbound событие в очереди на отправку
type outbound struct {
	subject string
	data    []byte
}

// publishFunc отправляет одно сообщение и ждет подтверждения
type publishFunc func(ctx context.Context, subject string, data []byte) error

// JetStreamBus реализует EventBus поверх NATS JetStream.
// Позволяет внешним наблюдателям следить за стримингом чанков.
// Publish только ставит событие в буфер: отправку и ожидание ack
// выполняет отдельная горутина, при полном буфере событие отбрасывается.
type JetStreamBus struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	stream  string
	queue   chan outbound
	publish publishFunc
	sender  sync.WaitGroup

	published uint64
	consumed  uint64
	dropped   uint64

	closeMu   sync.RWMutex // защищает closed и отправку в queue
	closed    bool
	closeOnce sync.Once
}

// NewJetStreamBus подключается к кластеру NATS и гарантирует наличие стрима.
// url: nats://127.0.0.1:4222, stream: "TILEWORLD", buffer: размер очереди отправки.
func NewJetStreamBus(url, stream string, retention time.Duration, buffer int) (*JetStreamBus, error) {
	if stream == "" {
		stream = "TILEWORLD"
	}

	nc, err := nats.Connect(url, nats.Name("tileworld"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Стрим с subject'ами tileworld.>
	if _, err = js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      stream,
			Subjects:  []string{subjectPrefix + ".>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream: %w", err)
		}
	}

	jb := newOutboundBus(buffer, func(ctx context.Context, subject string, data []byte) error {
		_, err := js.Publish(subject, data, nats.Context(ctx))
		return err
	})
	jb.nc = nc
	jb.js = js
	jb.stream = stream
	return jb, nil
}

// newOutboundBus создает шину с очередью отправки и запускает отправителя
func newOutboundBus(buffer int, publish publishFunc) *JetStreamBus {
	if buffer <= 0 {
		buffer = 1024
	}
	jb := &JetStreamBus{
		queue:   make(chan outbound, buffer),
		publish: publish,
	}
	jb.sender.Add(1)
	go jb.sendLoop()
	return jb
}

// sendLoop отправляет события по одному до закрытия очереди
func (jb *JetStreamBus) sendLoop() {
	defer jb.sender.Done()
	for out := range jb.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := jb.publish(ctx, out.subject, out.data)
		cancel()
		if err != nil {
			atomic.AddUint64(&jb.dropped, 1)
			continue
		}
		atomic.AddUint64(&jb.published, 1)
	}
}

// subjectFor subject события: tileworld.<event_type>
func subjectFor(eventType string) string {
	if eventType == "" {
		return subjectPrefix + ".>"
	}
	return subjectPrefix + "." + strings.TrimPrefix(eventType, ".")
}

// Publish сериализует Envelope в JSON и ставит в очередь на subject tileworld.<type>.
// Не блокируется: при заполненной очереди событие отбрасывается и учитывается в Dropped.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	jb.closeMu.RLock()
	defer jb.closeMu.RUnlock()
	if jb.closed {
		return ErrBusClosed
	}

	select {
	case jb.queue <- outbound{subject: subjectFor(ev.EventType), data: data}:
	default:
		atomic.AddUint64(&jb.dropped, 1)
	}
	return nil
}

// Subscribe создаёт эфемерного потребителя новых сообщений и вызывает handler асинхронно.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := subjectFor("")
	if len(f.Types) == 1 {
		subj = subjectFor(f.Types[0])
	}

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err == nil && matchFilter(&ev, f) {
			h(ctx, &ev)
			atomic.AddUint64(&jb.consumed, 1)
		}
		_ = msg.Ack()
	}, nats.ManualAck(), nats.DeliverNew(), nats.AckWait(30*time.Second))
	if err != nil {
		return nil, err
	}

	return &jetSub{natSub}, nil
}

// jetSub обёртка вокруг *nats.Subscription чтобы удовлетворить наш интерфейс.
type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает текущие метрики. InFlight: события в очереди отправки.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&jb.published),
		Consumed:  atomic.LoadUint64(&jb.consumed),
		Dropped:   atomic.LoadUint64(&jb.dropped),
		InFlight:  len(jb.queue),
	}
}

// Close отправляет оставшиеся в очереди события и закрывает соединение
func (jb *JetStreamBus) Close() {
	jb.closeOnce.Do(func() {
		jb.closeMu.Lock()
		jb.closed = true
		close(jb.queue)
		jb.closeMu.Unlock()

		jb.sender.Wait()
		if jb.nc != nil {
			_ = jb.nc.Drain()
		}
	})
}

var _ EventBus = (*JetStreamBus)(nil)
