package playlist

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Syncer runs one reconciliation for an event.
type Syncer interface {
	Reconcile(ctx context.Context, eventID uint) (*Report, error)
}

// ===========================
// 🧵 In-process queue

// Queue runs reconciliations on a fixed pool of workers. An event that is
// already waiting in the queue is not queued again, so a burst of RSVPs
// collapses into one run that sees all of them. At most one run per event
// is in flight; a request arriving during a run marks the event dirty and
// the same worker runs it once more when it finishes.
type Queue struct {
	syncer  Syncer
	jobs    chan uint
	timeout time.Duration

	mu      sync.Mutex
	pending map[uint]bool
	running map[uint]bool
	dirty   map[uint]bool
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueue(syncer Syncer, workers, buffer int, timeout time.Duration) *Queue {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 64
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		syncer:  syncer,
		jobs:    make(chan uint, buffer),
		timeout: timeout,
		pending: map[uint]bool{},
		running: map[uint]bool{},
		dirty:   map[uint]bool{},
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

func (q *Queue) Dispatch(_ context.Context, eventID uint, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.pending[eventID] {
		return
	}
	if q.running[eventID] {
		q.dirty[eventID] = true
		log.WithFields(log.Fields{"event_id": eventID, "reason": reason}).Debug("playlist sync folded into running sync")
		return
	}

	select {
	case q.jobs <- eventID:
		q.pending[eventID] = true
		log.WithFields(log.Fields{"event_id": eventID, "reason": reason}).Debug("playlist sync queued")
	default:
		log.WithField("event_id", eventID).Warn("playlist sync queue full, dropping")
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for eventID := range q.jobs {
		q.mu.Lock()
		delete(q.pending, eventID)
		q.running[eventID] = true
		q.mu.Unlock()

		for {
			q.run(eventID)

			q.mu.Lock()
			again := q.dirty[eventID]
			delete(q.dirty, eventID)
			if !again {
				delete(q.running, eventID)
			}
			q.mu.Unlock()
			if !again {
				break
			}
		}
	}
}

func (q *Queue) run(eventID uint) {
	defer func() {
		if p := recover(); p != nil {
			log.WithFields(log.Fields{"event_id": eventID, "panic": p}).Error("playlist sync panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	if _, err := q.syncer.Reconcile(ctx, eventID); err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("playlist sync failed")
	}
}

// Close stops accepting work and waits for queued runs to finish. Runs still
// going when ctx ends are cancelled.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

// ===========================
// 📨 Kafka

// SyncMessage is the payload published for each requested reconciliation.
type SyncMessage struct {
	EventID uint      `json:"event_id"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes sync requests keyed by event so every request
// for one event lands on the same partition.
type KafkaDispatcher struct {
	writer  MessageWriter
	timeout time.Duration
}

func NewKafkaDispatcher(writer MessageWriter) *KafkaDispatcher {
	return &KafkaDispatcher{writer: writer, timeout: 5 * time.Second}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, eventID uint, reason string) {
	payload, err := json.Marshal(SyncMessage{EventID: eventID, Reason: reason, At: time.Now().UTC()})
	if err != nil {
		log.WithError(err).Error("encode sync message")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		err := d.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(strconv.FormatUint(uint64(eventID), 10)),
			Value: payload,
		})
		if err != nil {
			log.WithError(err).WithField("event_id", eventID).Error("publish sync message failed")
		}
	}()
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

// Consume feeds sync messages into dispatcher until ctx ends. Messages are
// committed once handed off; a malformed message is committed and skipped.
func Consume(ctx context.Context, reader MessageReader, dispatcher interface {
	Dispatch(ctx context.Context, eventID uint, reason string)
}) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		var sm SyncMessage
		if err := json.Unmarshal(msg.Value, &sm); err != nil || sm.EventID == 0 {
			log.WithField("offset", msg.Offset).Warn("skipping malformed sync message")
		} else {
			dispatcher.Dispatch(ctx, sm.EventID, sm.Reason)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.WithError(err).Warn("commit sync message failed")
		}
	}
}
