package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditLog appends one human-readable line per event to a file.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// NewAuditLog writes to path, creating parent directories on first use.
func NewAuditLog(path string) *AuditLog { return &AuditLog{path: path} }

// Handle decodes a message body and appends its audit line.
func (a *AuditLog) Handle(body []byte) error {
	var ev NetworkChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Entity == "" || ev.Action == "" || ev.ID == "" {
		return errors.New("event is missing entity, action or id")
	}
	return a.Write(ev)
}

func (a *AuditLog) Write(ev NetworkChangedEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	actor := ev.ActorID
	if actor == "" {
		actor = "-"
	}
	line := fmt.Sprintf("[%s] %s %s | id=%s | actor=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Entity, ev.Action, ev.ID, actor)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// StartAuditConsumer consumes QueueName until ctx is cancelled, feeding
// every delivery to audit. Broker failures are retried with exponential
// backoff capped at 30s.
func StartAuditConsumer(ctx context.Context, url string, audit *AuditLog, log *zap.Logger) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consume(ctx, conn, audit, log)
		_ = conn.Close()
		if err != nil {
			log.Warn("audit consumer: consume loop ended, reconnecting", zap.Error(err))
			if !sleep(ctx, 2*time.Second) {
				return
			}
		}
	}
}

func consume(ctx context.Context, conn *amqp.Connection, audit *AuditLog, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("audit consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := audit.Handle(d.Body); err != nil {
				log.Error("audit consumer: handle message failed", zap.Error(err))
				// no requeue, a malformed message would loop forever
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
