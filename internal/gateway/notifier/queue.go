package notifier

import (
	"context"
	"errors"
	"sync/atomic"

	"signaldesk/internal/logger"
)

var ErrQueueFull = errors.New("notification queue full")

// Queue 异步投递，SendText 从不阻塞调用方。
type Queue struct {
	next    TextNotifier
	ch      chan string
	dropped atomic.Int64
}

func NewQueue(next TextNotifier, size int) *Queue {
	if size <= 0 {
		size = 32
	}
	return &Queue{next: next, ch: make(chan string, size)}
}

func (q *Queue) SendText(text string) error {
	select {
	case q.ch <- text:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped 因队列满而丢弃的消息数。
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

// Run 持续投递直到 ctx 结束；投递失败只记日志。
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case text := <-q.ch:
			if err := q.next.SendText(text); err != nil {
				logger.Warnf("[notify] deliver failed: %v", err)
			}
		}
	}
}
