// Package historian drains finished rounds from the Redis history queue and persists them in
// batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/wordlobby/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBatchSize  = 20
	DefaultFlushDelay = 500 * time.Millisecond
)

// RoundSink stores a batch of rounds. Implemented by database.RoundStore.
type RoundSink interface {
	SaveRounds(ctx context.Context, records []cache.RoundRecord) error
}

// Historian pops RoundRecords with BLPOP, accumulates them and flushes when the batch fills up or
// the flush delay passes.
type Historian struct {
	rdb        redis.Cmdable
	queue      string
	sink       RoundSink
	batchSize  int
	flushDelay time.Duration
	logger     *logrus.Logger

	batchMu sync.Mutex
	batch   []cache.RoundRecord
}

// New builds a Historian. Non-positive batchSize or flushDelay fall back to the defaults.
func New(rdb redis.Cmdable, queue string, sink RoundSink, batchSize int, flushDelay time.Duration, logger *logrus.Logger) *Historian {
	if queue == "" {
		queue = cache.DefaultQueueName
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Historian{
		rdb:        rdb,
		queue:      queue,
		sink:       sink,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		logger:     logger,
		batch:      make([]cache.RoundRecord, 0, batchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is still pending.
func (h *Historian) Run(ctx context.Context) error {
	h.logger.Infof("historian reading from %s", h.queue)
	defer func() {
		// ctx is already done here
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Flush(flushCtx)
	}()

	lastFlush := time.Now()
	for {
		if ctx.Err() != nil {
			return nil
		}

		res, err := h.rdb.BLPop(ctx, time.Second, h.queue).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case ctx.Err() != nil:
			return nil
		case err != nil:
			h.logger.Errorf("BLPop: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(h.flushDelay):
			}
		case len(res) == 2:
			// res[0] is the queue name and res[1] the payload.
			h.Handle(ctx, res[1])
		}

		if time.Since(lastFlush) >= h.flushDelay {
			_ = h.Flush(ctx)
			lastFlush = time.Now()
		}
	}
}

// Handle decodes one queue payload into the batch, flushing if the batch is full. Malformed
// payloads are logged and dropped.
func (h *Historian) Handle(ctx context.Context, payload string) {
	var rec cache.RoundRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		h.logger.Warnf("invalid round record: %v", err)
		return
	}

	h.batchMu.Lock()
	h.batch = append(h.batch, rec)
	full := len(h.batch) >= h.batchSize
	h.batchMu.Unlock()

	if full {
		_ = h.Flush(ctx)
	}
}

// Pending returns the number of records waiting for the next flush.
func (h *Historian) Pending() int {
	h.batchMu.Lock()
	defer h.batchMu.Unlock()
	return len(h.batch)
}

// Flush writes the current batch to the sink. A failed batch is logged and dropped.
func (h *Historian) Flush(ctx context.Context) error {
	h.batchMu.Lock()
	if len(h.batch) == 0 {
		h.batchMu.Unlock()
		return nil
	}
	batch := make([]cache.RoundRecord, len(h.batch))
	copy(batch, h.batch)
	h.batch = h.batch[:0]
	h.batchMu.Unlock()

	if err := h.sink.SaveRounds(ctx, batch); err != nil {
		h.logger.Errorf("flush: %v", err)
		return err
	}
	h.logger.Debugf("flushed %d rounds", len(batch))
	return nil
}
