// Package historian drains the Redis action queue into the Postgres archive.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pitch/internal/cache"
	"github.com/jason-s-yu/pitch/internal/models"
	"github.com/sirupsen/logrus"
)

// Source yields queued action records. Pop returns (nil, nil) on timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*cache.GameActionRecord, error)
}

// Sink persists batches of records.
type Sink interface {
	InsertActions(ctx context.Context, batch []cache.GameActionRecord) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// RedisSource pops from the shared cache.Rdb queue.
type RedisSource struct{}

func (RedisSource) Pop(ctx context.Context, timeout time.Duration) (*cache.GameActionRecord, error) {
	return cache.PopGameActions(ctx, timeout)
}

// Service accumulates records and flushes them when the batch fills or the
// flush interval elapses.
type Service struct {
	src        Source
	sink       Sink
	batchSize  int
	flushDelay time.Duration
	popTimeout time.Duration
	retryDelay time.Duration
	inactivity time.Duration
	log        *logrus.Entry

	batchMu      sync.Mutex
	batch        []cache.GameActionRecord
	lastActivity map[uuid.UUID]time.Time
	// a full batch does not trigger a flush before retryAt
	retryAt time.Time
}

// New builds a Service. inactivity <= 0 disables abandonment marking.
func New(src Source, sink Sink, batchSize int, flushDelay, inactivity time.Duration, logger *logrus.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Service{
		src:          src,
		sink:         sink,
		batchSize:    batchSize,
		flushDelay:   flushDelay,
		popTimeout:   time.Second,
		retryDelay:   time.Second,
		inactivity:   inactivity,
		log:          logger.WithField("component", "historian"),
		batch:        make([]cache.GameActionRecord, 0, batchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// Run drains the source until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushDelay)
	defer ticker.Stop()

	s.log.Info("historian started")
	for {
		select {
		case <-ctx.Done():
			s.Flush(context.Background())
			s.log.Info("historian stopped")
			return
		case <-ticker.C:
			s.Flush(ctx)
			s.sweepInactive(ctx, time.Now())
		default:
			rec, err := s.src.Pop(ctx, s.popTimeout)
			if err != nil {
				if ctx.Err() == nil {
					s.log.WithError(err).Error("pop failed")
				}
				select {
				case <-ctx.Done():
				case <-time.After(s.retryDelay):
				}
				continue
			}
			if rec == nil {
				continue
			}
			if s.add(*rec) {
				s.Flush(ctx)
			}
		}
	}
}

// add buffers rec and reports whether the batch is full and due for a flush.
// After a failed flush it reports false until the retry delay has passed;
// the ticker keeps retrying meanwhile.
func (s *Service) add(rec cache.GameActionRecord) bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.batch = append(s.batch, rec)
	switch rec.ActionType {
	case "game_over", models.ActionReset:
		delete(s.lastActivity, rec.GameID)
	default:
		s.lastActivity[rec.GameID] = time.Now()
	}
	return len(s.batch) >= s.batchSize && !time.Now().Before(s.retryAt)
}

// Flush writes the buffered batch. On failure the records are kept for the
// next attempt.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]cache.GameActionRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.InsertActions(ctx, pending); err != nil {
		s.log.WithError(err).Errorf("failed to flush %d actions", len(pending))
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.retryAt = time.Now().Add(s.retryDelay)
		s.batchMu.Unlock()
		return
	}
	s.batchMu.Lock()
	s.retryAt = time.Time{}
	s.batchMu.Unlock()
	s.log.Debugf("flushed %d actions", len(pending))
}

// sweepInactive marks games that have gone quiet as abandoned.
func (s *Service) sweepInactive(ctx context.Context, now time.Time) {
	if s.inactivity <= 0 {
		return
	}
	var stale []uuid.UUID
	s.batchMu.Lock()
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.inactivity {
			stale = append(stale, id)
			delete(s.lastActivity, id)
		}
	}
	s.batchMu.Unlock()

	for _, id := range stale {
		if err := s.sink.MarkAbandoned(ctx, id); err != nil {
			s.log.WithError(err).WithField("game_id", id).Warn("failed to mark game abandoned")
			continue
		}
		s.log.WithField("game_id", id).Info("marked game abandoned")
	}
}
