package service

import (
	"context"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/panjf2000/ants/v2"

	"github.com/cexcore/matchcore/biz/model"
	"github.com/cexcore/matchcore/biz/ports"
)

// AsyncSink dispatches EventSink.Publish calls onto a bounded goroutine
// pool instead of the caller's goroutine, so a slow Kafka write never adds
// latency to the coordinator's transaction (§4.6: "fire-and-forget from the
// coordinator's standpoint"). Grounded on the teacher's engine.BroadcastPool
// (biz/engine/engine.go), repurposed here from websocket fan-out to event
// publication.
type AsyncSink struct {
	inner ports.EventSink
	pool  *ants.Pool
}

// NewAsyncSink wraps inner with a pool of size workers. A pool exhaustion
// falls back to publishing synchronously rather than dropping the event.
func NewAsyncSink(inner ports.EventSink, workers int) (*AsyncSink, error) {
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &AsyncSink{inner: inner, pool: pool}, nil
}

func (s *AsyncSink) Publish(ctx context.Context, event *model.Event) {
	err := s.pool.Submit(func() {
		s.inner.Publish(ctx, event)
	})
	if err != nil {
		hlog.Warnf("event dispatch pool saturated, publishing %s synchronously: %v", event.EventID, err)
		s.inner.Publish(ctx, event)
	}
}

func (s *AsyncSink) Close() {
	s.pool.Release()
}
