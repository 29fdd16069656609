package workers

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/queue"
	"github.com/benvon/crux-journal/internal/request"
)

// Run consumes deliveries with concurrency handlers until ctx ends or the
// delivery channel closes. Job failures are logged, never returned.
func (p *Processor) Run(ctx context.Context, msgs <-chan *queue.Message, errs <-chan error, concurrency int) error {
	return run(ctx, p, msgs, errs, concurrency)
}

func run[M queue.MessageInterface](ctx context.Context, p *Processor, msgs <-chan M, errs <-chan error, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}

	handlersDone := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			select {
			case <-handlersDone:
				return
			case err, ok := <-errs:
				if !ok {
					return
				}
				p.logger.Error("queue_error", zap.String("error", logpkg.SanitizeError(err)))
			}
		}
	}()

	var g errgroup.Group
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg, ok := <-msgs:
					if !ok {
						return nil
					}
					p.handle(ctx, msg)
				}
			}
		})
	}

	p.logger.Info("worker_consuming", zap.Int("concurrency", concurrency))
	err := g.Wait()
	close(handlersDone)
	<-drained
	p.logger.Info("worker_stopped")
	return err
}

func (p *Processor) handle(ctx context.Context, msg queue.MessageInterface) {
	job := msg.GetJob()
	ctx = request.WithRequestID(ctx, job.ID.String())
	if err := p.ProcessJob(ctx, msg); err != nil {
		p.logger.Error("job_failed",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
}
