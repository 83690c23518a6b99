// Package listener bridges raw WebSocket frames into a bounded ingress
// queue, applying a configurable backpressure policy (spec.md §4.2, C9).
// The listener never parses frames; parsing is deferred to the worker pool.
// Grounded on the teacher's internal/webhooks/dispatcher.go Emit
// (`select { case queue <- job: default: drop }`), generalized to the
// three policies spec.md §4.2 names.
package listener

import (
	"context"
	"log/slog"

	"github.com/cornellsh/signal-client/internal/metrics"
	"github.com/cornellsh/signal-client/internal/wsclient"
)

// Policy selects what happens when the ingress queue is full.
type Policy string

const (
	// DropNewest discards the incoming frame, keeping the queue as-is.
	DropNewest Policy = "DROP_NEWEST"
	// Block suspends the reader until capacity is available, exerting TCP
	// backpressure on the upstream connection.
	Block Policy = "BLOCK"
	// DropOldest evicts the queue head, then enqueues the incoming frame.
	DropOldest Policy = "DROP_OLDEST"
)

// Config configures a Service.
type Config struct {
	QueueSize int
	Policy    Policy
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Service reads frames from a wsclient.Client and enqueues them onto a
// bounded ingress channel per the configured backpressure policy.
type Service struct {
	cfg     Config
	ingress chan wsclient.Frame
	logger  *slog.Logger
}

// New constructs a Service. A zero cfg.Policy defaults to DropNewest, a zero
// cfg.QueueSize defaults to 1000, matching internal/config's defaults.
func New(cfg Config) *Service {
	if cfg.Policy == "" {
		cfg.Policy = DropNewest
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:     cfg,
		ingress: make(chan wsclient.Frame, cfg.QueueSize),
		logger:  logger,
	}
}

// Ingress returns the channel workers should drain.
func (s *Service) Ingress() <-chan wsclient.Frame {
	return s.ingress
}

// Run drains frames from upstream and enqueues them until upstream closes or
// ctx is cancelled.
func (s *Service) Run(ctx context.Context, upstream <-chan wsclient.Frame) {
	for {
		select {
		case frame, ok := <-upstream:
			if !ok {
				return
			}
			s.enqueue(frame)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) enqueue(frame wsclient.Frame) {
	switch s.cfg.Policy {
	case Block:
		s.ingress <- frame
		s.recordDepth()
		return

	case DropOldest:
		select {
		case s.ingress <- frame:
		default:
			select {
			case <-s.ingress:
				s.logger.Warn("listener: queue full, dropping oldest frame")
				if s.cfg.Metrics != nil {
					s.cfg.Metrics.MessagesDropped.WithLabelValues(string(DropOldest)).Inc()
				}
			default:
			}
			select {
			case s.ingress <- frame:
			default:
			}
		}
		s.recordDepth()
		return

	default: // DropNewest
		select {
		case s.ingress <- frame:
		default:
			s.logger.Warn("listener: queue full, dropping frame")
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.MessagesDropped.WithLabelValues(string(DropNewest)).Inc()
			}
		}
		s.recordDepth()
		return
	}
}

func (s *Service) recordDepth() {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.QueueDepth.WithLabelValues("ingress").Set(float64(len(s.ingress)))
	}
}
