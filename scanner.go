package recce

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Scanner drives probes against one target with bounded concurrency.
type Scanner struct {
	logger   *zap.Logger
	resolver *Resolver
	cache    *ResolveCache
	prober   Prober
	metrics  *Metrics
	width    int
	mode     string
	progress func(port uint16, state PortState)
	resolved func(host string, tmpl AddressTemplate)
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithProber replaces the TCP prober, typically with a mock.
func WithProber(p Prober) ScannerOption {
	return func(s *Scanner) { s.prober = p }
}

// WithResolver replaces the resolver built from the config.
func WithResolver(r *Resolver) ScannerOption {
	return func(s *Scanner) { s.resolver = r }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) ScannerOption {
	return func(s *Scanner) { s.metrics = m }
}

// WithProgress registers fn to be called after every probe. fn may be called
// from several goroutines at once.
func WithProgress(fn func(port uint16, state PortState)) ScannerOption {
	return func(s *Scanner) { s.progress = fn }
}

// WithTargetResolved registers fn to be called once the target resolves,
// before any port is probed.
func WithTargetResolved(fn func(host string, tmpl AddressTemplate)) ScannerOption {
	return func(s *Scanner) { s.resolved = fn }
}

// NewScanner creates a Scanner from config. The config must already be
// validated.
func NewScanner(config *Config, logger *zap.Logger, opts ...ScannerOption) (*Scanner, error) {
	s := &Scanner{
		logger: logger.With(zap.String("component", "scanner")),
		prober: &TCPProber{Timeout: config.ProbeTimeoutDuration()},
		width:  config.Concurrency,
		mode:   config.ScheduleMode,
	}
	if s.width < 1 {
		s.width = DefaultConcurrency
	}
	if s.mode == "" {
		s.mode = ScheduleSliding
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.resolver == nil {
		var resolverOpts []ResolverOption
		if config.EnableCaching {
			cache, err := NewResolveCache(time.Duration(config.CacheTTL)*time.Minute, logger)
			if err != nil {
				return nil, err
			}
			s.cache = cache
			resolverOpts = append(resolverOpts, WithResolveCache(cache))
		}
		s.resolver = NewResolver(logger, resolverOpts...)
	}

	return s, nil
}

// Close releases the resolution cache, if any.
func (s *Scanner) Close() {
	if s.cache != nil {
		stats := s.cache.GetStats()
		s.logger.Debug("Resolution cache stats",
			zap.Uint64("hits", stats.Hits),
			zap.Uint64("misses", stats.Misses),
			zap.Uint64("keys_added", stats.KeysAdded),
			zap.Float64("ratio", stats.Ratio),
		)
		s.cache.Close()
	}
}

// Width returns the concurrency width.
func (s *Scanner) Width() int { return s.width }

// Mode returns the schedule mode.
func (s *Scanner) Mode() string { return s.mode }

// ScanSpec parses spec and scans the resulting ports on host. Parse failures
// are returned before anything is resolved or probed.
func (s *Scanner) ScanSpec(ctx context.Context, host, spec string) (*ScanResult, error) {
	ports, err := ParsePortSpec(spec)
	if err != nil {
		s.recordStatus("parse", "error")
		return nil, err
	}
	return s.Scan(ctx, host, ports)
}

// Scan resolves host once and probes every port in ports. On resolution
// failure nothing is probed and no result is returned. Per-port socket
// failures leave that port Unknown and are listed in the result.
func (s *Scanner) Scan(ctx context.Context, host string, ports []uint16) (*ScanResult, error) {
	tmpl, err := s.resolver.Resolve(ctx, host)
	if err != nil {
		s.logger.Error("Failed to resolve target", zap.String("host", host), zap.Error(err))
		if s.metrics != nil {
			s.metrics.ResolutionFailures.Inc()
		}
		s.recordStatus("scan", "resolution_error")
		return nil, err
	}
	if s.resolved != nil {
		s.resolved(host, tmpl)
	}

	ports = dedupPorts(ports)
	result := newScanResult(uuid.New().String(), host, tmpl, ports)
	logger := s.logger.With(
		zap.String("scan_id", result.ID),
		zap.String("host", host),
		zap.String("address", result.Address),
	)
	logger.Info("Starting scan",
		zap.Int("ports", len(ports)),
		zap.Int("width", s.width),
		zap.String("mode", s.mode),
	)

	if s.mode == ScheduleBatch {
		s.runBatched(ctx, logger, tmpl, ports, result)
	} else {
		s.runSliding(ctx, logger, tmpl, ports, result)
	}
	result.FinishedAt = time.Now()

	if ctx.Err() != nil {
		logger.Warn("Scan interrupted, unprobed ports remain unknown", zap.Error(ctx.Err()))
		s.recordStatus("scan", "cancelled")
	} else {
		s.recordStatus("scan", "success")
	}
	if s.metrics != nil {
		s.metrics.ScanDuration.Observe(result.Duration().Seconds())
	}

	logger.Info("Scan completed",
		zap.Duration("duration", result.Duration()),
		zap.Int("open", result.Count(StateOpen)),
		zap.Int("filtered", result.Count(StateFiltered)),
		zap.Int("closed", result.Count(StateClosed)),
		zap.Int("unknown", result.Count(StateUnknown)),
	)
	return result, nil
}

// runBatched probes ports in consecutive batches of at most width. Each batch
// is one errgroup and Wait is the barrier before the next batch starts.
func (s *Scanner) runBatched(ctx context.Context, logger *zap.Logger, tmpl AddressTemplate, ports []uint16, result *ScanResult) {
	for i, batch := range planBatches(ports, s.width) {
		if ctx.Err() != nil {
			return
		}
		var g errgroup.Group
		for _, port := range batch {
			g.Go(func() error {
				s.probeInto(ctx, logger, tmpl, port, result)
				return nil
			})
		}
		_ = g.Wait()
		logger.Debug("Batch completed", zap.Int("batch", i), zap.Int("size", len(batch)))
	}
}

// runSliding keeps up to width probes in flight and starts the next port as
// soon as a slot frees.
func (s *Scanner) runSliding(ctx context.Context, logger *zap.Logger, tmpl AddressTemplate, ports []uint16, result *ScanResult) {
	sem := semaphore.NewWeighted(int64(s.width))
	var wg sync.WaitGroup
	for _, port := range ports {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			s.probeInto(ctx, logger, tmpl, port, result)
		}()
	}
	wg.Wait()
}

// probeInto runs one probe and writes its state into the port's slot.
func (s *Scanner) probeInto(ctx context.Context, logger *zap.Logger, tmpl AddressTemplate, port uint16, result *ScanResult) {
	if s.metrics != nil {
		s.metrics.ProbesInFlight.Inc()
		defer s.metrics.ProbesInFlight.Dec()
	}

	start := time.Now()
	state, err := s.prober.Probe(ctx, tmpl, port)
	if err != nil {
		state = StateUnknown
		var appErr *AppError
		if !errors.As(err, &appErr) {
			appErr = newProbeResourceError(tmpl.String(), port, err)
		}
		result.addFailure(appErr)
		logger.Warn("Probe failed", zap.Uint16("port", port), zap.Error(err))
		if s.metrics != nil {
			s.metrics.ProbeResourceErrors.Inc()
		}
	}
	if _, ok := interest[state]; !ok {
		state = StateUnknown
	}
	result.set(port, state)
	if s.progress != nil {
		s.progress(port, state)
	}

	if s.metrics != nil {
		s.metrics.PortsProbed.WithLabelValues(state.String()).Inc()
		s.metrics.ProbeDuration.WithLabelValues(state.String()).Observe(time.Since(start).Seconds())
	}
}

func (s *Scanner) recordStatus(operation, status string) {
	if s.metrics != nil {
		s.metrics.OperationStatus.WithLabelValues(operation, status).Inc()
	}
}

// planBatches splits ports into consecutive chunks of at most width. The last
// chunk holds the remainder.
func planBatches(ports []uint16, width int) [][]uint16 {
	if width < 1 {
		panic(fmt.Sprintf("recce: invalid batch width %d", width))
	}
	batches := make([][]uint16, 0, (len(ports)+width-1)/width)
	for start := 0; start < len(ports); start += width {
		end := min(start+width, len(ports))
		batches = append(batches, ports[start:end])
	}
	return batches
}

// dedupPorts drops repeated ports, keeping first-occurrence order.
func dedupPorts(ports []uint16) []uint16 {
	var seen [MaxPorts]bool
	out := make([]uint16, 0, len(ports))
	for _, port := range ports {
		if seen[port] {
			continue
		}
		seen[port] = true
		out = append(out, port)
	}
	return out
}
