package connectivity

import (
	"context"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/metinatakli/cinefeed/internal/observable"
)

const DefaultInterval = 10 * time.Second

// ProbeFunc reports nil when the network is reachable.
type ProbeFunc func(ctx context.Context) error

// Gate publishes the current connectivity status. It starts Offline and only
// reports Online after a successful reading.
type Gate struct {
	status   *observable.Subject[domain.ConnectivityStatus]
	probe    ProbeFunc
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewGate(probe ProbeFunc, interval time.Duration, logger *slog.Logger) *Gate {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Gate{
		status:   observable.New(domain.Offline),
		probe:    probe,
		interval: interval,
		timeout:  interval / 2,
		logger:   logger,
	}
}

// DialProbe checks reachability by opening a TCP connection to address.
func DialProbe(address string, timeout time.Duration) ProbeFunc {
	return func(ctx context.Context) error {
		dialer := net.Dialer{Timeout: timeout}

		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return err
		}

		return conn.Close()
	}
}

func (g *Gate) Status() domain.ConnectivityStatus {
	return g.status.Value()
}

func (g *Gate) Observe(ctx context.Context) <-chan domain.ConnectivityStatus {
	return g.status.Subscribe(ctx)
}

// Report records an externally supplied reading.
func (g *Gate) Report(status domain.ConnectivityStatus) {
	previous := g.status.Value()
	if previous == status {
		return
	}

	g.status.Publish(status)
	g.logger.Info("connectivity changed", "from", previous.String(), "to", status.String())
}

// Run probes immediately and then on every interval until ctx is done. The
// observation ends with it.
func (g *Gate) Run(ctx context.Context) {
	defer g.status.Close()

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		g.check(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (g *Gate) check(ctx context.Context) {
	if g.probe == nil {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := g.probe(probeCtx)
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		g.logger.Debug("connectivity probe failed", "error", err)
		g.Report(domain.Offline)
		return
	}

	g.Report(domain.Online)
}
