package mocks

import (
	"context"

	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/metinatakli/cinefeed/internal/observable"
)

// StubGate is a ConnectivityGate whose status is set by the test.
type StubGate struct {
	status *observable.Subject[domain.ConnectivityStatus]
}

func NewStubGate(status domain.ConnectivityStatus) *StubGate {
	return &StubGate{status: observable.New(status)}
}

func (g *StubGate) Set(status domain.ConnectivityStatus) {
	g.status.Publish(status)
}

func (g *StubGate) Status() domain.ConnectivityStatus {
	return g.status.Value()
}

func (g *StubGate) Observe(ctx context.Context) <-chan domain.ConnectivityStatus {
	return g.status.Subscribe(ctx)
}
