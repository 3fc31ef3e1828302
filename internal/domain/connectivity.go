package domain

import "context"

type ConnectivityStatus int

const (
	Offline ConnectivityStatus = iota
	Online
)

func (s ConnectivityStatus) String() string {
	if s == Online {
		return "online"
	}

	return "offline"
}

type ConnectivityGate interface {
	Status() ConnectivityStatus
	Observe(ctx context.Context) <-chan ConnectivityStatus
}
