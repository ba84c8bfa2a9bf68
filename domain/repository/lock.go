package repository

import "context"

// ILeaderLock elects a single scheduler instance across replicas.
type ILeaderLock interface {
	// Acquire takes the lock or renews it if already held by this instance.
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}
