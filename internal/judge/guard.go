package judge

import (
	"context"
	"fmt"

	appErr "gide/pkg/errors"

	"golang.org/x/sync/semaphore"
)

// Policy decides what happens when a run starts while another is in flight.
type Policy string

const (
	// PolicyReject fails the second run with RunInProgress.
	PolicyReject Policy = "reject"
	// PolicyQueue waits for the active run to finish.
	PolicyQueue Policy = "queue"
	// PolicyRace lets runs overlap; each caller gets its own result.
	PolicyRace Policy = "race"
)

// Guard serializes runs according to a Policy.
type Guard struct {
	policy Policy
	sem    *semaphore.Weighted
}

// NewGuard builds a guard. An empty policy means PolicyReject.
func NewGuard(policy Policy) (*Guard, error) {
	switch policy {
	case "":
		policy = PolicyReject
	case PolicyReject, PolicyQueue, PolicyRace:
	default:
		return nil, fmt.Errorf("unknown run policy: %s", policy)
	}
	return &Guard{policy: policy, sem: semaphore.NewWeighted(1)}, nil
}

// Policy returns the configured policy.
func (g *Guard) Policy() Policy {
	return g.policy
}

// Acquire claims the run slot. The returned release must be called once the
// run settles.
func (g *Guard) Acquire(ctx context.Context) (func(), error) {
	switch g.policy {
	case PolicyRace:
		return func() {}, nil
	case PolicyQueue:
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return nil, appErr.FromContext(err, "execution")
		}
	default:
		if !g.sem.TryAcquire(1) {
			return nil, appErr.New(appErr.RunInProgress)
		}
	}
	return func() { g.sem.Release(1) }, nil
}
