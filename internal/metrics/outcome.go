package metrics

import "sync"

// Outcome classifies the result of one page fetch
type Outcome int

const (
	OutcomeFailure Outcome = iota
	OutcomeBlocked
	OutcomeSuccess
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailure:
		return "failure"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeSuccess:
		return "success"
	}
	return "unknown"
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Outcomes tallies fetch outcomes. Each counter has its own lock.
type Outcomes struct {
	failure counter
	blocked counter
	success counter
}

// Add counts one outcome
func (o *Outcomes) Add(outcome Outcome) {
	switch outcome {
	case OutcomeFailure:
		o.failure.inc()
	case OutcomeBlocked:
		o.blocked.inc()
	case OutcomeSuccess:
		o.success.inc()
	}
}

// Failure returns the number of failed fetches
func (o *Outcomes) Failure() int { return o.failure.get() }

// Blocked returns the number of fetches refused by the server
func (o *Outcomes) Blocked() int { return o.blocked.get() }

// Success returns the number of successful fetches
func (o *Outcomes) Success() int { return o.success.get() }

// Total returns the number of fetches of any outcome
func (o *Outcomes) Total() int {
	return o.Failure() + o.Blocked() + o.Success()
}
