package daemon

import (
	"fmt"
	"time"
)

// Mode selects how a node decides whether it runs a database's shards.
type Mode int

const (
	// Solo runs every shard unconditionally. Single-instance deployments and tests.
	Solo Mode = iota
	// HotCold runs shards only while this node holds the database's lease.
	HotCold
)

func (m Mode) String() string {
	if m == HotCold {
		return "hotcold"
	}
	return "solo"
}

// ParseMode maps the config value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "solo":
		return Solo, nil
	case "hotcold":
		return HotCold, nil
	}
	return Solo, fmt.Errorf("unknown daemon mode %q", s)
}

// ErrorPolicy governs projection application failures.
type ErrorPolicy struct {
	ImmediateRetries         int
	Backoff                  []time.Duration
	SkipPoisonEvents         bool
	InfrastructureBackoffMax time.Duration
}

// Options configure a Daemon. Zero fields take the defaults below.
type Options struct {
	NodeID                 string
	Mode                   Mode
	BatchSize              int
	PollingInterval        time.Duration // high-water detection cadence
	FastPollingInterval    time.Duration // idle shard poll
	StaleSequenceThreshold time.Duration
	SafeHarborThreshold    time.Duration
	LeadershipPollingTime  time.Duration
	LeaseDuration          time.Duration
	DiscoveryInterval      time.Duration
	ErrorPolicy            ErrorPolicy
}

func (o Options) withDefaults() Options {
	if o.NodeID == "" {
		o.NodeID = "local"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	if o.PollingInterval <= 0 {
		o.PollingInterval = time.Second
	}
	if o.FastPollingInterval <= 0 {
		o.FastPollingInterval = 250 * time.Millisecond
	}
	if o.StaleSequenceThreshold <= 0 {
		o.StaleSequenceThreshold = 3 * time.Second
	}
	if o.SafeHarborThreshold <= 0 {
		o.SafeHarborThreshold = 5 * time.Second
	}
	if o.LeadershipPollingTime <= 0 {
		o.LeadershipPollingTime = 5 * time.Second
	}
	if o.LeaseDuration < 2*o.LeadershipPollingTime {
		o.LeaseDuration = 3 * o.LeadershipPollingTime
	}
	if o.DiscoveryInterval <= 0 {
		o.DiscoveryInterval = 30 * time.Second
	}
	if o.ErrorPolicy.InfrastructureBackoffMax <= 0 {
		o.ErrorPolicy.InfrastructureBackoffMax = 30 * time.Second
	}
	return o
}
