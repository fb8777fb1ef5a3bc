package smi

import (
	"errors"
	"sync"
)

// MetricFamily groups the query surface for capability probing. A family is
// supported on a device when its representative query succeeds there.
type MetricFamily int

const (
	FamilyUtilization MetricFamily = iota
	FamilyMemory
	FamilyPower
	FamilyFan
	FamilyPCIe
	FamilyTopology
	FamilyProcesses
	FamilyPartition
	FamilyXGMI
	FamilyUUID
)

var familyNames = map[MetricFamily]string{
	FamilyUtilization: "utilization",
	FamilyMemory:      "memory",
	FamilyPower:       "power",
	FamilyFan:         "fan",
	FamilyPCIe:        "pcie",
	FamilyTopology:    "topology",
	FamilyProcesses:   "processes",
	FamilyPartition:   "partition",
	FamilyXGMI:        "xgmi",
	FamilyUUID:        "uuid",
}

func (f MetricFamily) String() string {
	if s, ok := familyNames[f]; ok {
		return s
	}
	return "unknown"
}

type capKey struct {
	index  int
	family MetricFamily
}

// capEntry is the verdict slot for one (device, family) pair. Its own lock
// serializes the first probe for that pair without blocking the rest of the
// cache.
type capEntry struct {
	mu        sync.Mutex
	resolved  bool
	supported bool
}

// capabilityCache memoizes probe verdicts per (device, family) for the
// lifetime of one session. Capabilities do not change while a session is
// open, so a verdict is probed at most once; the cache is dropped wholesale
// on Shutdown. The map lock covers only entry lookup; probes run under the
// per-entry lock.
type capabilityCache struct {
	mu      sync.Mutex
	entries map[capKey]*capEntry
}

func newCapabilityCache() *capabilityCache {
	return &capabilityCache{entries: make(map[capKey]*capEntry)}
}

func (c *capabilityCache) entry(key capKey) *capEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &capEntry{}
		c.entries[key] = e
	}
	return e
}

// resolve returns the cached verdict for key, probing on the first miss.
// The entry lock is held across the probe so concurrent first lookups on
// the same pair issue a single native call and converge on one verdict.
func (c *capabilityCache) resolve(key capKey, probe func() error) (bool, error) {
	e := c.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resolved {
		return e.supported, nil
	}
	err := probe()
	switch {
	case err == nil:
		e.resolved, e.supported = true, true
		return true, nil
	case errors.Is(err, ErrNotSupported):
		e.resolved, e.supported = true, false
		return false, nil
	default:
		// Transient failures are not verdicts; leave the entry unprobed.
		return false, err
	}
}

// observe records a verdict learned as a side effect of a regular query.
func (c *capabilityCache) observe(key capKey, supported bool) {
	e := c.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.resolved {
		e.resolved, e.supported = true, supported
	}
}

// known reports a cached verdict without probing.
func (c *capabilityCache) known(key capKey) (supported, ok bool) {
	c.mu.Lock()
	e := c.entries[key]
	c.mu.Unlock()
	if e == nil {
		return false, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.supported, e.resolved
}
