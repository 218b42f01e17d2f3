// Package pool implements the address pool (spec.md §3): a bounded
// multiple-producer/single-consumer queue of IPv4 addresses where every
// address is, at any moment, exactly one of queued, being probed, or held
// by a live robot task.
//
// Grounded on datastructures.SafeQueue for the underlying concurrency-safe
// FIFO, and on shared/utils.go's net.IP enumeration idiom for walking a
// CIDR block into concrete addresses.
package pool

import (
	"fmt"
	"net"

	"swarmctl/internal/datastructures"
)

// Pool hands out addresses to the discovery engine and takes them back when
// a robot task terminates. outstanding tracks which addresses are still the
// pool's concern (queued or in-probe) versus handed off to a robot task via
// Remove; the pool doesn't distinguish queued from in-probe itself — that
// finer-grained bookkeeping belongs to discovery.
type Pool struct {
	queue       *datastructures.SafeQueue[string]
	outstanding *datastructures.SafeSet[string]
}

func New() *Pool {
	return &Pool{
		queue:       datastructures.NewSafeQueue[string](true),
		outstanding: datastructures.NewSafeSet[string](),
	}
}

// SeedCIDR enumerates every host address in cidr (excluding network and
// broadcast addresses for /30 or larger blocks) and queues them.
func (p *Pool) SeedCIDR(cidr string) (int, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return 0, fmt.Errorf("pool: seed %q: %w", cidr, err)
	}

	var addrs []string
	for current := ip.Mask(ipnet.Mask); ipnet.Contains(current); incrementIP(current) {
		addrs = append(addrs, current.String())
	}
	addrs = trimNetworkAndBroadcast(addrs)

	for _, addr := range addrs {
		p.Seed(addr)
	}
	return len(addrs), nil
}

// Seed queues a single address directly, for tests and for addresses
// discovered out-of-band (e.g. operator-supplied).
func (p *Pool) Seed(addr string) {
	p.outstanding.Add(addr)
	p.queue.Enqueue(addr)
}

// Take blocks until an address is available, or end fires. The returned
// address is the caller's responsibility to Release exactly once — it
// counts as "being probed" until then (spec.md §3's pool invariant).
func (p *Pool) Take(end <-chan struct{}) (string, bool) {
	return p.queue.Read(true, end)
}

// Release returns addr to the pool, either because a probe came up empty
// (re-queue for retry) or because a robot task owning it terminated
// (spec.md §3: "must release its address back to the pool exactly once").
func (p *Pool) Release(addr string) {
	p.outstanding.Add(addr)
	p.queue.Enqueue(addr)
}

// Remove permanently retires addr from the pool's bookkeeping — called by
// the arena the moment an address is admitted as a robot (spec.md §3: an
// address is queued, being probed, or held by exactly one live robot, never
// more than one of those at once). The address stays out of outstanding
// until the owning robot task ends and the arena calls Release.
func (p *Pool) Remove(addr string) {
	p.outstanding.Remove(addr)
}

// Len reports how many addresses are queued for probing right now.
func (p *Pool) Len() int {
	return p.queue.Size()
}

// Outstanding reports how many addresses the pool still considers its
// concern — queued or in-probe, not yet handed off to a robot task via
// Remove.
func (p *Pool) Outstanding() int {
	return p.outstanding.Len()
}

func (p *Pool) Close() error {
	return p.queue.Close()
}

func incrementIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			return
		}
	}
}

// trimNetworkAndBroadcast drops the first and last address of a /30 or
// larger block (network and broadcast addresses are never usable robot
// addresses); smaller blocks (/31, /32) are left untouched since they have
// no such reserved addresses under RFC 3021.
func trimNetworkAndBroadcast(addrs []string) []string {
	if len(addrs) <= 2 {
		return addrs
	}
	return addrs[1 : len(addrs)-1]
}
