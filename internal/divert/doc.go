// Package divert manages the plumbing that pulls host traffic into user-space
// packet queues and releases it again on teardown.
//
// # Overview
//
// Three failure-prone resources have to be kept consistent: kernel iptables
// rule state (global, order-sensitive, observable only through exit codes), a
// kernel-assigned queue number that must not collide with queues claimed by
// other processes, and a blocking consumption loop that has to stop
// cooperatively across many queues at once.
//
// # Key Types
//
//   - [RuleTemplate]: one reversible iptables rule as a paired add/remove command
//   - [Binding]: one queue's rule + consumer + processing goroutine, with an
//     explicit lifecycle state machine
//   - [Allocator]: hands out queue numbers not currently bound on the host
//   - [Group]: starts bindings in order and stops them near-simultaneously
//     (signal-all, then join-all)
//   - [Consumer]: the kernel queue facility; NFQUEUE on Linux, mockable in tests
//
// # Shutdown discipline
//
// Each binding's processing loop re-checks its stop flag only at poll-timeout
// boundaries. [Group.StopAll] therefore sets every binding's flag before
// joining any of them, so total shutdown latency is bounded by roughly one
// poll timeout plus teardown cost instead of one timeout per binding. Perfect
// synchrony is not attempted; bounded skew is accepted.
package divert
