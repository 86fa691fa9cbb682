package divert

import (
	"strconv"
	"strings"
)

const (
	ruleTool     = "iptables"
	actionInsert = "-I"
	actionDelete = "-D"
)

// wildcardAliases stand for "all interfaces" and suppress the -i clause.
var wildcardAliases = []string{"any", "*"}

// IsWildcardInterface reports whether iface names all interfaces.
func IsWildcardInterface(iface string) bool {
	for _, a := range wildcardAliases {
		if iface == a {
			return true
		}
	}
	return false
}

// RuleTemplate holds one reversible iptables rule as a paired add/remove
// invocation. The two command lines differ only in the action token (-I vs
// -D); everything else is identical by construction. The template carries no
// applied/not-applied state, the owner tracks that.
type RuleTemplate struct {
	runner CommandRunner
	tool   string
	pre    []string // arguments before the action token
	post   []string // arguments after the action token
}

// NewQueueRule builds the rule that redirects a chain's traffic into one
// NFQUEUE number:
//
//	iptables <action> <chain> -t <table> -j NFQUEUE --queue-num <n>
func NewQueueRule(runner CommandRunner, chain, table string, qno uint16) *RuleTemplate {
	return &RuleTemplate{
		runner: runner,
		tool:   ruleTool,
		post: []string{
			chain, "-t", table,
			"-j", "NFQUEUE", "--queue-num", strconv.Itoa(int(qno)),
		},
	}
}

// NewRedirectRule builds the nat PREROUTING rule that pulls an interface's
// nonlocal traffic into the local stack:
//
//	iptables -t nat <action> PREROUTING [-i <iface>] -j REDIRECT
//
// The interface clause is omitted for the wildcard aliases.
func NewRedirectRule(runner CommandRunner, iface string) *RuleTemplate {
	post := []string{"PREROUTING"}
	if !IsWildcardInterface(iface) {
		post = append(post, "-i", iface)
	}
	post = append(post, "-j", "REDIRECT")
	return &RuleTemplate{
		runner: runner,
		tool:   ruleTool,
		pre:    []string{"-t", "nat"},
		post:   post,
	}
}

func (r *RuleTemplate) args(action string) []string {
	args := make([]string, 0, len(r.pre)+1+len(r.post))
	args = append(args, r.pre...)
	args = append(args, action)
	args = append(args, r.post...)
	return args
}

// AddCommand returns the fully parameterized add command line. Pure.
func (r *RuleTemplate) AddCommand() string {
	return r.tool + " " + strings.Join(r.args(actionInsert), " ")
}

// RemoveCommand returns the fully parameterized remove command line. Pure.
func (r *RuleTemplate) RemoveCommand() string {
	return r.tool + " " + strings.Join(r.args(actionDelete), " ")
}

// Add installs the rule. A non-nil error means the external tool exited
// non-zero and the rule is not in place; no rollback is implied.
func (r *RuleTemplate) Add() error {
	return r.runner.Run(r.tool, r.args(actionInsert)...)
}

// Remove deletes the rule. Removing a rule that was never added fails with
// the tool's "rule not found" status; callers must check the return rather
// than assume idempotence.
func (r *RuleTemplate) Remove() error {
	return r.runner.Run(r.tool, r.args(actionDelete)...)
}
