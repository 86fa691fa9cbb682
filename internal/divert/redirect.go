package divert

import (
	"fmt"
	"strings"

	"grimm.is/shunt/internal/logging"
	"grimm.is/shunt/internal/metrics"
	"grimm.is/shunt/internal/netutil"
)

// hostInterfaces enumerates host interface names; a variable so tests can
// substitute a fixed set.
var hostInterfaces = netutil.Interfaces

// RedirectNonlocal applies one nat PREROUTING REDIRECT rule per named
// interface so traffic to nonlocal addresses is pulled into the local stack.
//
// Every name is validated against the host's interfaces (plus the wildcard
// aliases) before anything is applied: iptables does not err for nonexistent
// interfaces, so an unchecked typo would silently redirect nothing. If any
// name is unknown, all of them are reported and no rule is installed. On a
// mid-sequence add failure, the rules applied so far are returned alongside
// the error for the caller to undo with RemoveRules.
func RedirectNonlocal(runner CommandRunner, ifaces []string) ([]*RuleTemplate, error) {
	log := logging.WithComponent("divert")

	local, err := hostInterfaces()
	if err != nil {
		log.Error("failed to enumerate interfaces", "error", err)
		return nil, fmt.Errorf("enumerate interfaces: %w", err)
	}

	acceptable := make(map[string]bool, len(local)+len(wildcardAliases))
	for _, name := range local {
		acceptable[name] = true
	}
	for _, a := range wildcardAliases {
		acceptable[a] = true
	}

	var unknown []string
	for _, iface := range ifaces {
		if !acceptable[iface] {
			log.Error("interface not found for nonlocal packet redirection",
				"interface", iface, "known", strings.Join(local, ","))
			unknown = append(unknown, iface)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown interfaces: %s", strings.Join(unknown, ", "))
	}

	applied := make([]*RuleTemplate, 0, len(ifaces))
	for _, iface := range ifaces {
		rule := NewRedirectRule(runner, iface)
		if err := rule.Add(); err != nil {
			log.Error("failed to create PREROUTING/REDIRECT rule, stopping",
				"interface", iface, "error", err)
			return applied, fmt.Errorf("redirect rule for %s: %w", iface, err)
		}
		applied = append(applied, rule)
		metrics.Get().RedirectRules.Inc()
	}
	return applied, nil
}

// RemoveRules removes each previously applied rule, checking every exit
// status rather than assuming idempotence, and returns the rules whose
// removal failed.
func RemoveRules(rules []*RuleTemplate) []*RuleTemplate {
	log := logging.WithComponent("divert")

	var failed []*RuleTemplate
	for _, r := range rules {
		if err := r.Remove(); err != nil {
			log.Error("failed to remove rule", "cmd", r.RemoveCommand(), "error", err)
			failed = append(failed, r)
			continue
		}
		metrics.Get().RedirectRules.Dec()
	}
	return failed
}
