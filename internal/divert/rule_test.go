package divert

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onRun(m *MockCommandRunner, err error, args ...string) {
	call := make([]interface{}, 0, len(args)+1)
	call = append(call, ruleTool)
	for _, a := range args {
		call = append(call, a)
	}
	m.On("Run", call...).Return(err)
}

func TestQueueRuleCommands(t *testing.T) {
	rule := NewQueueRule(nil, "INPUT", "mangle", 7)

	assert.Equal(t, "iptables -I INPUT -t mangle -j NFQUEUE --queue-num 7", rule.AddCommand())
	assert.Equal(t, "iptables -D INPUT -t mangle -j NFQUEUE --queue-num 7", rule.RemoveCommand())
}

func TestRuleCommandsDifferOnlyInAction(t *testing.T) {
	rules := []*RuleTemplate{
		NewQueueRule(nil, "OUTPUT", "mangle", 42),
		NewRedirectRule(nil, "eth0"),
		NewRedirectRule(nil, "any"),
	}

	for _, rule := range rules {
		add := strings.Fields(rule.AddCommand())
		remove := strings.Fields(rule.RemoveCommand())
		require.Equal(t, len(add), len(remove))

		var diff []int
		for i := range add {
			if add[i] != remove[i] {
				diff = append(diff, i)
			}
		}
		require.Len(t, diff, 1, "add and remove must differ in exactly one token: %s", rule.AddCommand())
		assert.Equal(t, actionInsert, add[diff[0]])
		assert.Equal(t, actionDelete, remove[diff[0]])
	}
}

func TestRedirectRuleCommands(t *testing.T) {
	rule := NewRedirectRule(nil, "eth0")
	assert.Equal(t, "iptables -t nat -I PREROUTING -i eth0 -j REDIRECT", rule.AddCommand())
	assert.Equal(t, "iptables -t nat -D PREROUTING -i eth0 -j REDIRECT", rule.RemoveCommand())
}

func TestRedirectRuleWildcardOmitsInterface(t *testing.T) {
	for _, alias := range []string{"any", "*"} {
		rule := NewRedirectRule(nil, alias)
		assert.Equal(t, "iptables -t nat -I PREROUTING -j REDIRECT", rule.AddCommand())
		assert.NotContains(t, rule.AddCommand(), "-i")
	}
}

func TestIsWildcardInterface(t *testing.T) {
	assert.True(t, IsWildcardInterface("any"))
	assert.True(t, IsWildcardInterface("*"))
	assert.False(t, IsWildcardInterface("eth0"))
	assert.False(t, IsWildcardInterface(""))
}

func TestRuleAddRemoveRunTool(t *testing.T) {
	runner := new(MockCommandRunner)
	onRun(runner, nil, "-I", "INPUT", "-t", "mangle", "-j", "NFQUEUE", "--queue-num", "3")
	onRun(runner, nil, "-D", "INPUT", "-t", "mangle", "-j", "NFQUEUE", "--queue-num", "3")

	rule := NewQueueRule(runner, "INPUT", "mangle", 3)
	require.NoError(t, rule.Add())
	require.NoError(t, rule.Remove())
	runner.AssertExpectations(t)
}

func TestRuleAddPropagatesError(t *testing.T) {
	runner := new(MockCommandRunner)
	bang := errors.New("iptables: exit status 3")
	onRun(runner, bang, "-I", "OUTPUT", "-t", "mangle", "-j", "NFQUEUE", "--queue-num", "9")

	rule := NewQueueRule(runner, "OUTPUT", "mangle", 9)
	err := rule.Add()
	require.Error(t, err)
	assert.ErrorIs(t, err, bang)
}

func TestRuleRemovePropagatesError(t *testing.T) {
	runner := new(MockCommandRunner)
	bang := errors.New("iptables: exit status 1")
	onRun(runner, bang, "-t", "nat", "-D", "PREROUTING", "-i", "eth0", "-j", "REDIRECT")

	rule := NewRedirectRule(runner, "eth0")
	err := rule.Remove()
	require.Error(t, err)
	assert.ErrorIs(t, err, bang)
}
