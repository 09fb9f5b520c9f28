package services

import (
	intconfig "stayhub/internal/config"
)

// Split is the three-way division of a booking's gross amount. Shares are
// minor units and always sum exactly to the input amount.
type Split struct {
	Platform int64
	Agent    int64
	Host     int64
}

// Total returns the reassembled gross amount.
func (s Split) Total() int64 {
	return s.Platform + s.Agent + s.Host
}

// SplitAmount computes platform/agent/host shares from the gross amount.
// Each percentage share rounds half-up to the minor unit; any rounding
// residual lands on the host so the shares reassemble the amount exactly.
// Without an agent the agent percentage is folded into the host share.
func SplitAmount(amount int64, hasAgent bool, rule intconfig.SplitRule) Split {
	if amount <= 0 {
		return Split{}
	}

	platform := roundShare(amount, rule.PlatformPct)
	var agent int64
	if hasAgent {
		agent = roundShare(amount, rule.AgentPct)
	}
	host := amount - platform - agent

	return Split{Platform: platform, Agent: agent, Host: host}
}

// roundShare computes amount*pct/100 rounded half-up.
func roundShare(amount, pct int64) int64 {
	if pct <= 0 {
		return 0
	}
	return (amount*pct + 50) / 100
}
