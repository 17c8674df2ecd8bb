package advisor

import "strings"

// Suggestions proposes follow-up questions from keywords in the user's message.
func Suggestions(message string) []string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "portfolio"), strings.Contains(msg, "analyze"):
		return []string{
			"Should I rebalance my portfolio?",
			"Which sectors are overweight?",
			"Best stocks to add for diversification?",
		}
	case strings.Contains(msg, "market"), strings.Contains(msg, "nifty"), strings.Contains(msg, "sensex"):
		return []string{
			"Is this a good time to invest?",
			"Market outlook for next quarter?",
			"Best defensive stocks now?",
		}
	case strings.Contains(msg, "mutual fund"), strings.Contains(msg, "sip"):
		return []string{
			"Best SIP amount for my salary?",
			"Large cap vs mid cap funds?",
			"Tax saving mutual fund options?",
		}
	}
	return []string{
		"Analyze my risk profile",
		"Best investment strategy?",
		"How to start investing?",
	}
}
