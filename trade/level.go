package trade

// RiskLevel grades how stressed a decision is. Levels are ordered.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

func (l RiskLevel) rank() int {
	switch l {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	}
	return 0
}

// Escalate returns the worse of l and o.
func (l RiskLevel) Escalate(o RiskLevel) RiskLevel {
	if l == "" {
		l = RiskLow
	}
	if o.rank() > l.rank() {
		return o
	}
	return l
}
