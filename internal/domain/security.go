package domain

// RiskLevel enumerates guardrail outcomes.
type RiskLevel string

const (
	RiskSafe      RiskLevel = "safe"
	RiskWarning   RiskLevel = "warning"
	RiskDangerous RiskLevel = "dangerous"
	RiskCritical  RiskLevel = "critical"
)

// Severity orders risk levels so the most severe match wins.
func (l RiskLevel) Severity() int {
	switch l {
	case RiskWarning:
		return 1
	case RiskDangerous:
		return 2
	case RiskCritical:
		return 3
	default:
		return 0
	}
}

// GuardrailAction describes how the resolution policy must treat a risky command.
type GuardrailAction string

const (
	ActionAllow   GuardrailAction = "allow"
	ActionWarn    GuardrailAction = "warn"
	ActionConfirm GuardrailAction = "confirm"
	ActionBlock   GuardrailAction = "block"
)

// SafetySignal is what the guardrail reports for a candidate command.
type SafetySignal struct {
	Level             RiskLevel
	Action            GuardrailAction
	ForceConfirmation bool
	DisableAutoCopy   bool
	Blocked           bool
	Warnings          []string
	MatchedRules      []string
}

// Dangerous reports whether the command matched a dangerous or critical rule.
func (s SafetySignal) Dangerous() bool {
	return s.Level.Severity() >= RiskDangerous.Severity()
}
