// Package security flags risky commands before they are served or copied.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/aicmd-go/assets"
	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/pkg/filesystem"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// Guardrail implements the SecurityService port.
type Guardrail struct {
	patterns          []compiledPattern
	enabled           bool
	forceConfirmation bool
	disableAutoCopy   bool
}

type compiledPattern struct {
	re   *regexp.Regexp
	rule DangerPattern
}

// DangerPattern describes a regex-based guardrail rule.
type DangerPattern struct {
	Pattern string `yaml:"pattern"`
	Level   string `yaml:"level"`
	Message string `yaml:"message"`
	Action  string `yaml:"action"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules struct {
		DangerPatterns []DangerPattern `yaml:"danger_patterns"`
	} `yaml:"rules"`
}

// Option customises a Guardrail.
type Option func(*Guardrail)

// WithPolicy mirrors the security section of the config file.
func WithPolicy(settings domain.SecuritySettings) Option {
	return func(g *Guardrail) {
		g.enabled = settings.Enabled
		g.forceConfirmation = settings.ForceConfirmationOnDanger
		g.disableAutoCopy = settings.DisableAutoCopyOnDanger
	}
}

// NewGuardrail loads rules from path, falling back to the embedded defaults
// when the file is missing or declares no patterns.
func NewGuardrail(path string, opts ...Option) (*Guardrail, error) {
	rules, err := loadRules(path)
	if err != nil {
		return nil, err
	}
	return build(rules, opts)
}

// NewDefaultGuardrail uses only the embedded rules.
func NewDefaultGuardrail(opts ...Option) (*Guardrail, error) {
	rules, err := defaultRules()
	if err != nil {
		return nil, err
	}
	return build(rules, opts)
}

func build(rules RulesFile, opts []Option) (*Guardrail, error) {
	g := &Guardrail{enabled: true, forceConfirmation: true, disableAutoCopy: true}
	for _, opt := range opts {
		opt(g)
	}
	for _, pattern := range rules.Rules.DangerPatterns {
		re, err := regexp.Compile("(?i)" + pattern.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile guardrail pattern %q: %w", pattern.Pattern, err)
		}
		g.patterns = append(g.patterns, compiledPattern{re: re, rule: pattern})
	}
	return g, nil
}

// RuleCount returns the number of loaded patterns.
func (g *Guardrail) RuleCount() int {
	return len(g.patterns)
}

// Evaluate implements ports.SecurityService. The most severe matching rule
// sets the level and action; every match adds its message.
func (g *Guardrail) Evaluate(command string) (domain.SafetySignal, error) {
	if g == nil {
		return domain.SafetySignal{}, errors.New("guardrail nil")
	}
	signal := domain.SafetySignal{Level: domain.RiskSafe, Action: domain.ActionAllow}
	if !g.enabled || strings.TrimSpace(command) == "" {
		return signal, nil
	}

	matched := false
	apply := func(rule DangerPattern) {
		matched = true
		level := parseRiskLevel(rule.Level)
		if level.Severity() > signal.Level.Severity() {
			signal.Level = level
			signal.Action = parseAction(rule.Action, level)
		}
		if rule.Message != "" {
			signal.Warnings = appendUnique(signal.Warnings, rule.Message)
		}
		signal.MatchedRules = append(signal.MatchedRules, rule.Pattern)
	}

	for _, pattern := range g.patterns {
		if pattern.re.MatchString(command) {
			apply(pattern.rule)
		}
	}

	inspection := inspectTokens(command)
	for _, path := range inspection.protectedDeletes {
		apply(DangerPattern{
			Pattern: "protected-path:" + path,
			Level:   string(domain.RiskCritical),
			Message: fmt.Sprintf("Recursive delete of protected path %s", path),
			Action:  string(domain.ActionConfirm),
		})
	}
	if inspection.elevated {
		signal.Warnings = appendUnique(signal.Warnings, "Runs with elevated privileges")
	}

	if !matched {
		return signal, nil
	}
	if signal.Level == domain.RiskSafe {
		signal.Level = domain.RiskWarning
		signal.Action = domain.ActionWarn
	}
	signal.Blocked = signal.Action == domain.ActionBlock
	signal.ForceConfirmation = g.forceConfirmation || signal.Action == domain.ActionConfirm || signal.Blocked
	signal.DisableAutoCopy = g.disableAutoCopy || signal.Blocked
	return signal, nil
}

type tokenInspection struct {
	elevated         bool
	protectedDeletes []string
}

var protectedPaths = map[string]bool{
	"/": true, "/*": true, "~": true, "$HOME": true, "/root": true, "/home": true,
	"/etc": true, "/usr": true, "/bin": true, "/sbin": true, "/lib": true, "/boot": true,
	"/var": true, "/opt": true, "/dev": true, "/proc": true, "/sys": true,
	"/System": true, "/Library": true, "/Applications": true, "/Users": true,
}

var commandSeparators = map[string]bool{";": true, "&&": true, "||": true, "|": true, "&": true}

// inspectTokens walks the shell words of command looking for privilege
// escalation and recursive deletes aimed at system directories.
func inspectTokens(command string) tokenInspection {
	var result tokenInspection
	words, err := shlex.Split(command)
	if err != nil {
		words = strings.Fields(command)
	}

	atStart := true
	inRm, recursive := false, false
	var targets []string
	flush := func() {
		if inRm && recursive {
			for _, target := range targets {
				result.protectedDeletes = appendUnique(result.protectedDeletes, target)
			}
		}
		inRm, recursive, targets = false, false, nil
	}

	for _, word := range words {
		trailingSep := strings.HasSuffix(word, ";") && word != ";"
		word = strings.TrimSuffix(word, ";")
		if commandSeparators[word] {
			flush()
			atStart = true
			continue
		}

		switch {
		case atStart && (word == "sudo" || word == "doas"):
			result.elevated = true
		case atStart:
			atStart = false
			inRm = filepath.Base(word) == "rm"
		case inRm && strings.HasPrefix(word, "--"):
			if word == "--recursive" {
				recursive = true
			}
		case inRm && strings.HasPrefix(word, "-") && len(word) > 1:
			if strings.ContainsAny(word[1:], "rR") {
				recursive = true
			}
		case inRm:
			if target := normalizeTarget(word); protectedPaths[target] {
				targets = append(targets, target)
			}
		}

		if trailingSep {
			flush()
			atStart = true
		}
	}
	flush()
	return result
}

func normalizeTarget(path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}

func loadRules(path string) (RulesFile, error) {
	var rules RulesFile
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		return defaultRules()
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RulesFile{}, fmt.Errorf("parse guardrail rules: %w", err)
	}
	if len(rules.Rules.DangerPatterns) == 0 {
		return defaultRules()
	}
	return rules, nil
}

func defaultRules() (RulesFile, error) {
	var rules RulesFile
	if err := yaml.Unmarshal(assets.DefaultGuardrailYAML, &rules); err != nil {
		return RulesFile{}, fmt.Errorf("parse default guardrail rules: %w", err)
	}
	return rules, nil
}

// parseRiskLevel also accepts the low/medium/high vocabulary of older rule files.
func parseRiskLevel(value string) domain.RiskLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "warning", "low", "medium":
		return domain.RiskWarning
	case "dangerous", "high":
		return domain.RiskDangerous
	case "critical":
		return domain.RiskCritical
	default:
		return domain.RiskWarning
	}
}

func parseAction(value string, level domain.RiskLevel) domain.GuardrailAction {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "allow":
		return domain.ActionAllow
	case "warn", "preview_only":
		return domain.ActionWarn
	case "confirm", "simple_confirm", "explicit_confirm":
		return domain.ActionConfirm
	case "block":
		return domain.ActionBlock
	default:
		if level.Severity() >= domain.RiskDangerous.Severity() {
			return domain.ActionConfirm
		}
		return domain.ActionWarn
	}
}

func expandPath(path string) string {
	home := filesystem.UserHomeDir()
	if path == "" {
		return filepath.Join(home, domain.AppDirName, domain.GuardrailFileName)
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "~") {
		return filesystem.ExpandHome(path)
	}
	return filepath.Join(home, domain.AppDirName, path)
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

var _ ports.SecurityService = (*Guardrail)(nil)
