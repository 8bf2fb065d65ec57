// Package confidence turns accumulated confirm/reject feedback and record age
// into a confidence score in [0,1].
//
// The score is a logistic function of a latent score
//
//	S = s0 + confirmations*alpha - rejections*beta
//	D = 1 / (1 + e^(-k*S))
//
// multiplied by an exponential time decay 0.5^(days/half_life) floored at
// min_decay. Parameters must satisfy beta > alpha > 0 so that one rejection
// outweighs one confirmation.
package confidence

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// ErrInvalidParams is returned by NewModel for parameters the model cannot use.
var ErrInvalidParams = errors.New("invalid confidence parameters")

// saturationLimit bounds |k*S| before exp is evaluated.
const saturationLimit = 500.0

var timestampLayouts = []string{
	domain.StoreTimestampFormat,
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC3339Nano,
}

// Params configures the model.
type Params struct {
	Alpha        float64 // per-confirmation boost
	Beta         float64 // per-rejection penalty
	InitialBias  float64 // s0
	Sensitivity  float64 // k
	HalfLifeDays float64
	MinDecay     float64
}

// DefaultParams returns α=0.2, β=0.6, s0=0.3, k=0.8, 30 day half-life, 0.1 floor.
func DefaultParams() Params {
	return Params{
		Alpha:        domain.DefaultPositiveWeight,
		Beta:         domain.DefaultNegativeWeight,
		InitialBias:  domain.DefaultInitialBias,
		Sensitivity:  domain.DefaultSensitivity,
		HalfLifeDays: domain.DefaultHalfLifeDays,
		MinDecay:     domain.DefaultMinDecay,
	}
}

// ParamsFromConfig maps the confidence section of the config file. A zero
// initial_bias is the neutral prior; the other optional fields keep their
// defaults when left at zero.
func ParamsFromConfig(cfg domain.ConfidenceSettings) Params {
	p := DefaultParams()
	p.Alpha = cfg.PositiveWeight
	p.Beta = cfg.NegativeWeight
	p.InitialBias = cfg.InitialBias
	if cfg.Sensitivity != 0 {
		p.Sensitivity = cfg.Sensitivity
	}
	if cfg.HalfLifeDays != 0 {
		p.HalfLifeDays = cfg.HalfLifeDays
	}
	if cfg.MinDecay != 0 {
		p.MinDecay = cfg.MinDecay
	}
	return p
}

// Validate enforces beta > alpha > 0 and sane decay settings.
func (p Params) Validate() error {
	if !(p.Beta > p.Alpha && p.Alpha > 0) {
		return fmt.Errorf("%w: need negative_weight > positive_weight > 0, got %.3f and %.3f", ErrInvalidParams, p.Beta, p.Alpha)
	}
	if p.Sensitivity <= 0 {
		return fmt.Errorf("%w: sensitivity must be > 0, got %.3f", ErrInvalidParams, p.Sensitivity)
	}
	if p.HalfLifeDays <= 0 {
		return fmt.Errorf("%w: half_life_days must be > 0, got %.3f", ErrInvalidParams, p.HalfLifeDays)
	}
	if p.MinDecay <= 0 || p.MinDecay > 1 {
		return fmt.Errorf("%w: min_decay must be in (0,1], got %.3f", ErrInvalidParams, p.MinDecay)
	}
	return nil
}

// Option customises a Model.
type Option func(*Model)

// WithClock overrides the time source used for decay.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithLogger reports unparsable timestamps.
func WithLogger(logger ports.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// Model scores cache records. It is immutable and safe for concurrent use.
type Model struct {
	params Params
	now    func() time.Time
	logger ports.Logger
}

// NewModel validates params and builds a model.
func NewModel(params Params, opts ...Option) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	m := &Model{params: params, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Params returns the model parameters.
func (m *Model) Params() Params {
	return m.params
}

// Score returns the decayed confidence for the given feedback counts and
// timestamps, clamped to [0,1].
func (m *Model) Score(confirmations, rejections int, createdAt, lastUsed string) float64 {
	return clamp(m.Latent(confirmations, rejections) * m.Decay(createdAt, lastUsed))
}

// ScoreRecord is Score applied to a stored record.
func (m *Model) ScoreRecord(record domain.CacheRecord) float64 {
	return m.Score(record.ConfirmationCount, record.RejectionCount, record.CreatedAt, record.LastUsed)
}

// Latent returns the pre-decay logistic confidence.
func (m *Model) Latent(confirmations, rejections int) float64 {
	if confirmations < 0 {
		confirmations = 0
	}
	if rejections < 0 {
		rejections = 0
	}
	p := m.params
	s := p.InitialBias + float64(confirmations)*p.Alpha - float64(rejections)*p.Beta
	ks := p.Sensitivity * s
	switch {
	case ks > saturationLimit:
		return 1.0
	case ks < -saturationLimit:
		return 0.0
	}
	return 1.0 / (1.0 + math.Exp(-ks))
}

// Decay returns the time multiplier for the most recent of lastUsed and
// createdAt. Missing or unparsable timestamps yield 1.0.
func (m *Model) Decay(createdAt, lastUsed string) float64 {
	var reference time.Time
	for _, raw := range []string{lastUsed, createdAt} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		ts, err := ParseTimestamp(raw)
		if err != nil {
			m.warn("unparsable cache timestamp", map[string]interface{}{"value": raw, "error": err.Error()})
			continue
		}
		if ts.After(reference) {
			reference = ts
		}
	}
	if reference.IsZero() {
		return 1.0
	}

	days := math.Floor(m.now().UTC().Sub(reference).Hours() / 24)
	if days < 0 {
		days = 0
	}
	factor := math.Pow(0.5, days/m.params.HalfLifeDays)
	if factor < m.params.MinDecay {
		factor = m.params.MinDecay
	}
	if factor > 1 {
		factor = 1
	}
	return factor
}

// ParseTimestamp accepts the layouts written by the store and by older databases.
// Timestamps without a zone are read as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

func (m *Model) warn(msg string, fields map[string]interface{}) {
	if m.logger != nil {
		m.logger.Warn(msg, fields)
	}
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
