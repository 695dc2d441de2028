package rollout

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Context carries the caller identity used for percentage and allow-list
// flags. An empty UserID fails safe: percentage and allow-list flags
// evaluate to disabled.
type Context struct {
	UserID string
}

// Source resolves raw flag values by name. ok is false when the flag is not
// configured in this source.
type Source interface {
	Get(ctx context.Context, name string) (value string, ok bool, err error)
}

// Evaluation reasons, surfaced on decisions for diagnostics and metrics.
const (
	ReasonUnset      = "unset"
	ReasonDisabled   = "disabled"
	ReasonEnabledAll = "enabled_all"
	ReasonPercentage = "percentage"
	ReasonAllowList  = "allow_list"
	ReasonNoUser     = "no_user"
	ReasonInvalid    = "invalid"
)

// Decision records how a flag evaluated for one caller.
type Decision struct {
	Flag    string
	Raw     string
	Enabled bool
	Reason  string
}

// Evaluator applies the progressive-rollout rules: unset and explicit
// false/0/off disable, true/1/on enables for everyone, an integer 0-100 is a
// stable percentage rollout keyed on the user identifier, and anything else
// is treated as a comma-separated identifier allow-list. Unrecognised values
// disable the flag and are logged for operators, never surfaced to callers.
type Evaluator struct {
	Sources []Source
	Logger  zerolog.Logger
}

// Enabled reports whether the named flag is on for the caller.
func (e *Evaluator) Enabled(ctx context.Context, flag string, rc Context) bool {
	return e.Decide(ctx, flag, rc).Enabled
}

// Decide evaluates the named flag for the caller and reports how the
// decision was reached.
func (e *Evaluator) Decide(ctx context.Context, flag string, rc Context) Decision {
	raw, ok := e.lookup(ctx, flag)
	if !ok {
		return Decision{Flag: flag, Reason: ReasonUnset}
	}
	d := Decision{Flag: flag, Raw: raw}
	value := strings.ToLower(strings.TrimSpace(raw))

	switch value {
	case "false", "0", "off":
		d.Reason = ReasonDisabled
		return d
	case "true", "1", "on":
		d.Enabled = true
		d.Reason = ReasonEnabledAll
		return d
	}

	if pct, err := strconv.Atoi(value); err == nil && pct >= 0 && pct <= 100 {
		if rc.UserID == "" {
			d.Reason = ReasonNoUser
			return d
		}
		d.Enabled = Bucket(rc.UserID) <= pct
		d.Reason = ReasonPercentage
		return d
	}

	ids := splitIdentifiers(value)
	if len(ids) > 0 {
		if rc.UserID == "" {
			d.Reason = ReasonNoUser
			return d
		}
		d.Reason = ReasonAllowList
		for _, id := range ids {
			if strings.EqualFold(id, rc.UserID) {
				d.Enabled = true
				return d
			}
		}
		return d
	}

	e.Logger.Warn().
		Str("flag", flag).
		Str("value", raw).
		Msg("unrecognised rollout flag value, treating as disabled")
	d.Reason = ReasonInvalid
	return d
}

func (e *Evaluator) lookup(ctx context.Context, flag string) (string, bool) {
	for _, src := range e.Sources {
		if src == nil {
			continue
		}
		value, ok, err := src.Get(ctx, flag)
		if err != nil {
			// A broken source must not flip features on; fall through to
			// the next source and leave a trace for operators.
			e.Logger.Warn().Err(err).Str("flag", flag).Msg("rollout flag source error")
			continue
		}
		if ok && strings.TrimSpace(value) != "" {
			return value, true
		}
	}
	return "", false
}

// Bucket maps a user identifier onto a stable 1-100 bucket. FNV-1a keeps the
// assignment deterministic across process restarts so a user's enablement
// never flickers.
func Bucket(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32()%100) + 1
}

func splitIdentifiers(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
