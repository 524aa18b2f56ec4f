package trading

import (
	"fmt"
	"strings"

	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/models"
)

// ParseCriteria turns criterion names into exit flags. custom_price is not a
// flag and is rejected here; it is enabled by setting a custom price.
func ParseCriteria(names []string) (models.ExitCriteria, error) {
	var c models.ExitCriteria
	for _, raw := range names {
		name := Criterion(strings.ToLower(strings.TrimSpace(raw)))
		switch name {
		case CriterionStopLoss:
			c.StopLoss = true
		case CriterionTarget:
			c.Target = true
		case CriterionBelowEMA50:
			c.BelowEMA50 = true
		case CriterionBelowSMA100:
			c.BelowSMA100 = true
		case CriterionBelowSMA200:
			c.BelowSMA200 = true
		case CriterionSupertrendBearish:
			c.SupertrendBearish = true
		default:
			return models.ExitCriteria{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownCriterion, raw)
		}
	}
	return c, nil
}

// Enabled lists the criteria switched on, in evaluation order.
func Enabled(c models.ExitCriteria) []Criterion {
	flags := map[Criterion]bool{
		CriterionStopLoss:          c.StopLoss,
		CriterionTarget:            c.Target,
		CriterionBelowEMA50:        c.BelowEMA50,
		CriterionBelowSMA100:       c.BelowSMA100,
		CriterionBelowSMA200:       c.BelowSMA200,
		CriterionSupertrendBearish: c.SupertrendBearish,
		CriterionCustomPrice:       c.CustomPrice.Valid(),
	}
	var out []Criterion
	for _, name := range Criteria {
		if flags[name] {
			out = append(out, name)
		}
	}
	return out
}
