package scoring

import (
	"fmt"
	"sort"
	"strings"

	"signal-engine/internal/models"
)

// FilterType represents the type of screener filter.
type FilterType string

const (
	FilterRSI            FilterType = "rsi"
	FilterPrice          FilterType = "price"
	FilterCompositeScore FilterType = "score"
	FilterMACD           FilterType = "macd"
	FilterSuperTrend     FilterType = "supertrend"
	FilterSMA200Distance FilterType = "sma200_distance"
	FilterVolumeRatio    FilterType = "volume_ratio"
	FilterPercentB       FilterType = "percent_b"
)

// FilterOperator represents the comparison operator for a filter.
type FilterOperator string

const (
	OpGreaterThan      FilterOperator = ">"
	OpLessThan         FilterOperator = "<"
	OpGreaterThanEqual FilterOperator = ">="
	OpLessThanEqual    FilterOperator = "<="
	OpEqual            FilterOperator = "="
	OpNotEqual         FilterOperator = "!="
)

// Filter represents a single screener filter condition.
type Filter struct {
	Type     FilterType
	Operator FilterOperator
	Value    float64
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %g", f.Type, f.Operator, f.Value)
}

// ParseFilter parses "type op value", for example "rsi < 30".
func ParseFilter(expr string) (Filter, error) {
	fields := strings.Fields(expr)
	if len(fields) != 3 {
		return Filter{}, fmt.Errorf("filter %q: want \"type op value\"", expr)
	}
	var value float64
	if _, err := fmt.Sscanf(fields[2], "%g", &value); err != nil {
		return Filter{}, fmt.Errorf("filter %q: bad value: %w", expr, err)
	}
	f := Filter{Type: FilterType(fields[0]), Operator: FilterOperator(fields[1]), Value: value}
	if _, ok := filterValues[f.Type]; !ok {
		return Filter{}, fmt.Errorf("filter %q: unknown type %s", expr, f.Type)
	}
	switch f.Operator {
	case OpGreaterThan, OpLessThan, OpGreaterThanEqual, OpLessThanEqual, OpEqual, OpNotEqual:
	default:
		return Filter{}, fmt.Errorf("filter %q: unknown operator %s", expr, f.Operator)
	}
	return f, nil
}

// ScreenerResult represents the result of screening a single symbol.
type ScreenerResult struct {
	Symbol  string
	Score   int
	Label   models.SignalLabel
	Matches map[string]float64 // filter -> actual value
}

// filterValues extracts the value a filter compares. SuperTrend is 1 bullish, -1 bearish.
var filterValues = map[FilterType]func(models.TechnicalRecord) models.Float{
	FilterRSI:   func(r models.TechnicalRecord) models.Float { return r.Snapshot.RSI },
	FilterPrice: func(r models.TechnicalRecord) models.Float { return models.Some(r.Snapshot.Close) },
	FilterCompositeScore: func(r models.TechnicalRecord) models.Float {
		return models.Some(float64(r.Composite.Score))
	},
	FilterMACD: func(r models.TechnicalRecord) models.Float { return r.Snapshot.MACD.Histogram },
	FilterSuperTrend: func(r models.TechnicalRecord) models.Float {
		switch r.Snapshot.Supertrend.Direction {
		case models.Bullish:
			return models.Some(1)
		case models.Bearish:
			return models.Some(-1)
		}
		return models.None()
	},
	FilterSMA200Distance: func(r models.TechnicalRecord) models.Float {
		sma, ok := r.Snapshot.MovingAverages.SMA200.Get()
		if !ok || sma == 0 {
			return models.None()
		}
		return models.Some((r.Snapshot.Close - sma) / sma * 100)
	},
	FilterPercentB: func(r models.TechnicalRecord) models.Float { return r.Snapshot.Bollinger.PercentB },
	FilterVolumeRatio: func(r models.TechnicalRecord) models.Float {
		base, ok := r.Snapshot.VolumeBaseline.Get()
		if !ok || base == 0 {
			return models.None()
		}
		return models.Some(float64(r.Snapshot.Volume) / base)
	},
}

// Screener filters technical records. All filters are combined with AND logic;
// a record missing a filtered value does not pass.
type Screener struct{}

// NewScreener creates a new screener.
func NewScreener() *Screener {
	return &Screener{}
}

// Screen returns the passing records sorted by composite score, highest first.
func (s *Screener) Screen(records []models.TechnicalRecord, filters []Filter) []ScreenerResult {
	results := make([]ScreenerResult, 0, len(records))
	for _, r := range records {
		if result, ok := s.screenRecord(r, filters); ok {
			results = append(results, result)
		}
	}
	sortResultsByScore(results)
	return results
}

func (s *Screener) screenRecord(r models.TechnicalRecord, filters []Filter) (ScreenerResult, bool) {
	result := ScreenerResult{
		Symbol:  r.Snapshot.Symbol,
		Score:   r.Composite.Score,
		Label:   r.Composite.Label,
		Matches: make(map[string]float64, len(filters)),
	}
	for _, f := range filters {
		get, ok := filterValues[f.Type]
		if !ok {
			return result, false
		}
		v, ok := get(r).Get()
		if !ok || !compareValues(v, f.Operator, f.Value) {
			return result, false
		}
		result.Matches[f.String()] = v
	}
	return result, true
}

// compareValues compares actual and expected values using the operator.
func compareValues(actual float64, op FilterOperator, expected float64) bool {
	switch op {
	case OpGreaterThan:
		return actual > expected
	case OpLessThan:
		return actual < expected
	case OpGreaterThanEqual:
		return actual >= expected
	case OpLessThanEqual:
		return actual <= expected
	case OpEqual:
		return actual == expected
	case OpNotEqual:
		return actual != expected
	}
	return false
}

func sortResultsByScore(results []ScreenerResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Symbol < results[j].Symbol
	})
}

// PresetScreener is a named set of filters.
type PresetScreener struct {
	Name        string
	Description string
	Filters     []Filter
}

// GetPresetScreeners returns all preset screeners.
func GetPresetScreeners() []PresetScreener {
	return []PresetScreener{
		{
			Name:        "momentum",
			Description: "Uptrend above the 200-day average with a positive MACD histogram",
			Filters: []Filter{
				{Type: FilterSMA200Distance, Operator: OpGreaterThan, Value: 0},
				{Type: FilterMACD, Operator: OpGreaterThan, Value: 0},
				{Type: FilterSuperTrend, Operator: OpEqual, Value: 1},
			},
		},
		{
			Name:        "oversold",
			Description: "RSI below 30",
			Filters:     []Filter{{Type: FilterRSI, Operator: OpLessThan, Value: DefaultRSIOversold}},
		},
		{
			Name:        "overbought",
			Description: "RSI above 70",
			Filters:     []Filter{{Type: FilterRSI, Operator: OpGreaterThan, Value: DefaultRSIOverbought}},
		},
		{
			Name:        "volume_breakout",
			Description: "Volume at least twice its baseline with a BUY composite",
			Filters: []Filter{
				{Type: FilterVolumeRatio, Operator: OpGreaterThanEqual, Value: 2},
				{Type: FilterCompositeScore, Operator: OpGreaterThanEqual, Value: BuyScore},
			},
		},
		{
			Name:        "strong_buy",
			Description: "Composite score at STRONG_BUY",
			Filters:     []Filter{{Type: FilterCompositeScore, Operator: OpGreaterThanEqual, Value: StrongBuyScore}},
		},
	}
}

// GetPresetByName returns a preset screener by name.
func GetPresetByName(name string) (*PresetScreener, error) {
	for _, p := range GetPresetScreeners() {
		if p.Name == name {
			preset := p
			return &preset, nil
		}
	}
	return nil, fmt.Errorf("preset screener not found: %s", name)
}
