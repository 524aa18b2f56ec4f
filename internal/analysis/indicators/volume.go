package indicators

import (
	"fmt"

	"signal-engine/internal/models"
)

// VolumeBaseline calculates the rolling average volume of the bars before each bar.
// The current bar is excluded so a spike does not inflate its own baseline.
type VolumeBaseline struct {
	period int
}

// NewVolumeBaseline creates a new VolumeBaseline indicator.
func NewVolumeBaseline(period int) *VolumeBaseline {
	return &VolumeBaseline{period: period}
}

func (v *VolumeBaseline) Name() string {
	return fmt.Sprintf("VolumeBaseline_%d", v.period)
}

func (v *VolumeBaseline) Period() int {
	return v.period + 1
}

func (v *VolumeBaseline) Calculate(bars []models.Bar) ([]float64, error) {
	if v.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) < v.Period() {
		return nil, ErrInsufficientData
	}

	n := len(bars)
	vols := volumes(bars)
	result := nanSeries(n)

	for i := v.period; i < n; i++ {
		baseline := mean(vols[i-v.period : i])
		if baseline > 0 {
			result[i] = baseline
		}
	}

	return result, nil
}
