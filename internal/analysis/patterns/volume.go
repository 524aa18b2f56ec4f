package patterns

import (
	"signal-engine/internal/models"
)

// DefaultSpikeMultiple is the volume multiple of baseline that counts as a spike.
const DefaultSpikeMultiple = 2.0

// VolumeSpikeDetector compares today's volume to its rolling baseline.
type VolumeSpikeDetector struct {
	multiple float64
}

// NewVolumeSpikeDetector creates a detector. A non-positive multiple uses the default.
func NewVolumeSpikeDetector(multiple float64) *VolumeSpikeDetector {
	if multiple <= 0 {
		multiple = DefaultSpikeMultiple
	}
	return &VolumeSpikeDetector{multiple: multiple}
}

func (d *VolumeSpikeDetector) Name() string {
	return "VolumeSpikeDetector"
}

// Detect checks today's snapshot, using the previous close for the price change.
func (d *VolumeSpikeDetector) Detect(pair models.SnapshotPair) (models.VolumeSpike, bool) {
	prevClose := models.None()
	if pair.Previous != nil {
		prevClose = models.Some(pair.Previous.Close)
	}
	return d.Check(pair.Today, prevClose)
}

// Check emits a spike when volume exceeds baseline times the multiple.
// An absent or zero baseline never emits.
func (d *VolumeSpikeDetector) Check(today models.IndicatorSnapshot, prevClose models.Float) (models.VolumeSpike, bool) {
	baseline, ok := today.VolumeBaseline.Get()
	if !ok || baseline <= 0 {
		return models.VolumeSpike{}, false
	}

	volume := float64(today.Volume)
	if volume <= baseline*d.multiple {
		return models.VolumeSpike{}, false
	}

	priceChange := models.None()
	if prev, ok := prevClose.Get(); ok {
		priceChange = percentDiff(today.Close, prev)
	}

	return models.VolumeSpike{
		Symbol:             today.Symbol,
		Date:               today.AsOf,
		TodayVolume:        today.Volume,
		BaselineVolume:     baseline,
		SpikePercent:       (volume/baseline - 1) * 100,
		PriceChangePercent: priceChange,
	}, true
}
