package patterns

import (
	"testing"

	"signal-engine/internal/models"
)

func volumeSnapshot(volume int64, baseline models.Float, close float64) models.IndicatorSnapshot {
	return models.IndicatorSnapshot{
		Symbol:         "ACME",
		AsOf:           day0,
		Close:          close,
		Volume:         volume,
		VolumeBaseline: baseline,
	}
}

func TestVolumeSpikeScenario(t *testing.T) {
	d := NewVolumeSpikeDetector(2.0)
	prev := volumeSnapshot(10000, models.Some(10000), 100)
	today := volumeSnapshot(25000, models.Some(10000), 104)

	spike, ok := d.Detect(models.SnapshotPair{Today: today, Previous: &prev})
	if !ok {
		t.Fatal("expected a spike")
	}
	if spike.SpikePercent != 150.0 {
		t.Errorf("SpikePercent = %f, want 150.0", spike.SpikePercent)
	}
	if spike.BaselineVolume != 10000 || spike.TodayVolume != 25000 {
		t.Errorf("spike volumes = %d / %f", spike.TodayVolume, spike.BaselineVolume)
	}
	if change, ok := spike.PriceChangePercent.Get(); !ok || change != 4 {
		t.Errorf("PriceChangePercent = %v (present %v), want 4", change, ok)
	}
}

func TestVolumeSpikeThresholds(t *testing.T) {
	d := NewVolumeSpikeDetector(0)
	tests := []struct {
		name     string
		volume   int64
		baseline models.Float
		want     bool
	}{
		{"exactly at threshold", 20000, models.Some(10000), false},
		{"just above threshold", 20001, models.Some(10000), true},
		{"below threshold", 15000, models.Some(10000), false},
		{"zero baseline", 25000, models.Some(0), false},
		{"missing baseline", 25000, models.None(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := d.Check(volumeSnapshot(tt.volume, tt.baseline, 100), models.None())
			if got != tt.want {
				t.Errorf("spike = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeSpikeWithoutPreviousClose(t *testing.T) {
	d := NewVolumeSpikeDetector(2.0)
	spike, ok := d.Detect(models.SnapshotPair{Today: volumeSnapshot(30000, models.Some(10000), 100)})
	if !ok {
		t.Fatal("expected a spike")
	}
	if spike.PriceChangePercent.Valid() {
		t.Error("price change should be absent without a previous close")
	}
}
