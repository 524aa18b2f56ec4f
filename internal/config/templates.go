package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Signal Engine Configuration

[indicators]
ema_short = 9
ema_medium = 21
# Lookback of the 50-day SMA and EMA
trend = 50
sma_medium = 100
sma_long = 200
rsi_period = 14
macd_fast = 12
macd_slow = 26
macd_signal = 9
bollinger_period = 20
bollinger_stddev = 2.0
supertrend_period = 10
supertrend_multiplier = 3.0

[signals]
# Volume spike when today's volume exceeds the baseline by this multiple
volume_spike_multiple = 2.0
# Days in the volume baseline, excluding today
volume_baseline_period = 20

[consolidation]
# Days inside the range before a box forms
min_days = 10
# Maximum (high-low)/low of the forming range, in percent
max_range_percent = 5.0
# Days after an unconfirmed breakout in which a close back inside fails it
false_breakout_window = 3
# Breakout volume must exceed baseline times this
volume_confirm_multiple = 1.0

[scoring]
rsi_oversold = 30.0
rsi_overbought = 70.0

[exit]
# Warning band around a trigger level, in percent
proximity_percent = 5.0
# Criteria enabled on new positions:
# stop_loss, target, below_ema_50, below_sma_100, below_sma_200, supertrend_bearish
default_criteria = ["stop_loss", "target"]

[batch]
workers = 4
# Trading days of history fetched per symbol
lookback_days = 400
fetch_timeout = "15s"
retry_attempts = 3
retry_backoff = "500ms"
retry_max_backoff = "10s"
# Consecutive provider failures before the circuit opens
breaker_failures = 5
breaker_cooldown = "1m"
# Provider calls per second, 0 for unlimited
rate_limit = 0.0
rate_burst = 1

[provider]
# Where bars and fundamentals come from: "sqlite" (imported data) or "csv"
source = "sqlite"
# Directory of <SYMBOL>.csv and fundamentals.csv files for the csv source
# csv_dir = ""

[schedule]
# Cron specs with a leading seconds field
batch_cron = "0 30 18 * * 1-5"
sweep_cron = "0 0 * * * *"

[store]
# db_path = ""

[log]
level = "info"
console = true
file = true

[metrics]
listen_addr = ":9108"
`

// WriteTemplate writes the commented config template into configDir unless a
// config file already exists. It returns the file path.
func WriteTemplate(configDir string) (string, error) {
	path := ConfigPath(configDir)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}
	return path, nil
}
