// Package ranking provides score calibration and metadata-aware match scoring.
package ranking

import "github.com/omoide-dev/omoide/pkg/utils"

// DefaultTemperature is the calibration temperature for raw embedding similarity.
const DefaultTemperature = 25.0

// Calibrate maps a raw cosine similarity in [-1,1] to a confidence in [0,1]
// via a temperature-scaled sigmoid. Strictly increasing in raw for any
// positive temperature; Calibrate(0, t) == 0.5 for all t.
func Calibrate(raw, temperature float64) float64 {
	raw = utils.Clamp(raw, -1, 1)
	return utils.Sigmoid(raw * temperature)
}
