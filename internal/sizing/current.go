package sizing

import (
	"math"

	"cablesizer/internal/catalogue"
	"cablesizer/internal/models"
)

var sqrt3 = math.Sqrt(3)

// Inrush as a multiple of full-load current.
var startingMultipliers = map[models.StartingMethod]float64{
	models.StartDOL:         6.0,
	models.StartStarDelta:   2.5,
	models.StartSoftStarter: 3.0,
	models.StartVFD:         1.1,
}

// Power factor while starting.
var startingPowerFactors = map[models.StartingMethod]float64{
	models.StartDOL:         0.3,
	models.StartStarDelta:   0.35,
	models.StartSoftStarter: 0.4,
	models.StartVFD:         0.85,
}

// phasesOf treats twin-core cables as single-phase circuits.
func phasesOf(core catalogue.CoreConfig) int {
	if core == catalogue.TwoCore {
		return 1
	}
	return 3
}

// FullLoadCurrent returns the steady-state current in amperes. Fixed feeder
// loads are rated on apparent power and skip power factor and efficiency.
func FullLoadCurrent(loadKW, voltage, powerFactor, efficiency float64, phases int, feeder bool) float64 {
	if voltage <= 0 || loadKW <= 0 {
		return 0
	}
	denom := voltage
	if phases == 3 {
		denom *= sqrt3
	}
	if !feeder {
		denom *= powerFactor * efficiency
	}
	if denom <= 0 {
		return 0
	}
	return loadKW * 1000 / denom
}

// StartingCurrent is zero for anything that is not a started motor.
func StartingCurrent(flc float64, method models.StartingMethod) float64 {
	return flc * startingMultipliers[method]
}

func startingPowerFactor(method models.StartingMethod) float64 {
	if pf, ok := startingPowerFactors[method]; ok {
		return pf
	}
	return startingPowerFactors[models.StartDOL]
}
