package mockgen

// Scenario selects the fault-injection profile used by the generator.
type Scenario string

const (
	ScenarioNormal         Scenario = "NORMAL"
	ScenarioSensorFailures Scenario = "SENSOR_FAILURES"
	ScenarioDataStalls     Scenario = "DATA_STALLS"
	ScenarioIntermittent   Scenario = "INTERMITTENT"
	ScenarioGPSIssues      Scenario = "GPS_ISSUES"
	ScenarioChaos          Scenario = "CHAOS"
)

// faultParams fixes the probability/duration profile for each of the five
// fault classes named in the component design.
type faultParams struct {
	StallProb          float64
	StallMinTicks      int
	StallMaxTicks      int

	DropProb      float64
	BurstDropProb float64
	BurstDropMin  int
	BurstDropMax  int

	SensorFailureProb     float64
	SensorFailureMinTicks int
	SensorFailureMaxTicks int
	SensorFailureMinCount int
	SensorFailureMaxCount int

	GPSDriftStep        float64
	GPSDriftHalvingProb float64
	GPSAccuracyNoiseStd float64
	GPSJumpProb         float64
	GPSJumpRange        float64
}

// paramsFor returns the fixed fault profile for a scenario. Ticks assume a
// nominal 0.2s generator period (MOCK_DATA_INTERVAL default).
func paramsFor(s Scenario) faultParams {
	switch s {
	case ScenarioSensorFailures:
		return faultParams{
			SensorFailureProb: 0.01, SensorFailureMinTicks: 20, SensorFailureMaxTicks: 60,
			SensorFailureMinCount: 1, SensorFailureMaxCount: 4,
			GPSDriftStep: 0.00002, GPSAccuracyNoiseStd: 0.00003,
		}
	case ScenarioDataStalls:
		return faultParams{
			StallProb: 0.01, StallMinTicks: 15, StallMaxTicks: 100,
			GPSDriftStep: 0.00002, GPSAccuracyNoiseStd: 0.00003,
		}
	case ScenarioIntermittent:
		return faultParams{
			DropProb: 0.03, BurstDropProb: 0.15, BurstDropMin: 3, BurstDropMax: 10,
			StallProb: 0.003, StallMinTicks: 5, StallMaxTicks: 25,
			GPSDriftStep: 0.00002, GPSAccuracyNoiseStd: 0.00003,
		}
	case ScenarioGPSIssues:
		return faultParams{
			GPSDriftStep: 0.0002, GPSDriftHalvingProb: 0.02,
			GPSAccuracyNoiseStd: 0.0006,
			GPSJumpProb: 0.005, GPSJumpRange: 0.01,
		}
	case ScenarioChaos:
		return faultParams{
			StallProb: 0.01, StallMinTicks: 10, StallMaxTicks: 60,
			DropProb: 0.04, BurstDropProb: 0.2, BurstDropMin: 3, BurstDropMax: 10,
			SensorFailureProb: 0.01, SensorFailureMinTicks: 15, SensorFailureMaxTicks: 50,
			SensorFailureMinCount: 1, SensorFailureMaxCount: 4,
			GPSDriftStep: 0.0002, GPSDriftHalvingProb: 0.02,
			GPSAccuracyNoiseStd: 0.0006,
			GPSJumpProb: 0.01, GPSJumpRange: 0.01,
		}
	default: // ScenarioNormal
		return faultParams{
			GPSDriftStep: 0.000005, GPSAccuracyNoiseStd: 0.00001,
		}
	}
}
