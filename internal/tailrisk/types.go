package tailrisk

// #region alert-level

// AlertLevel classifies tail-risk severity.
type AlertLevel string

const (
	AlertNormal   AlertLevel = "normal"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// #endregion alert-level

// #region config

// Config holds fitting parameters for the peaks-over-threshold model.
type Config struct {
	ThresholdPercentile float64 // percentile for threshold selection, e.g. 0.95
	DeclusteringWindow  int     // window size for exceedance declustering
	MinExceedances      int     // minimum declustered exceedances required to fit
}

// DefaultConfig returns the standard POT parameters.
func DefaultConfig() Config {
	return Config{
		ThresholdPercentile: 0.95,
		DeclusteringWindow:  10,
		MinExceedances:      10,
	}
}

// #endregion config

// #region assessment

// Assessment is the tail-risk summary for the current observation window.
type Assessment struct {
	Threshold             float64
	ExceedanceProbability float64
	ReturnPeriod          int
	Shape                 float64
	Scale                 float64
	AlertLevel            AlertLevel
	PersistenceRequired   bool
	ExceedancesCount      int
	Fitted                bool
}

// #endregion assessment

// #region classify

// ClassifyAlert maps an exceedance probability and observed exceedance count
// to an alert level and a persistence requirement. Persistence suppresses
// single-sample false alarms.
func ClassifyAlert(prob float64, exceedances int) (AlertLevel, bool) {
	var level AlertLevel
	switch {
	case prob > 0.5:
		level = AlertCritical
	case prob > 0.3:
		level = AlertWarning
	default:
		level = AlertNormal
	}
	return level, exceedances >= 5
}

// #endregion classify
