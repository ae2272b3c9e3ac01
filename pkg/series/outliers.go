package series

// OutlierRule rejects measurements matching a known sensor fault pattern.
// An empty PlatformCode applies the rule to every platform.
type OutlierRule struct {
	PlatformCode string
	Parameter    string
	Reject       func(value float64) bool
}

func (r OutlierRule) appliesTo(platform, parameter string) bool {
	if r.PlatformCode != "" && r.PlatformCode != platform {
		return false
	}
	return r.Parameter == parameter
}

// DefaultOutlierRules is the portal's fixed fault list. Rules compose by
// platform/parameter; new sensors get new entries here, the assembly logic
// never changes.
func DefaultOutlierRules() []OutlierRule {
	return []OutlierRule{
		// Temperature sensors report >40 degC when failing in air.
		{Parameter: "TEMP", Reject: func(v float64) bool { return v > 40 }},
		// Sub-1 degC readings are freezer calibration artifacts.
		{Parameter: "TEMP", Reject: func(v float64) bool { return v < 1 }},
		// Open-sea salinity below 30 PSU means a clogged conductivity cell.
		{Parameter: "PSAL", Reject: func(v float64) bool { return v < 30 }},
		// The OBSEA coastal station sits in a 10-30 degC band year round.
		{PlatformCode: "OBSEA", Parameter: "TEMP", Reject: func(v float64) bool { return v < 10 || v > 30 }},
	}
}
