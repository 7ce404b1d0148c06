package airqual

type band struct {
	concLow, concHigh float64
	aqiLow, aqiHigh   float64
}

// US EPA PM2.5 breakpoints, highest first.
var pm25Bands = []band{
	{350.5, 500.5, 400, 500},
	{250.5, 350.5, 300, 400},
	{150.5, 250.5, 200, 300},
	{55.5, 150.5, 150, 200},
	{35.5, 55.5, 100, 150},
	{12, 35.5, 50, 100},
	{0, 12, 0, 50},
}

const maxAQI = 500

func remap(value, low1, high1, low2, high2 float64) float64 {
	return low2 + (high2-low2)*(value-low1)/(high1-low1)
}

// ConcentrationToAQI converts a PM2.5 concentration (µg/m³) to the US EPA AQI.
// Concentrations above 500 clamp to 500, non-positive values pass through.
func ConcentrationToAQI(pm float64) float64 {
	if pm > maxAQI {
		return maxAQI
	}
	for _, b := range pm25Bands {
		if pm > b.concLow {
			return remap(pm, b.concLow, b.concHigh, b.aqiLow, b.aqiHigh)
		}
	}
	return pm
}

const StatusUnknown = "Unknown"

var statusLevels = []struct {
	upper float64
	label string
}{
	{50, "Good"},
	{100, "Moderate"},
	{150, "Unhealthy for Sensitive Groups"},
	{200, "Unhealthy"},
	{300, "Very Unhealthy"},
}

// Status describes an AQI value; nil is Unknown.
func Status(aqi *float64) string {
	if aqi == nil {
		return StatusUnknown
	}
	for _, l := range statusLevels {
		if *aqi <= l.upper {
			return l.label
		}
	}
	return "Hazardous"
}
