package server

import (
	"math"
	"strconv"
	"time"

	"effpred/pkg/data"
	"effpred/pkg/schema"
)

var fallbackValues = map[string]string{
	schema.OperationMode:            "Active",
	"Temperature_C":                 "65",
	"Vibration_Hz":                  "50",
	"Power_Consumption_kW":          "35",
	"Network_Latency_ms":            "15",
	"Packet_Loss_%":                 "0.5",
	"Quality_Control_Defect_Rate_%": "1",
	"Production_Speed_units_per_hr": "120",
	"Predictive_Maintenance_Score":  "55",
	"Error_Rate_%":                  "0.8",
}

// Fallback returns the built-in value of every form field, with the calendar
// fields set from now.
func Fallback(now time.Time) data.Record {
	rec := make(data.Record, len(fallbackValues)+4)
	for k, v := range fallbackValues {
		rec[k] = v
	}
	rec[schema.Year] = strconv.Itoa(now.Year())
	rec[schema.Month] = strconv.Itoa(int(now.Month()))
	rec[schema.Day] = strconv.Itoa(now.Day())
	rec[schema.Hour] = strconv.Itoa(now.Hour())
	return rec
}

// FormDefaults pre-fills the form: the fallback table with training means
// laid over it for numeric fields. Means for unknown or categorical fields
// and non-finite means are skipped.
func FormDefaults(s *schema.Schema, means map[string]float64, now time.Time) data.Record {
	rec := Fallback(now)
	for name, v := range means {
		f, ok := s.Field(name)
		if !ok || f.Kind != schema.Numeric || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		rec[name] = strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
	}
	return rec
}
