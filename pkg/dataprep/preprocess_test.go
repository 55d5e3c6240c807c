package dataprep

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"effpred/pkg/data"
	"effpred/pkg/schema"
)

func rawRecord() data.Record {
	return data.Record{
		"Timestamp":                     "2024-01-15T10:00",
		"Machine_ID":                    "39",
		"Operation_Mode":                "Active",
		"Temperature_C":                 "65",
		"Vibration_Hz":                  "50.5",
		"Power_Consumption_kW":          "35",
		"Network_Latency_ms":            "15",
		"Packet_Loss_%":                 "0.5",
		"Quality_Control_Defect_Rate_%": "1",
		"Production_Speed_units_per_hr": "120",
		"Predictive_Maintenance_Score":  "55",
		"Error_Rate_%":                  "0.8",
		"Efficiency_Status":             "High",
	}
}

func trainedSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.New(schema.DefaultFields())
	recs := []data.Record{rawRecord(), rawRecord(), rawRecord()}
	recs[0]["Operation_Mode"] = "Idle"
	recs[1]["Efficiency_Status"] = "Low"
	recs[2]["Operation_Mode"] = "Maintenance"
	recs[2]["Efficiency_Status"] = "Medium"
	recs = append(recs, rawRecord())
	require.NoError(t, LearnEncodings(recs, s))
	return s
}

func TestLearnEncodings_FirstSeen(t *testing.T) {
	s := trainedSchema(t)
	assert.Equal(t, []string{"Idle", "Active", "Maintenance"}, s.Encoding(schema.OperationMode).Classes)
	assert.Equal(t, []string{"High", "Low", "Medium"}, s.Target.Classes)
}

func TestLearnEncodings_MissingTarget(t *testing.T) {
	s := schema.New(schema.DefaultFields())
	rec := rawRecord()
	delete(rec, "Efficiency_Status")
	err := LearnEncodings([]data.Record{rawRecord(), rec}, s)

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 1, rowErr.Row)
	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "Efficiency_Status", missing.Field)
}

func TestPrepare_OrderAndLength(t *testing.T) {
	p := NewPreprocessor(trainedSchema(t))
	vec, err := p.Prepare(rawRecord())
	require.NoError(t, err)

	want := FeatureVector{1, 65, 50.5, 35, 15, 0.5, 1, 120, 55, 0.8, 2024, 1, 15, 10}
	assert.Equal(t, want, vec)
	assert.Len(t, vec, 14)
	assert.False(t, vec.HasMissing())
}

func TestPrepare_IgnoresIdentifierAndExtraColumns(t *testing.T) {
	p := NewPreprocessor(trainedSchema(t))
	a := rawRecord()
	b := rawRecord()
	b["Machine_ID"] = "99999"
	b["Unrelated"] = "x"

	va, err := p.Prepare(a)
	require.NoError(t, err)
	vb, err := p.Prepare(b)
	require.NoError(t, err)
	assert.Equal(t, va, vb)
}

func TestPrepare_UnparsableTimestamp(t *testing.T) {
	s := trainedSchema(t)
	p := NewPreprocessor(s)
	rec := rawRecord()
	rec["Timestamp"] = "not a date"

	vec, err := p.Prepare(rec)
	require.NoError(t, err)
	for i := 10; i < 14; i++ {
		assert.True(t, math.IsNaN(vec[i]), "position %d must carry the missing marker", i)
	}
	assert.True(t, vec.HasMissing())
	assert.Equal(t, []string{"Year", "Month", "Day", "Hour"}, vec.Missing(s))
}

func TestPrepare_BlankTimestamp(t *testing.T) {
	s := trainedSchema(t)
	p := NewPreprocessor(s)
	for _, ts := range []string{"", "   "} {
		rec := rawRecord()
		rec["Timestamp"] = ts
		rec["Year"] = "2024"

		vec, err := p.Prepare(rec)
		require.NoError(t, err, "timestamp %q", ts)
		assert.Equal(t, []string{"Year", "Month", "Day", "Hour"}, vec.Missing(s))
	}

	_, err := p.PrepareAll([]data.Record{rawRecord(), {
		"Timestamp": "", "Operation_Mode": "Active", "Temperature_C": "65", "Vibration_Hz": "50",
		"Power_Consumption_kW": "35", "Network_Latency_ms": "15", "Packet_Loss_%": "0.5",
		"Quality_Control_Defect_Rate_%": "1", "Production_Speed_units_per_hr": "120",
		"Predictive_Maintenance_Score": "55", "Error_Rate_%": "0.8",
	}})
	assert.NoError(t, err)
}

func TestPrepare_ExplicitDateParts(t *testing.T) {
	p := NewPreprocessor(trainedSchema(t))
	fromTS, err := p.Prepare(rawRecord())
	require.NoError(t, err)

	rec := rawRecord()
	delete(rec, "Timestamp")
	rec["Year"] = "2024"
	rec["Month"] = "1"
	rec["Day"] = "15"
	rec["Hour"] = "10"
	fromParts, err := p.Prepare(rec)
	require.NoError(t, err)
	assert.Equal(t, fromTS, fromParts)
}

func TestPrepare_NoCalendarSource(t *testing.T) {
	p := NewPreprocessor(trainedSchema(t))
	rec := rawRecord()
	delete(rec, "Timestamp")

	_, err := p.Prepare(rec)
	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "Timestamp", missing.Field)
}

func TestPrepare_Errors(t *testing.T) {
	p := NewPreprocessor(trainedSchema(t))

	t.Run("unknown category", func(t *testing.T) {
		rec := rawRecord()
		rec["Operation_Mode"] = "Turbo"
		_, err := p.Prepare(rec)
		var unknown *UnknownCategoryError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "Turbo", unknown.Value)
		assert.Equal(t, []string{"Idle", "Active", "Maintenance"}, unknown.Known)
	})

	t.Run("missing numeric", func(t *testing.T) {
		rec := rawRecord()
		delete(rec, "Vibration_Hz")
		_, err := p.Prepare(rec)
		var missing *MissingFieldError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "Vibration_Hz", missing.Field)
	})

	t.Run("empty categorical", func(t *testing.T) {
		rec := rawRecord()
		rec["Operation_Mode"] = "  "
		_, err := p.Prepare(rec)
		var missing *MissingFieldError
		assert.True(t, errors.As(err, &missing))
	})

	t.Run("invalid numeric", func(t *testing.T) {
		rec := rawRecord()
		rec["Temperature_C"] = "hot"
		_, err := p.Prepare(rec)
		var invalid *InvalidValueError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "Temperature_C", invalid.Field)
	})

	t.Run("non-finite numeric", func(t *testing.T) {
		rec := rawRecord()
		rec["Temperature_C"] = "NaN"
		_, err := p.Prepare(rec)
		var invalid *InvalidValueError
		assert.True(t, errors.As(err, &invalid))
	})
}

func TestPrepareAll_ReportsRow(t *testing.T) {
	p := NewPreprocessor(trainedSchema(t))
	bad := rawRecord()
	bad["Error_Rate_%"] = "?"

	_, err := p.PrepareAll([]data.Record{rawRecord(), rawRecord(), bad})
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 2, rowErr.Row)
}

func TestEncodeTargets(t *testing.T) {
	s := trainedSchema(t)
	a, b := rawRecord(), rawRecord()
	b["Efficiency_Status"] = "Medium"
	codes, err := EncodeTargets([]data.Record{a, b}, s)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, codes)

	b["Efficiency_Status"] = "Excellent"
	_, err = EncodeTargets([]data.Record{b}, s)
	var unknown *UnknownCategoryError
	assert.True(t, errors.As(err, &unknown))
}

func TestParseCalendar(t *testing.T) {
	cases := map[string]Calendar{
		"2024-01-15T10:00":            {2024, 1, 15, 10, true},
		"2024-01-15 10:30:00":         {2024, 1, 15, 10, true},
		"2024-01-15T23:59:59Z":        {2024, 1, 15, 23, true},
		"2024-01-15T10:00:00.5+02:00": {2024, 1, 15, 10, true},
		"2024-03-01":                  {2024, 3, 1, 0, true},
		"03/01/2024 07:15":            {2024, 3, 1, 7, true},
		"yesterday":                   {},
		"":                            {},
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseCalendar(in), in)
	}
	assert.True(t, math.IsNaN(Calendar{}.Value("Year")))
}
