package features

import "time"

// Vector holds one value per schema column, aligned with Columns.
type Vector []float64

func newVector() Vector {
	return make(Vector, len(Columns))
}

// Get returns the value of a column, or 0 for a name outside the schema.
func (v Vector) Get(name string) float64 {
	if i, ok := columnIndex[name]; ok {
		return v[i]
	}
	return 0
}

// Set assigns a column value. Names outside the schema are ignored.
func (v Vector) Set(name string, value float64) {
	if i, ok := columnIndex[name]; ok {
		v[i] = value
	}
}

func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Map returns the vector keyed by column name.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(Columns))
	for i, name := range Columns {
		out[name] = v[i]
	}
	return out
}

// WithCalendar returns a copy with the calendar columns set for date.
// Weekday counts from Monday = 0.
func (v Vector) WithCalendar(date time.Time) Vector {
	out := v.Clone()
	weekday := (int(date.Weekday()) + 6) % 7
	out.Set(Month, float64(date.Month()))
	out.Set(DayOfMonth, float64(date.Day()))
	out.Set(Weekday, float64(weekday))
	out.Set(Quarter, float64((int(date.Month())-1)/3+1))
	if weekday >= 5 {
		out.Set(IsWeekend, 1)
	} else {
		out.Set(IsWeekend, 0)
	}
	return out
}
