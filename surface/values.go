package surface

type (
	Bool struct {
		BoolData
	}

	BoolData interface {
		Value() bool
		Enabled() bool
		setValue(bool)
	}

	Float struct {
		FloatData
	}

	FloatData interface {
		Value() float64
		Range() FloatRange
		setValue(float64)
	}

	FloatRange struct {
		Min, Max float64
	}

	RandomizeNotes Model
	Speed          Model
)

func (v Bool) Toggle() {
	v.Set(!v.Value())
}

func (v Bool) Set(value bool) {
	if v.Enabled() && v.Value() != value {
		v.setValue(value)
	}
}

func (v Float) Set(value float64) {
	if v.Value() != value {
		v.setValue(value)
	}
}

// Normalized returns the value mapped to [0, 1] within the range.
func (v Float) Normalized() float64 {
	r := v.Range()
	if r.Max <= r.Min {
		return 0
	}
	return (v.Value() - r.Min) / (r.Max - r.Min)
}

// SetNormalized sets the value from a [0, 1] position within the range.
func (v Float) SetNormalized(t float64) {
	r := v.Range()
	v.Set(r.Min + min(max(t, 0), 1)*(r.Max-r.Min))
}

// Model methods

func (m *Model) RandomizeNotes() *RandomizeNotes { return (*RandomizeNotes)(m) }
func (m *Model) Speed() *Speed                   { return (*Speed)(m) }

// RandomizeNotes methods

// Randomization is applied when a song is loaded, so the toggle is locked
// while playing.
func (m *RandomizeNotes) Bool() Bool        { return Bool{m} }
func (m *RandomizeNotes) Value() bool       { return m.ctrl.Randomize() }
func (m *RandomizeNotes) Enabled() bool     { return !(*Model)(m).Playing() }
func (m *RandomizeNotes) setValue(val bool) { m.ctrl.SetRandomize(val) }

// Speed methods

func (m *Speed) Float() Float         { return Float{m} }
func (m *Speed) Value() float64       { return m.ctrl.Speed() }
func (m *Speed) setValue(val float64) { (*Model)(m).setSpeed(val) }
func (m *Speed) Range() FloatRange {
	lo, hi := m.ctrl.SpeedRange()
	return FloatRange{Min: lo, Max: hi}
}
