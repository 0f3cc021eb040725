package sim

// lcg is a 32-bit linear congruential generator using the Numerical Recipes
// constants. The demo series must replay bit-identically for a given calendar
// day, which math/rand does not guarantee across Go releases.
type lcg struct {
	state uint32
}

func newLCG(seed uint32) *lcg {
	return &lcg{state: seed}
}

func (l *lcg) next() uint32 {
	l.state = l.state*1664525 + 1013904223
	return l.state
}

// float returns a uniform value in [0, 1).
func (l *lcg) float() float64 {
	return float64(l.next()) / (1 << 32)
}

// noise returns a uniform value in [-amp, amp).
func (l *lcg) noise(amp float64) float64 {
	return (l.float()*2 - 1) * amp
}
