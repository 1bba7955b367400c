package download

// indeterminateScale shapes the fraction reported when the response length
// is unknown: half way at 256KiB, approaching but never reaching 1.
const indeterminateScale = 256 * 1024

// Progress is a snapshot of transfer progress.
type Progress struct {
	Received int64
	// Expected is -1 when the total size is unknown.
	Expected int64
	// Fraction is in [0, 1] and never decreases within one session.
	Fraction float64
}

// Known reports whether Expected is the real total size.
func (p Progress) Known() bool {
	return p.Expected > 0
}

func newProgress(received, expected int64) Progress {
	p := Progress{Received: received, Expected: expected}
	switch {
	case expected > 0:
		p.Fraction = float64(received) / float64(expected)
		if p.Fraction > 1 {
			p.Fraction = 1
		}
	case received > 0:
		p.Fraction = float64(received) / float64(received+indeterminateScale)
	}
	return p
}
