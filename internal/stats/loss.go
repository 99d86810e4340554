package stats

// DefaultLossWindow is the number of trailing sequence numbers considered by
// a LossEstimator.
const DefaultLossWindow = 100

// LossEstimator estimates the fraction of sequence numbers that never arrived
// among the most recent Window numbers.
type LossEstimator struct {
	Window uint32

	received map[uint32]struct{}
	first    uint32
	newest   uint32
	started  bool
}

// NewLossEstimator returns an estimator over the last window sequence numbers.
func NewLossEstimator(window uint32) *LossEstimator {
	return &LossEstimator{Window: window}
}

func (l *LossEstimator) window() uint32 {
	if l.Window == 0 {
		return DefaultLossWindow
	}
	return l.Window
}

// Record marks seq as received. Duplicates are counted once.
func (l *LossEstimator) Record(seq uint32) {
	if l.received == nil {
		l.received = make(map[uint32]struct{})
	}
	if !l.started {
		l.first, l.newest, l.started = seq, seq, true
	}
	if seq > l.newest {
		l.newest = seq
	}
	if seq < l.first {
		l.first = seq
	}
	l.received[seq] = struct{}{}

	lowest := l.lowest()
	for s := range l.received {
		if s < lowest {
			delete(l.received, s)
		}
	}
}

// lowest is the first sequence number inside the window. Numbers before the
// first one ever recorded are not counted as lost.
func (l *LossEstimator) lowest() uint32 {
	w := l.window()
	if l.newest+1 < w || l.newest+1-w < l.first {
		return l.first
	}
	return l.newest + 1 - w
}

// Estimate returns the loss fraction in [0, 1]. It reports false until the
// first sequence number has been recorded.
func (l *LossEstimator) Estimate() (float64, bool) {
	if !l.started {
		return 0, false
	}
	expected := l.newest - l.lowest() + 1
	got := uint32(len(l.received))
	if got >= expected {
		return 0, true
	}
	return float64(expected-got) / float64(expected), true
}
