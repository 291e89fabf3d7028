package monitor

import "github.com/gorgonia/dbn/rbm"

// Keys returns the operator key bindings for a session trained by t:
//
//	+ =   multiply the learning rate
//	-     divide the learning rate
//	0     reset the rate multiplier
//	L     stop training
//	[ ]   lower or raise the texture threshold
//	< ,   focus the connection below
//	> .   focus the connection above
//
// Rate changes are queued and take effect at the next batch boundary.
func (r *Recorder) Keys(t *rbm.CD) map[rune]func() {
	send := func(name string) func() {
		return func() {
			cmd, err := rbm.Lookup(name)
			if err == nil {
				err = t.Send(cmd)
			}
			if err != nil {
				r.logger.Printf("%s: %v", name, err)
			}
		}
	}
	mul := send("multiply_rate")
	return map[rune]func(){
		'+': mul,
		'=': mul,
		'-': send("divide_rate"),
		'0': send("reset_rate"),
		'L': r.RequestStop,
		'[': r.LowerThreshold,
		']': r.RaiseThreshold,
		'<': r.MoveDown,
		',': r.MoveDown,
		'>': r.MoveUp,
		'.': r.MoveUp,
	}
}

// Press runs the binding for key, if there is one.
func Press(keys map[rune]func(), key rune) bool {
	f, ok := keys[key]
	if ok {
		f()
	}
	return ok
}
