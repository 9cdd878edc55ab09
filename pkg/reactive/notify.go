package reactive

import "strconv"

// Notify delivers NotifyChanged to every live observer in r, except the
// observer currently evaluating. Property implementations call it on every
// write that changed the stored value.
//
// Observers are collected before any of them is called, so NotifyChanged
// may freely register or unregister observers, including on r.
// A panicking observer is reported and the remaining observers are still
// notified.
func (rt *Runtime) Notify(r *Registry) {
	if rt.suppressed.Load() > 0 {
		return
	}

	var self *Handle
	if cur := rt.Current(); cur != nil {
		self = cur.handle()
	}

	var buf [16]Observer
	targets := buf[:0]
	for o := range r.All() {
		if o.handle() == self {
			continue
		}
		targets = append(targets, o)
	}

	for _, o := range targets {
		rt.deliver(o)
	}
	rt.metrics.Notified(len(targets))
}

func (rt *Runtime) deliver(o Observer) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if IsProgrammingError(p) {
			panic(p)
		}
		rt.metrics.NotifyFailed()
		rt.Report(recoveredError(p, "R004", ErrNotifyFailed),
			"observer notification failed", "observer", o.handle().id)
	}()
	o.NotifyChanged()
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
