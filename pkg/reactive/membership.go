package reactive

// membership is the per-observer record of the registries it belongs to.
// It reconciles edges incrementally after each complete evaluation: new
// registries are appended as they are discovered, and registries from
// before the evaluation that were not read again are removed on both sides.
type membership struct {
	// list holds registries in discovery order.
	list []*Registry

	// index maps each registry to its position in list.
	index map[*Registry]int

	// surviving marks pre-evaluation registries read again during the
	// current evaluation.
	surviving map[*Registry]struct{}

	// snapshot is len(list) when the outermost evaluation began.
	snapshot int

	// depth counts nested evaluations of the same observer.
	depth int
}

func (m *membership) has(r *Registry) bool {
	_, ok := m.index[r]
	return ok
}

// enter starts an evaluation. Only the outermost one takes a snapshot.
func (m *membership) enter() {
	m.depth++
	if m.depth != 1 {
		return
	}
	m.snapshot = len(m.list)
	if m.surviving == nil {
		m.surviving = make(map[*Registry]struct{})
	} else {
		clear(m.surviving)
	}
}

// record notes that the observer read r during the current evaluation.
func (m *membership) record(r *Registry) {
	if pos, ok := m.index[r]; ok {
		if m.depth > 0 && pos < m.snapshot {
			m.surviving[r] = struct{}{}
		}
		return
	}
	if m.index == nil {
		m.index = make(map[*Registry]int)
	}
	m.index[r] = len(m.list)
	m.list = append(m.list, r)
}

// exit ends an evaluation. When the outermost evaluation ends, every
// registry from the snapshot that did not survive is dropped on both sides
// unless prune is false.
func (m *membership) exit(h *Handle, prune bool) int {
	if m.depth == 0 {
		return 0
	}
	m.depth--
	if m.depth != 0 {
		return 0
	}
	if !prune || len(m.surviving) == m.snapshot {
		clear(m.surviving)
		return 0
	}

	removed := 0
	kept := m.list[:0]
	for i, r := range m.list {
		if i < m.snapshot {
			if _, ok := m.surviving[r]; !ok {
				r.drop(h)
				delete(m.index, r)
				removed++
				continue
			}
		}
		m.index[r] = len(kept)
		kept = append(kept, r)
	}
	clear(m.list[len(kept):])
	m.list = kept
	clear(m.surviving)
	return removed
}

// detachAll removes every edge on both sides.
func (m *membership) detachAll(h *Handle) {
	for _, r := range m.list {
		r.drop(h)
	}
	clear(m.list)
	m.list = m.list[:0]
	clear(m.index)
	clear(m.surviving)
	m.snapshot = 0
	m.depth = 0
}
