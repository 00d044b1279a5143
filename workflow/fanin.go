// Copyright (c) Microsoft. All rights reserved.

package workflow

// joinBuffer collects fan-in deliveries for one join during a run.
type joinBuffer struct {
	FanIn
	slots map[string][]Message
}

func (j *joinBuffer) add(src string, m Message) {
	j.slots[src] = append(j.slots[src], m)
}

func (j *joinBuffer) pending() bool { return len(j.slots) > 0 }

func (j *joinBuffer) complete() bool {
	for _, s := range j.Sources {
		if len(j.slots[s]) == 0 {
			return false
		}
	}
	return true
}

func (j *joinBuffer) missing() []string {
	var out []string
	for _, s := range j.Sources {
		if len(j.slots[s]) == 0 {
			out = append(out, s)
		}
	}
	return out
}

// take drains the buffer into a join message ordered by source declaration,
// then emission order within a source.
func (j *joinBuffer) take() Message {
	var items []Message
	for _, s := range j.Sources {
		items = append(items, j.slots[s]...)
	}
	j.slots = make(map[string][]Message)
	return Message{Type: TypeJoin, Data: items}
}

// joins tracks every join of a graph for one run.
type joins struct {
	g       *Graph
	buffers []*joinBuffer
}

func newJoins(g *Graph) *joins {
	js := &joins{g: g}
	for _, f := range g.fanIns {
		js.buffers = append(js.buffers, &joinBuffer{FanIn: f, slots: make(map[string][]Message)})
	}
	return js
}

func (js *joins) deliver(target, src string, m Message) {
	js.buffers[js.g.joinIndex[target]].add(src, m)
}

func (js *joins) anyPending() bool {
	for _, j := range js.buffers {
		if j.pending() {
			return true
		}
	}
	return false
}

// release returns the joins that may fire now, given the executors running
// or about to run. A complete join always fires. A partial join fires when
// none of its missing sources can still be reached from the live frontier:
// those executors, the targets of joins fired here, and the targets of
// other pending joins. When nothing runs and every pending join waits on
// another, the first-declared one fires so the run can make progress.
//
// joins is owned by the run loop and is never touched by workers.
func (js *joins) release(next []string) []unit {
	var fired []unit
	var partial []*joinBuffer
	for _, j := range js.buffers {
		switch {
		case !j.pending():
		case j.complete():
			fired = append(fired, js.fire(j))
		default:
			partial = append(partial, j)
		}
	}

	frontier := append([]string(nil), next...)
	for _, u := range fired {
		frontier = append(frontier, u.id)
	}
	var stalled []*joinBuffer
	for _, j := range partial {
		if js.stillReachable(j, frontier) {
			stalled = append(stalled, j)
			continue
		}
		u := js.fire(j)
		fired = append(fired, u)
		frontier = append(frontier, u.id)
	}

	if len(fired) == 0 && len(next) == 0 && len(stalled) > 0 {
		fired = append(fired, js.fire(stalled[0]))
	}
	return fired
}

func (js *joins) stillReachable(j *joinBuffer, next []string) bool {
	live := append([]string(nil), next...)
	for _, other := range js.buffers {
		if other != j && other.pending() {
			live = append(live, other.Target)
		}
	}
	for _, src := range j.missing() {
		for _, from := range live {
			if js.g.reachable(from, src) {
				return true
			}
		}
	}
	return false
}

func (js *joins) fire(j *joinBuffer) unit {
	return unit{id: j.Target, in: j.take()}
}
