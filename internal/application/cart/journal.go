package cart

import (
	"slices"

	"github.com/bookstore/storefront/internal/domain/cart"
)

// writeKind tells how a write changes a line
type writeKind int

const (
	// writeSet leaves the line exactly as recorded in after
	writeSet writeKind = iota
	// writeDelta moves the line's quantity by delta, whatever it was
	writeDelta
)

func writeKindOf(op cart.Operation) writeKind {
	if op == cart.OperationAdd {
		return writeDelta
	}
	return writeSet
}

// journalEntry is one optimistic write to one product, holding the line
// that was live immediately before the write.
type journalEntry struct {
	productID string
	kind      writeKind
	prior     cart.CartItem
	present   bool // false when the product was not in the cart
	index     int
	after     cart.CartItem
	kept      bool // false when the write left no line
	delta     int
	epoch     uint64
	settled   bool
}

// apply replays the write on top of line
func (e *journalEntry) apply(line cart.CartItem, present bool) (cart.CartItem, bool) {
	if e.kind == writeSet {
		return e.after, e.kept
	}
	if present {
		line.Quantity += e.delta
		return line, line.Quantity > 0
	}
	line = e.after
	line.Quantity = e.delta
	line.RemoteLineID = ""
	return line, e.delta > 0
}

// journal tracks optimistic writes per product in issue order so that a
// failed write can be undone without clobbering later writes to the same
// product.
type journal struct {
	epoch     uint64
	byProduct map[string][]*journalEntry
}

func newJournal() *journal {
	return &journal{byProduct: make(map[string][]*journalEntry)}
}

// record captures the lines for productIDs before and after a write
func (j *journal) record(before, after cart.State, kind writeKind, productIDs ...string) []*journalEntry {
	entries := make([]*journalEntry, 0, len(productIDs))
	for _, id := range productIDs {
		e := &journalEntry{productID: id, kind: kind, index: before.IndexOf(id), epoch: j.epoch}
		e.prior, e.present = before.Get(id)
		e.after, e.kept = after.Get(id)
		if kind == writeDelta {
			e.delta = e.after.Quantity - e.prior.Quantity
		}
		j.byProduct[id] = append(j.byProduct[id], e)
		entries = append(entries, e)
	}
	return entries
}

// tracked returns the products with outstanding writes, in no fixed order
func (j *journal) tracked() []string {
	ids := make([]string, 0, len(j.byProduct))
	for id := range j.byProduct {
		ids = append(ids, id)
	}
	return ids
}

// commit marks entries as resolved; their writes stand
func (j *journal) commit(entries []*journalEntry) {
	for _, e := range entries {
		if e.epoch != j.epoch {
			continue
		}
		e.settled = true
		j.prune(e.productID)
	}
}

// revert undoes entries against state. When later writes to the same
// product follow a failed one, the line is rebuilt by replaying those writes
// on the failed write's prior line, and each of them takes over the prior it
// now sits on. Entries from an earlier epoch are ignored. The bool reports
// whether any entry belonged to the current epoch.
func (j *journal) revert(state cart.State, entries []*journalEntry) (cart.State, bool) {
	live := false
	for _, e := range entries {
		if e.epoch != j.epoch {
			continue
		}
		chain := j.byProduct[e.productID]
		pos := slices.Index(chain, e)
		if pos < 0 {
			continue
		}
		live = true

		if pos < len(chain)-1 {
			line, present := e.prior, e.present
			for _, later := range chain[pos+1:] {
				later.prior, later.present, later.index = line, present, e.index
				line, present = later.apply(line, present)
			}
			state = replaceLine(state, e, line, present)
		} else if e.present {
			state = state.Put(e.prior, e.index)
		} else {
			state = state.Remove(e.productID)
		}

		j.byProduct[e.productID] = slices.Delete(chain, pos, pos+1)
		j.prune(e.productID)
	}
	return state, live
}

// replaceLine installs a rebuilt line. A remote line ID already
// acknowledged on the live line is kept.
func replaceLine(state cart.State, e *journalEntry, line cart.CartItem, present bool) cart.State {
	if !present {
		return state.Remove(e.productID)
	}
	if current, ok := state.Get(e.productID); ok && current.RemoteLineID != "" {
		line.RemoteLineID = current.RemoteLineID
	}
	return state.Put(line, e.index)
}

// reset voids every outstanding entry; used when the cart is replaced wholesale
func (j *journal) reset() {
	j.epoch++
	clear(j.byProduct)
}

// pending returns the number of unresolved writes
func (j *journal) pending() int {
	n := 0
	for _, chain := range j.byProduct {
		for _, e := range chain {
			if !e.settled {
				n++
			}
		}
	}
	return n
}

// prune drops resolved writes that no earlier write depends on
func (j *journal) prune(productID string) {
	chain := j.byProduct[productID]
	for len(chain) > 0 && chain[0].settled {
		chain = chain[1:]
	}
	if len(chain) == 0 {
		delete(j.byProduct, productID)
		return
	}
	j.byProduct[productID] = chain
}
