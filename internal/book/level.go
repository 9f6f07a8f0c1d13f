package book

import (
	"github.com/tidwall/btree"
)

// PriceLevel holds every tracker resting at one price point on one side,
// in FIFO order of insertion, mirroring the teacher engine's price-level
// design but generalized to the market-aware Price key.
type PriceLevel struct {
	key    Price
	orders []*Tracker
}

func (l *PriceLevel) Price() float64      { return l.key.Price() }
func (l *PriceLevel) Orders() []*Tracker  { return l.orders }
func (l *PriceLevel) empty() bool         { return len(l.orders) == 0 }

// side is one of the book's two price-ordered multimaps, backed by a
// btree of PriceLevels keyed by Price so bids sort descending and asks
// ascending, with market (price == 0) entries always first.
type side struct {
	isBid bool
	tree  *btree.BTreeG[*PriceLevel]
}

func newSide(isBid bool) *side {
	less := func(a, b *PriceLevel) bool {
		return a.key.LessKey(b.key)
	}
	return &side{isBid: isBid, tree: btree.NewBTreeG(less)}
}

func (s *side) levelFor(price float64) *PriceLevel {
	probe := &PriceLevel{key: NewPrice(s.isBid, price)}
	lvl, ok := s.tree.GetMut(probe)
	if !ok {
		return nil
	}
	return lvl
}

// insert appends tracker to the FIFO queue at its price, creating the
// level if necessary.
func (s *side) insert(t *Tracker) {
	price := t.Ptr().Price()
	probe := &PriceLevel{key: NewPrice(s.isBid, price)}
	lvl, ok := s.tree.GetMut(probe)
	if !ok {
		lvl = &PriceLevel{key: NewPrice(s.isBid, price)}
		s.tree.Set(lvl)
	}
	lvl.orders = append(lvl.orders, t)
}

// best returns the level the matching engine should examine first:
// market orders take priority, then the most aggressive non-zero price.
func (s *side) best() *PriceLevel {
	lvl, ok := s.tree.MinMut()
	if !ok {
		return nil
	}
	return lvl
}

// popFront removes and returns the earliest-inserted tracker at lvl,
// deleting the level itself once it is empty.
func (s *side) popFront(lvl *PriceLevel) *Tracker {
	if len(lvl.orders) == 0 {
		return nil
	}
	t := lvl.orders[0]
	lvl.orders = lvl.orders[1:]
	if len(lvl.orders) == 0 {
		s.tree.Delete(lvl)
	}
	return t
}

// remove deletes tracker t (identified by its seq) from the level it
// rests at price, wherever in the FIFO queue it sits. price is the
// resting price recorded at insertion time, not t.Ptr().Price(), since
// a replace may have already mutated the order's live price before
// calling back into the book. Levels typically hold few orders, so the
// linear scan inside one level is cheap in practice.
func (s *side) remove(t *Tracker, price float64) bool {
	lvl := s.levelFor(price)
	if lvl == nil {
		return false
	}
	for i, o := range lvl.orders {
		if o.seq == t.seq {
			lvl.orders = append(lvl.orders[:i], lvl.orders[i+1:]...)
			if len(lvl.orders) == 0 {
				s.tree.Delete(lvl)
			}
			return true
		}
	}
	return false
}

func (s *side) empty() bool {
	return s.tree.Len() == 0
}

// levels returns every resting price level, best first, up to limit
// levels (0 means unlimited).
func (s *side) levels(limit int) []*PriceLevel {
	var out []*PriceLevel
	s.tree.Scan(func(lvl *PriceLevel) bool {
		out = append(out, lvl)
		return limit <= 0 || len(out) < limit
	})
	return out
}
