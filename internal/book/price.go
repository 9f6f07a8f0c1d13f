package book

// Price is a market-aware price key: a price of 0 represents a market
// order and always sorts as the most aggressive entry on its own side.
// Among non-zero prices, bids order descending (highest first) and asks
// order ascending (lowest first). All comparisons are exact float64
// equality; EPSILON is never applied here, only to quantity arithmetic.
type Price struct {
	isBid bool
	price float64
}

func NewPrice(isBid bool, price float64) Price {
	return Price{isBid: isBid, price: price}
}

func (p Price) Price() float64 { return p.price }
func (p Price) IsBid() bool    { return p.isBid }
func (p Price) IsMarket() bool { return p.price == 0 }

// Matches reports whether a resting order at this key can trade with a
// counterparty quoted at rhs. A bid matches any ask at or below its
// price; an ask matches any bid at or above its price. A market price
// (0) on either side always matches.
func (p Price) Matches(rhs float64) bool {
	if p.price == rhs {
		return true
	}
	if p.isBid {
		return rhs < p.price || p.price == 0
	}
	return p.price < rhs || rhs == 0
}

// Less places market entries first on their own side, then orders
// bids descending and asks ascending by price.
func (p Price) Less(rhs float64) bool {
	if p.price == 0 {
		return rhs != 0
	}
	if rhs == 0 {
		return false
	}
	if p.isBid {
		return rhs < p.price
	}
	return p.price < rhs
}

func (p Price) Equal(rhs float64) bool {
	return p.price == rhs
}

func (p Price) Greater(rhs float64) bool {
	if p.price == 0 {
		return false
	}
	if rhs == 0 {
		return true
	}
	if p.isBid {
		return rhs > p.price
	}
	return p.price > rhs
}

func (p Price) LessKey(rhs Price) bool {
	return p.Less(rhs.price)
}

func (p Price) EqualKey(rhs Price) bool {
	return p.Equal(rhs.price)
}

func (p Price) GreaterKey(rhs Price) bool {
	return p.Greater(rhs.price)
}
