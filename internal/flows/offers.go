package flows

import "sync"

const offerBookSize = 4096

// pair is the currency pair an offer was listed under.
type pair struct {
	Buy  string
	Sell string
}

// offerBook remembers the pair behind recently listed offers so a purchase
// can be reported in currencies. It describes orders, not users, and holds
// at most size entries, dropping the oldest first.
type offerBook struct {
	mu    sync.Mutex
	size  int
	pairs map[int64]pair
	order []int64
}

func newOfferBook(size int) *offerBook {
	return &offerBook{size: size, pairs: make(map[int64]pair, size)}
}

func (b *offerBook) remember(id int64, p pair) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pairs[id]; !ok {
		if len(b.order) >= b.size {
			delete(b.pairs, b.order[0])
			b.order = b.order[1:]
		}
		b.order = append(b.order, id)
	}
	b.pairs[id] = p
}

func (b *offerBook) lookup(id int64) (pair, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pairs[id]
	return p, ok
}
