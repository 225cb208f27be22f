package flows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfferBookDropsOldest(t *testing.T) {
	b := newOfferBook(2)
	b.remember(1, pair{Buy: "ETH", Sell: "BTC"})
	b.remember(2, pair{Buy: "SOL", Sell: "USDT"})
	b.remember(1, pair{Buy: "ETH", Sell: "USDT"})
	b.remember(3, pair{Buy: "TON", Sell: "BTC"})

	_, ok := b.lookup(1)
	assert.False(t, ok)
	p, ok := b.lookup(2)
	assert.True(t, ok)
	assert.Equal(t, pair{Buy: "SOL", Sell: "USDT"}, p)
	p, _ = b.lookup(3)
	assert.Equal(t, "TON", p.Buy)
}
