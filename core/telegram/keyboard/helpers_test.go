package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsRawData(t *testing.T) {
	markup := InlineButtons([]InlineBtn{
		{Text: "Buy", Data: "buy_order_42"},
		CancelButton(),
	})
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "buy_order_42", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "Buy", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, CancelData, markup.InlineKeyboard[1][0].Data)
}

func TestInlineButtonsRowsSkipsEmpty(t *testing.T) {
	markup := InlineButtonsRows(nil, []InlineBtn{{Text: "A", Data: "a"}, {Text: "B", Data: "b"}})
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Len(t, markup.InlineKeyboard[0], 2)
}

func TestCancelButtonLabel(t *testing.T) {
	assert.Equal(t, "Stop", CancelButton("Stop").Text)
	assert.Equal(t, defaultCancelButtonText, CancelButton().Text)
}
