package keyboard

import "testing"

func TestInlineButtonsRowsSkipsEmptyRows(t *testing.T) {
	markup := InlineButtonsRows(
		[]InlineBtn{{Text: "⬅️", Unique: "pg", Data: "backward:2"}, {Text: "3/5", Unique: "pg", Data: "select:2"}},
		nil,
	)
	if len(markup.InlineKeyboard) != 1 {
		t.Fatalf("rows = %d", len(markup.InlineKeyboard))
	}
	row := markup.InlineKeyboard[0]
	if len(row) != 2 {
		t.Fatalf("buttons = %d", len(row))
	}
	if row[1].Text != "3/5" || row[1].Unique != "pg" || row[1].Data != "select:2" {
		t.Fatalf("button = %+v", row[1])
	}
}
