package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	cases := []struct {
		cb   *tele.Callback
		want Data
	}{
		{nil, Data{}},
		{&tele.Callback{Data: "\fpg|forward:2"}, Data{"pg", "forward:2"}},
		{&tele.Callback{Data: "\fpg"}, Data{"pg", ""}},
		{&tele.Callback{Data: "\fpg|a|b"}, Data{"pg", "a|b"}},
		{&tele.Callback{Unique: "pg", Data: "select:0"}, Data{"pg", "select:0"}},
	}
	for _, tc := range cases {
		if got := Parse(tc.cb); got != tc.want {
			t.Fatalf("%+v: got %+v, want %+v", tc.cb, got, tc.want)
		}
	}
}

func TestNameIndex(t *testing.T) {
	name, idx, err := Data{Payload: "backward:4"}.NameIndex()
	if err != nil || name != "backward" || idx != 4 {
		t.Fatalf("got %q %d %v", name, idx, err)
	}
	for _, bad := range []string{"", "select", ":1", "select:x", "select:-1"} {
		if _, _, err := (Data{Payload: bad}).NameIndex(); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}
