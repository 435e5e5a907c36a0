package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/spotdl-bot/internal/pager"
	"github.com/m3rciful/spotdl-bot/internal/track"
)

func TestRenderTrackEscapesAndSkipsEmpty(t *testing.T) {
	out := RenderTrack(track.Track{
		Name:                 "Mr. Brightside",
		Artist:               "The Killers",
		DurationMS:           222075,
		ReleaseDate:          "2004-06",
		ReleaseDatePrecision: "month",
	})
	for _, want := range []string{
		`*🎵 Song:* Mr\. Brightside`,
		`*👤 Artist:* The Killers`,
		`*⏱ Duration:* 3:42`,
		`*📅 Released:* June 2004`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
	if strings.Contains(out, "Album") {
		t.Fatalf("empty album rendered:\n%s", out)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{3*time.Minute + 3*time.Second, "3:03"},
		{time.Hour + 2*time.Minute + 5*time.Second, "1:02:05"},
		{2*time.Minute + 29500*time.Millisecond, "2:30"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestKeyboardPayloads(t *testing.T) {
	rows := Keyboard(pager.Keyboard(3, 1, false))
	if len(rows) != 1 || len(rows[0]) != 3 {
		t.Fatalf("rows = %+v", rows)
	}
	for _, b := range rows[0] {
		if b.Unique != PagerUnique || !strings.HasSuffix(b.Data, ":1") {
			t.Fatalf("button = %+v", b)
		}
	}
	locked := Keyboard(pager.Keyboard(3, 1, true))
	if len(locked) != 1 || len(locked[0]) != 1 || locked[0][0].Data != "processing:1" {
		t.Fatalf("locked = %+v", locked)
	}
}
