package quality

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolution_Even(t *testing.T) {
	tests := []struct {
		name string
		in   Resolution
		want Resolution
	}{
		{"already even", Resolution{1920, 1080}, Resolution{1920, 1080}},
		{"odd width", Resolution{1921, 1080}, Resolution{1920, 1080}},
		{"odd height", Resolution{1280, 721}, Resolution{1280, 720}},
		{"both odd", Resolution{1367, 769}, Resolution{1366, 768}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Even()
			assert.Equal(t, tc.want, got)
			// Decrement-by-one only, never increment.
			assert.LessOrEqual(t, got.Width, tc.in.Width)
			assert.LessOrEqual(t, got.Height, tc.in.Height)
			assert.Zero(t, got.Width%2)
			assert.Zero(t, got.Height%2)
		})
	}
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Resolution
	}{
		{"valid", "1280x720", Resolution{1280, 720}},
		{"valid with spaces", " 3840x2160 ", Resolution{3840, 2160}},
		{"empty falls back", "", DefaultResolution},
		{"unknown falls back", "Unknown", DefaultResolution},
		{"garbage falls back", "widescreen", DefaultResolution},
		{"negative falls back", "-1920x1080", DefaultResolution},
		{"zero falls back", "0x0", DefaultResolution},
		{"missing height falls back", "1920x", DefaultResolution},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseResolution(tc.in))
		})
	}
}

func TestResolution_String(t *testing.T) {
	assert.Equal(t, "1920x1080", Resolution{1920, 1080}.String())
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		res  Resolution
		want Tier
	}{
		{Resolution{1920, 1080}, TierHigh},
		{Resolution{3840, 2160}, TierHigh},
		{Resolution{1920, 720}, TierHigh},  // width alone qualifies
		{Resolution{1280, 1080}, TierHigh}, // height alone qualifies
		{Resolution{1280, 720}, TierStandard},
		{Resolution{640, 480}, TierStandard},
	}

	for _, tc := range tests {
		t.Run(tc.res.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, TierFor(tc.res))
		})
	}
}

func TestProfileFor(t *testing.T) {
	high := ProfileFor(Resolution{1920, 1080})
	std := ProfileFor(Resolution{1280, 720})

	assert.Equal(t, 18, high.CRF)
	assert.Equal(t, "8000k", high.MaxBitrate)
	assert.Equal(t, 16, std.CRF)
	assert.Equal(t, "5000k", std.MaxBitrate)

	for _, p := range []Profile{high, std} {
		assert.Equal(t, "slow", p.Preset)
		assert.Equal(t, "192k", p.AudioBitrate)
		assert.Equal(t, "high", p.Profile)
		assert.Equal(t, "film", p.Tune)
	}

	// The bitrate ceiling for Full HD and above is never below the
	// ceiling granted to smaller targets.
	assert.GreaterOrEqual(t, bitrateKbps(t, high.MaxBitrate), bitrateKbps(t, std.MaxBitrate))
}

func bitrateKbps(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(strings.TrimSuffix(s, "k"))
	if err != nil {
		t.Fatalf("unparseable bitrate %q", s)
	}
	return n
}

func TestImageQualityFor(t *testing.T) {
	tests := []struct {
		res  Resolution
		want int
	}{
		{Resolution{1280, 720}, 95},
		{Resolution{1920, 1080}, 95},
		{Resolution{2560, 1440}, 92},
		{Resolution{3840, 2160}, 92},
		{Resolution{7680, 4320}, 90},
	}

	for _, tc := range tests {
		t.Run(tc.res.String(), func(t *testing.T) {
			q := ImageQualityFor(tc.res)
			assert.Equal(t, tc.want, q)
			assert.LessOrEqual(t, q, 100)
		})
	}
}
