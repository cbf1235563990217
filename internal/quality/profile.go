// Package quality maps target resolutions to encoding parameter sets.
// Selection is a pure function of the resolution; nothing here touches
// the filesystem or the transcoder.
package quality

// Tier is the closed set of encoding quality tiers.
type Tier int

const (
	// TierStandard is used for sub-Full-HD targets.
	TierStandard Tier = iota
	// TierHigh is used for Full HD and larger targets.
	TierHigh
)

// String returns the tier name.
func (t Tier) String() string {
	if t == TierHigh {
		return "high"
	}
	return "standard"
}

// Profile is a derived encoding parameter set. It is computed fresh per
// request and never persisted.
type Profile struct {
	// Tier identifies which policy row produced this profile.
	Tier Tier
	// CRF is the constant-rate-factor quality value for libx264.
	CRF int
	// Preset is the encoder speed/quality preset.
	Preset string
	// MaxBitrate is the video bitrate ceiling, in ffmpeg notation.
	MaxBitrate string
	// AudioBitrate is the AAC bitrate, in ffmpeg notation.
	AudioBitrate string
	// Profile is the H.264 profile tag.
	Profile string
	// Tune is the encoder tuning tag.
	Tune string
}

// TierFor selects the quality tier for a target resolution. Full HD in
// either dimension is enough to land in the high tier.
func TierFor(res Resolution) Tier {
	if res.Width >= 1920 || res.Height >= 1080 {
		return TierHigh
	}
	return TierStandard
}

// ProfileFor returns the encoding parameters for a target resolution.
func ProfileFor(res Resolution) Profile {
	switch TierFor(res) {
	case TierHigh:
		return Profile{
			Tier:         TierHigh,
			CRF:          18,
			Preset:       "slow",
			MaxBitrate:   "8000k",
			AudioBitrate: "192k",
			Profile:      "high",
			Tune:         "film",
		}
	default:
		return Profile{
			Tier:         TierStandard,
			CRF:          16,
			Preset:       "slow",
			MaxBitrate:   "5000k",
			AudioBitrate: "192k",
			Profile:      "high",
			Tune:         "film",
		}
	}
}

// maxImageQuality bounds still-image encode quality to keep output sizes sane.
const maxImageQuality = 100

// ImageQualityFor returns the still-image compression quality for a target
// resolution. Larger targets trade a little quality for bounded file size;
// the value never exceeds maxImageQuality.
func ImageQualityFor(res Resolution) int {
	pixels := res.Pixels()

	var q int
	switch {
	case pixels > 3840*2160:
		q = 90
	case pixels > 1920*1080:
		q = 92
	default:
		q = 95
	}

	if q > maxImageQuality {
		q = maxImageQuality
	}
	return q
}
