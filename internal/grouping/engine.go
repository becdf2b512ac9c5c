// Package grouping classifies co-located listeners into similarity tiers.
// It is a pure function over a presence snapshot: no mutation, no I/O.
package grouping

import (
	"fmt"

	"github.com/echomatch/echomatch/internal/geo"
	"github.com/echomatch/echomatch/internal/presence"
)

// Grouping modes. They are validated at the boundary and echoed back; the
// three tiers are always computed.
const (
	ModeTrack  = "track"
	ModeArtist = "artist"
)

// Options bound the candidate set in space and time.
type Options struct {
	Mode      string
	RadiusM   float64
	WindowSec int64
}

// Validate rejects unknown modes and non-positive bounds.
func (o Options) Validate() error {
	if o.Mode != ModeTrack && o.Mode != ModeArtist {
		return fmt.Errorf("mode must be %q or %q", ModeTrack, ModeArtist)
	}
	if o.RadiusM <= 0 {
		return fmt.Errorf("radius must be positive")
	}
	if o.WindowSec <= 0 {
		return fmt.Errorf("time window must be positive")
	}
	return nil
}

// Member is one classified candidate, annotated with its distance from the
// requester.
type Member struct {
	presence.Sample
	DistanceM float64 `json:"distance_m"`
}

// Result holds the three similarity tiers. Ordering within a tier follows
// the snapshot's iteration order.
type Result struct {
	Mode         string   `json:"mode"`
	NoSelfStatus bool     `json:"no_self_status,omitempty"`
	SameTrack    []Member `json:"same_track"`
	SameArtist   []Member `json:"same_artist"`
	JustNear     []Member `json:"just_near"`
}

func emptyResult(mode string, noSelf bool) *Result {
	return &Result{
		Mode:         mode,
		NoSelfStatus: noSelf,
		SameTrack:    []Member{},
		SameArtist:   []Member{},
		JustNear:     []Member{},
	}
}

// Group partitions the snapshot's other live users into same_track,
// same_artist and just_near tiers relative to self. A nil self yields an
// empty result flagged NoSelfStatus rather than an error.
func Group(self *presence.Sample, snapshot []presence.Sample, opts Options) *Result {
	if self == nil {
		return emptyResult(opts.Mode, true)
	}

	res := emptyResult(opts.Mode, false)

	for i := range snapshot {
		c := &snapshot[i]
		if c.UserID == "" || c.UserID == self.UserID {
			continue
		}

		dist := geo.HaversineM(self.Latitude, self.Longitude, c.Latitude, c.Longitude)
		if dist > opts.RadiusM {
			continue
		}
		if !geo.WithinWindow(self.CapturedAt, c.CapturedAt, opts.WindowSec) {
			continue
		}

		m := Member{Sample: *c, DistanceM: dist}
		switch {
		case self.TrackID != "" && c.TrackID == self.TrackID:
			res.SameTrack = append(res.SameTrack, m)
		case self.ArtistID != "" && c.ArtistID == self.ArtistID:
			res.SameArtist = append(res.SameArtist, m)
		default:
			res.JustNear = append(res.JustNear, m)
		}
	}

	return res
}
