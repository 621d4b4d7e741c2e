package tracksync

import (
	"asterplayer/core/charm"
	"asterplayer/model"
)

// PlaceholderTracks returns the fixed demo list shown when the store cannot
// be reached. The records are not persisted and carry no createdAt.
func PlaceholderTracks(catalog *charm.Catalog) func() []model.ViewTrack {
	return func() []model.ViewTrack {
		demo := []struct {
			id, name string
			duration int
			traits   []model.CharmTrait
		}{
			{"1", "지민", 60, []model.CharmTrait{
				{CharmName: "침착함", Stage: 6},
				{CharmName: "안정감", Stage: 5},
				{CharmName: "긍정적", Stage: 4},
			}},
			{"2", "승현", 45, []model.CharmTrait{
				{CharmName: "유머 감각", Stage: 6},
				{CharmName: "분위기 메이커", Stage: 5},
				{CharmName: "사교적 에너지", Stage: 4},
			}},
			{"3", "수진", 90, []model.CharmTrait{
				{CharmName: "호기심", Stage: 8},
				{CharmName: "창의성", Stage: 7},
				{CharmName: "통찰력", Stage: 6},
			}},
		}

		tracks := make([]model.ViewTrack, 0, len(demo))
		for _, d := range demo {
			dominant := catalog.Dominant(d.traits)
			tracks = append(tracks, model.ViewTrack{
				ID:       d.id,
				Name:     d.name,
				Title:    d.name + model.TitleSuffix,
				Artist:   model.DefaultArtist,
				Duration: d.duration,
				Traits:   d.traits,
				Category: string(dominant.Key),
				CDImage:  dominant.CDImage,
			})
		}
		return tracks
	}
}
