package tracksync

import (
	"bytes"
	"encoding/json"
	"sort"

	"asterplayer/core/charm"
	"asterplayer/logger"
	"asterplayer/model"
	"asterplayer/repository"
)

// BuildView turns one raw snapshot into the delivered track list.
//
// Records are ranked by ascending createdAt (ties by key) and labeled with
// their 1-based rank, then delivered newest first. Any non-zero createdAt
// ranks, negative ones included. Records without a createdAt keep ordinal 0 and go to the end, ordered by key. Records that
// do not decode are left out.
func BuildView(catalog *charm.Catalog, snap repository.Snapshot) []model.ViewTrack {
	if len(snap) == 0 {
		return []model.ViewTrack{}
	}

	ranked := make([]model.ViewTrack, 0, len(snap))
	var unranked []model.ViewTrack

	for key, raw := range snap {
		track, ok := decode(key, raw)
		if !ok {
			continue
		}
		view := project(catalog, key, track)
		if view.CreatedAt != 0 {
			ranked = append(ranked, view)
		} else {
			unranked = append(unranked, view)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].CreatedAt != ranked[j].CreatedAt {
			return ranked[i].CreatedAt < ranked[j].CreatedAt
		}
		return ranked[i].ID < ranked[j].ID
	})
	for i := range ranked {
		ranked[i].Ordinal = i + 1
	}

	out := make([]model.ViewTrack, 0, len(ranked)+len(unranked))
	for i := len(ranked) - 1; i >= 0; i-- {
		out = append(out, ranked[i])
	}

	sort.Slice(unranked, func(i, j int) bool { return unranked[i].ID < unranked[j].ID })
	return append(out, unranked...)
}

func decode(key string, raw json.RawMessage) (*model.Track, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		logger.Warn("skipping malformed track record",
			logger.String("id", key),
			logger.String("reason", "not an object"))
		return nil, false
	}

	var track model.Track
	if err := json.Unmarshal(trimmed, &track); err != nil {
		logger.Warn("skipping malformed track record",
			logger.String("id", key),
			logger.ErrorField(err))
		return nil, false
	}
	track.ID = key
	return &track, true
}

func project(catalog *charm.Catalog, key string, t *model.Track) model.ViewTrack {
	traits := t.CharmTraits
	if traits == nil {
		traits = []model.CharmTrait{}
	}
	dominant := catalog.Dominant(traits)

	return model.ViewTrack{
		ID:        key,
		Name:      t.Name,
		Title:     t.Title,
		Artist:    t.Artist,
		Duration:  t.Duration,
		AudioURL:  t.AudioURL,
		Traits:    traits,
		CreatedAt: t.CreatedAt,
		Source:    t.Source,
		Category:  string(dominant.Key),
		CDImage:   dominant.CDImage,
	}
}
