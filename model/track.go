package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Source tags which producing application wrote a record.
type Source string

const (
	SourceAlarm  Source = "aster-alarm"
	SourcePlayer Source = "aster-player"
)

// Fixed presentation values of generated tracks.
const (
	TitleSuffix     = "의 매력 음악"
	DefaultArtist   = "Aster AI"
	DefaultDuration = 60
	AnonymousName   = "익명"
)

// Valid reports whether s is one of the two known producers.
func (s Source) Valid() bool {
	return s == SourceAlarm || s == SourcePlayer
}

// Stage is a trait level. Decoding never fails: numbers are truncated,
// numeric strings are parsed and anything else becomes 0.
type Stage int

// UnmarshalJSON implements json.Unmarshaler.
func (s *Stage) UnmarshalJSON(data []byte) error {
	f, _ := looseNumber(data)
	*s = Stage(int(f))
	return nil
}

// Seconds is a duration in seconds as sent by producers. Like Stage it
// decodes leniently; unusable values become 0.
type Seconds float64

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	f, _ := looseNumber(data)
	*s = Seconds(f)
	return nil
}

// looseNumber decodes a JSON number, numeric string or boolean. Anything
// else yields (0, false).
func looseNumber(data []byte) (float64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, false
	}

	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if v {
			f = 1
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CharmTrait is one charm label with its stage.
type CharmTrait struct {
	CharmName string `json:"charm_name"`
	Stage     Stage  `json:"stage"`
}

// Track is the persisted record of one generated charm composition.
// ID is the store key and is never serialized into the record body.
type Track struct {
	ID          string       `json:"-"`
	Name        string       `json:"name"`
	Title       string       `json:"title"`
	Artist      string       `json:"artist"`
	Duration    int          `json:"duration"`
	AudioURL    string       `json:"audioUrl"`
	CharmTraits []CharmTrait `json:"charmTraits"`
	CreatedAt   int64        `json:"createdAt"` // epoch milliseconds
	Source      Source       `json:"source"`
}

// UnmarshalJSON tolerates loosely typed numeric fields written by other
// producers (fractional durations, stringly timestamps).
func (t *Track) UnmarshalJSON(data []byte) error {
	type plain Track
	aux := struct {
		*plain
		Duration  json.RawMessage `json:"duration"`
		CreatedAt json.RawMessage `json:"createdAt"`
	}{plain: (*plain)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	duration, _ := looseNumber(aux.Duration)
	t.Duration = int(math.Round(duration))
	createdAt, _ := looseNumber(aux.CreatedAt)
	t.CreatedAt = int64(createdAt)
	return nil
}

// ViewTrack is the in-memory projection of a Track handed to listeners.
// It is rebuilt from scratch on every snapshot and never persisted.
type ViewTrack struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Title     string       `json:"title"`
	Artist    string       `json:"artist"`
	Duration  int          `json:"duration"`
	AudioURL  string       `json:"audioUrl"`
	Traits    []CharmTrait `json:"traits"`
	CreatedAt int64        `json:"createdAt,omitempty"`
	Source    Source       `json:"source,omitempty"`
	Ordinal   int          `json:"ordinal"`
	Category  string       `json:"category"`
	CDImage   string       `json:"cdImage"`
}
