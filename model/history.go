package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// TraitList stores charm traits in a JSON column.
type TraitList []CharmTrait

// Scan implements sql.Scanner.
func (t *TraitList) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*t = nil
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*t = nil
		return nil
	}
	return json.Unmarshal(bytes, t)
}

// Value implements driver.Valuer.
func (t TraitList) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// TrackHistory is the durable ledger row mirrored from every accepted
// submission. The realtime store stays authoritative for the live list;
// the ledger survives deletes and store flushes.
type TrackHistory struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	TrackID     string     `json:"trackId" gorm:"size:64;uniqueIndex;not null"`
	Name        string     `json:"name" gorm:"size:200;not null"`
	Title       string     `json:"title" gorm:"size:255"`
	Artist      string     `json:"artist" gorm:"size:100"`
	Duration    int        `json:"duration"`
	AudioURL    string     `json:"audioUrl" gorm:"type:text"`
	CharmTraits TraitList  `json:"charmTraits" gorm:"type:json"`
	Category    string     `json:"category" gorm:"size:32;index"`
	Source      Source     `json:"source" gorm:"size:32;index"`
	Origin      string     `json:"origin,omitempty" gorm:"size:255"` // entry point that submitted it
	CreatedAt   time.Time  `json:"createdAt" gorm:"index"`
	RemovedAt   *time.Time `json:"removedAt,omitempty" gorm:"index"`
}

// TableName pins the table name.
func (TrackHistory) TableName() string {
	return "track_history"
}
