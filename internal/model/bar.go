package model

import "time"

// Bar is a sales location holding its own inventory rows.
type Bar struct {
	BaseModel
	Name      string     `db:"name" json:"name"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at"`
}

func (b *Bar) IsLive() bool {
	return b != nil && b.DeletedAt == nil
}
