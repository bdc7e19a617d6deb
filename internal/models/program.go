package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList persists a list of strings as a JSON column.
type StringList []string

// Value marshals the list for persistence.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON payload into the list.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for StringList", value)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("unmarshal string list: %w", err)
	}
	return nil
}

// Program describes a training program catalog entry. Catalog data is seeded
// once and read-only from the enrollment workflow's perspective.
type Program struct {
	ID            string     `db:"id" json:"id"`
	Title         string     `db:"title" json:"title"`
	Category      string     `db:"category" json:"category"`
	Duration      string     `db:"duration" json:"duration"`
	Price         int        `db:"price" json:"price"`
	OriginalPrice int        `db:"original_price" json:"originalPrice"`
	Features      StringList `db:"features" json:"features"`
	Highlights    StringList `db:"highlights" json:"highlights"`
	IsActive      bool       `db:"is_active" json:"isActive"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}
