package models

// Sequence is a named monotonic counter used to mint card and user ids.
type Sequence struct {
	Name  string `gorm:"type:varchar(128);primaryKey"`
	Value int64  `gorm:"not null"`
}

func (Sequence) TableName() string {
	return "sequences"
}
