package models

import "gorm.io/gorm"

// AutoMigrate creates or updates the tables backing the SQL document store.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Card{}, &Sequence{})
}
