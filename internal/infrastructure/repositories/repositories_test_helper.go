package repositories

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createSequenceTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE sequences (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);`)
}

func createCardTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE cards (
		card_key TEXT PRIMARY KEY,
		card_id TEXT NOT NULL UNIQUE,
		encoded_path TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		pronouns TEXT NOT NULL,
		job_position TEXT NOT NULL,
		mobile_number TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		profile_image TEXT,
		description TEXT,
		social_media TEXT,
		business_card_link TEXT NOT NULL,
		temporary_card_link TEXT NOT NULL,
		temporary_card_expiry DATETIME,
		payment_expiry DATETIME,
		payment_confirmed BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createUserTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE users (
		user_id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		mobile_no TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'user',
		reset_password_otp TEXT,
		reset_password_otp_expiry DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}
