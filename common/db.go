package common

import (
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqliteParams make write transactions take the lock up front and wait
// for it instead of failing with SQLITE_BUSY.
const sqliteParams = "_busy_timeout=5000&_txlock=immediate&_foreign_keys=on&_journal_mode=WAL"

func ConnectDb(cfg *Config) *gorm.DB {
	dbFile := cfg.SqliteDB
	log.Println("attemptConnectDb: sqlite_db:", dbFile)
	if dbFile == "" {
		log.Println("sqlite_db not set")
		return nil
	}

	db, err := gorm.Open(sqlite.Open(DSN(dbFile)), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		log.Println("Error opening sqlite db: " + err.Error())
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Println("Error getting sqlite handle: " + err.Error())
		return nil
	}
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	log.Println("opened sqlite db at:", dbFile)
	return db
}

// DSN appends the connection parameters to a sqlite file name.
func DSN(file string) string {
	sep := "?"
	if strings.Contains(file, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(file, "file:") {
		file = "file:" + file
	}
	return file + sep + sqliteParams
}
