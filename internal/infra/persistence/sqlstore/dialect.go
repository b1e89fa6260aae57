package sqlstore

import (
	"fmt"
	"strings"

	"payorledger/pkg/domain"
)

func questionMark(int) string { return "?" }

func doubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func backtick(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// SQLite is the dialect of modernc.org/sqlite. Foreign keys must be switched
// on per connection (the sqlite package does so through the DSN).
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: questionMark,
	Quote:       doubleQuote,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS "payor" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"name" TEXT NOT NULL,
			"label" TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS "header" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"name" TEXT NOT NULL,
			"sort_order" INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS "subheader" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"header_id" INTEGER NOT NULL REFERENCES "header"("id") ON DELETE CASCADE,
			"name" TEXT NOT NULL,
			"sort_order" INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS "ledger_row" (
			"or_num" INTEGER PRIMARY KEY,
			"date" TEXT NOT NULL,
			"payor_id" INTEGER NOT NULL REFERENCES "payor"("id") ON DELETE CASCADE,
			"label" TEXT NOT NULL DEFAULT '',
			"comment" TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS "cell_entry" (
			"or_num" INTEGER NOT NULL REFERENCES "ledger_row"("or_num") ON DELETE CASCADE ON UPDATE CASCADE,
			"subheader_id" INTEGER NOT NULL REFERENCES "subheader"("id") ON DELETE CASCADE,
			"amount" TEXT NOT NULL,
			PRIMARY KEY ("or_num", "subheader_id")
		)`,
	},
}

// Postgres is the dialect shared by the pgx and lib/pq drivers.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	Quote:       doubleQuote,
	Returning:   true,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS "payor" (
			"id" BIGSERIAL PRIMARY KEY,
			"name" TEXT NOT NULL,
			"label" TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS "header" (
			"id" BIGSERIAL PRIMARY KEY,
			"name" TEXT NOT NULL,
			"sort_order" INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS "subheader" (
			"id" BIGSERIAL PRIMARY KEY,
			"header_id" BIGINT NOT NULL REFERENCES "header"("id") ON DELETE CASCADE,
			"name" TEXT NOT NULL,
			"sort_order" INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS "ledger_row" (
			"or_num" BIGINT PRIMARY KEY,
			"date" DATE NOT NULL,
			"payor_id" BIGINT NOT NULL REFERENCES "payor"("id") ON DELETE CASCADE,
			"label" TEXT NOT NULL DEFAULT '',
			"comment" TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS "cell_entry" (
			"or_num" BIGINT NOT NULL REFERENCES "ledger_row"("or_num") ON DELETE CASCADE ON UPDATE CASCADE,
			"subheader_id" BIGINT NOT NULL REFERENCES "subheader"("id") ON DELETE CASCADE,
			"amount" NUMERIC(18,2) NOT NULL,
			PRIMARY KEY ("or_num", "subheader_id")
		)`,
	},
	SyncSequence: func(t domain.Table) string {
		return fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), (SELECT COALESCE(MAX("id"), 1) FROM "%[1]s"))`, t)
	},
}

// MySQL is the dialect of github.com/go-sql-driver/mysql.
var MySQL = Dialect{
	Name:        "mysql",
	Placeholder: questionMark,
	Quote:       backtick,
	Schema: []string{
		"CREATE TABLE IF NOT EXISTS `payor` (" +
			"`id` BIGINT AUTO_INCREMENT PRIMARY KEY," +
			"`name` VARCHAR(255) NOT NULL," +
			"`label` VARCHAR(64) NOT NULL DEFAULT ''" +
			") ENGINE=InnoDB",
		"CREATE TABLE IF NOT EXISTS `header` (" +
			"`id` BIGINT AUTO_INCREMENT PRIMARY KEY," +
			"`name` VARCHAR(255) NOT NULL," +
			"`sort_order` INT NOT NULL DEFAULT 0" +
			") ENGINE=InnoDB",
		"CREATE TABLE IF NOT EXISTS `subheader` (" +
			"`id` BIGINT AUTO_INCREMENT PRIMARY KEY," +
			"`header_id` BIGINT NOT NULL," +
			"`name` VARCHAR(255) NOT NULL," +
			"`sort_order` INT NOT NULL DEFAULT 0," +
			"FOREIGN KEY (`header_id`) REFERENCES `header`(`id`) ON DELETE CASCADE" +
			") ENGINE=InnoDB",
		"CREATE TABLE IF NOT EXISTS `ledger_row` (" +
			"`or_num` BIGINT PRIMARY KEY," +
			"`date` DATE NOT NULL," +
			"`payor_id` BIGINT NOT NULL," +
			"`label` VARCHAR(64) NOT NULL DEFAULT ''," +
			"`comment` TEXT NOT NULL," +
			"FOREIGN KEY (`payor_id`) REFERENCES `payor`(`id`) ON DELETE CASCADE" +
			") ENGINE=InnoDB",
		"CREATE TABLE IF NOT EXISTS `cell_entry` (" +
			"`or_num` BIGINT NOT NULL," +
			"`subheader_id` BIGINT NOT NULL," +
			"`amount` DECIMAL(18,2) NOT NULL," +
			"PRIMARY KEY (`or_num`, `subheader_id`)," +
			"FOREIGN KEY (`or_num`) REFERENCES `ledger_row`(`or_num`) ON DELETE CASCADE ON UPDATE CASCADE," +
			"FOREIGN KEY (`subheader_id`) REFERENCES `subheader`(`id`) ON DELETE CASCADE" +
			") ENGINE=InnoDB",
	},
}
