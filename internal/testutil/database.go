package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB expects a local MySQL with a 'moonbounce_test' database and
// skips the test when it is not reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := "root:@tcp(localhost:3306)/moonbounce_test?parseTime=true"
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"AgreementEvents", "OrderItems", "Orders"}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

func SetupTestTables(t *testing.T, db *sql.DB) {
	createOrdersTable := `
	CREATE TABLE IF NOT EXISTS Orders (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		customerName VARCHAR(150) NOT NULL,
		customerEmail VARCHAR(150) NOT NULL,
		phone VARCHAR(30),
		address VARCHAR(255),
		status VARCHAR(50) DEFAULT 'PENDING',
		totalAmount DECIMAL(10,2) DEFAULT 0.00,
		deliveryDate DATETIME,
		agreementStatus VARCHAR(20) NOT NULL DEFAULT 'not_sent',
		agreementSubmissionId VARCHAR(64),
		agreementSignedAt DATETIME,
		agreementViewedAt DATETIME,
		deliveryBlocked TINYINT(1) NOT NULL DEFAULT 1,
		overrideReason VARCHAR(255),
		overrideBy VARCHAR(150),
		overrideAt DATETIME,
		lastReminderTier VARCHAR(20) NOT NULL DEFAULT 'none',
		lastReminderSentAt DATETIME,
		agreementVersion INT NOT NULL DEFAULT 0,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_submission (agreementSubmissionId),
		INDEX idx_agreement_status (agreementStatus)
	)`

	createOrderItemsTable := `
	CREATE TABLE IF NOT EXISTS OrderItems (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		orderId INT UNSIGNED NOT NULL,
		productName VARCHAR(255) NOT NULL,
		quantity INT DEFAULT 1,
		price DECIMAL(10,2) NOT NULL,
		FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE,
		INDEX idx_order (orderId)
	)`

	createAgreementEventsTable := `
	CREATE TABLE IF NOT EXISTS AgreementEvents (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		orderId INT UNSIGNED NOT NULL,
		type VARCHAR(50) NOT NULL,
		actor VARCHAR(150),
		detail JSON,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_order (orderId)
	)`

	tables := []struct {
		name  string
		query string
	}{
		{"Orders", createOrdersTable},
		{"OrderItems", createOrderItemsTable},
		{"AgreementEvents", createAgreementEventsTable},
	}

	for _, tbl := range tables {
		if _, err := db.Exec(tbl.query); err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}
