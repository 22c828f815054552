package service

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var (
	janTenth     = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	febFifteenth = time.Date(2026, 2, 15, 14, 30, 0, 0, time.UTC)
)

const testSchema = `
CREATE TABLE book (id INTEGER PRIMARY KEY, title TEXT, author TEXT, isbn TEXT, category TEXT,
  price DECIMAL(10,2), cost DECIMAL(10,2), stock_quantity INTEGER, reorder_level INTEGER, published_year INTEGER);
CREATE TABLE customer (id INTEGER PRIMARY KEY, full_name TEXT, email TEXT, phone TEXT);
CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER, status TEXT, order_date DATETIME, total_amount DECIMAL(10,2));
CREATE TABLE order_item (id INTEGER PRIMARY KEY, order_id INTEGER, book_id INTEGER, quantity INTEGER, unit_price DECIMAL(10,2));
CREATE TABLE invoice (id INTEGER PRIMARY KEY, order_id INTEGER, invoice_number TEXT, issued_at DATETIME, amount DECIMAL(10,2), status TEXT);
`

// openTestStore returns a seeded sqlite database shaped like the reporting
// replica:
//
//	order 100 Delivered (Jan): 2 x Dune @20, 1 x Emma @10
//	order 101 Confirmed (Feb): 1 x Emma @10
//	order 102 Delivered (Feb): 1 x Neuromancer @15
//	order 103 Cancelled (Feb): 1 x Dune @20
func openTestStore(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	exec := func(query string, args ...any) {
		_, err := db.Exec(query, args...)
		require.NoError(t, err)
	}
	exec(`INSERT INTO book VALUES (1, 'Dune', 'Frank Herbert', '9780441013593', 'Science Fiction', 20, 8, 10, 3, 1965)`)
	exec(`INSERT INTO book VALUES (2, 'Emma', 'Jane Austen', '9780141439587', 'Classics', 10, 4, 2, NULL, 1815)`)
	exec(`INSERT INTO book VALUES (3, 'Neuromancer', 'William Gibson', '9780441569595', 'Science Fiction', 15, 6, 0, 2, 1984)`)
	exec(`INSERT INTO customer VALUES (1, 'Ada Lovelace', 'ada@example.com', '555-0100-123')`)
	exec(`INSERT INTO customer VALUES (2, 'Alan Turing', 'alan@example.com', '555-0199-456')`)
	exec(`INSERT INTO orders VALUES (100, 1, 'Delivered', ?, 50)`, janTenth)
	exec(`INSERT INTO orders VALUES (101, 1, 'Confirmed', ?, 10)`, febFifteenth)
	exec(`INSERT INTO orders VALUES (102, 2, 'Delivered', ?, 15)`, febFifteenth)
	exec(`INSERT INTO orders VALUES (103, 2, 'Cancelled', ?, 20)`, febFifteenth)
	exec(`INSERT INTO order_item VALUES (1, 100, 1, 2, 20)`)
	exec(`INSERT INTO order_item VALUES (2, 100, 2, 1, 10)`)
	exec(`INSERT INTO order_item VALUES (3, 101, 2, 1, 10)`)
	exec(`INSERT INTO order_item VALUES (4, 102, 3, 1, 15)`)
	exec(`INSERT INTO order_item VALUES (5, 103, 1, 1, 20)`)
	exec(`INSERT INTO invoice VALUES (1, 100, 'INV-1001', ?, 50, 'Paid')`, janTenth)
	return db
}

func newTestCatalog(t *testing.T) (*Catalog, *sql.DB) {
	t.Helper()
	db := openTestStore(t)
	return NewCatalog(NewExecutor(db, 5*time.Second, nil), "sqlite", nil), db
}
