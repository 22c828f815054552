// Package db stores conversation turns per session in badger.
package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"bookdesk/models"
)

const sessionTTL = 7 * 24 * time.Hour

type DB struct {
	badgerDB *badger.DB
	seq      atomic.Uint64
}

// New opens the store at dbPath. An empty path opens an in-memory store.
func New(dbPath string) (*DB, error) {
	opts := badger.DefaultOptions(dbPath)
	if dbPath == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	badgerDB, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &DB{badgerDB: badgerDB}, nil
}

func (d *DB) Close() error {
	return d.badgerDB.Close()
}

type storedTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
	At   int64  `json:"at"`
}

// ErrInvalidSession is returned for empty session ids and ids containing ':'.
var ErrInvalidSession = errors.New("invalid session id")

func sessionPrefix(sessionID string) (string, error) {
	if sessionID == "" || strings.ContainsRune(sessionID, ':') {
		return "", ErrInvalidSession
	}
	return "turn:" + sessionID + ":", nil
}

// AppendTurn records one message of a session. Turns expire a week after
// they were written.
func (d *DB) AppendTurn(sessionID, role, text string) error {
	prefix, err := sessionPrefix(sessionID)
	if err != nil {
		return err
	}
	now := time.Now()
	// The sequence breaks ties between turns written in the same nanosecond.
	key := fmt.Sprintf("%s%020d-%010d", prefix, now.UnixNano(), d.seq.Add(1))

	data, err := json.Marshal(storedTurn{Role: role, Text: text, At: now.Unix()})
	if err != nil {
		return err
	}
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), data).WithTTL(sessionTTL))
	})
}

// RecentTurns returns up to n of the latest turns of a session, oldest first.
func (d *DB) RecentTurns(sessionID string, n int) ([]models.Turn, error) {
	prefix, err := sessionPrefix(sessionID)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	var turns []models.Turn
	err = d.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must start past the last key with the prefix.
		seek := append([]byte(prefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix) && len(turns) < n; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var st storedTurn
				if err := json.Unmarshal(val, &st); err != nil {
					return err
				}
				turns = append(turns, models.Turn{Role: st.Role, Text: st.Text})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
