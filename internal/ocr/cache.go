package ocr

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const textBucket = "ocr_text"

// Cache keeps recognized text per image hash, so repeated runs over the
// same mailbox do not pay for tesseract twice.
type Cache struct {
	db *bbolt.DB
}

func OpenCache(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open ocr cache: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(textBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Get(key string) (string, bool) {
	var text string
	var found bool
	_ = c.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(textBucket)).Get([]byte(key)); v != nil {
			text = string(v)
			found = true
		}
		return nil
	})
	return text, found
}

func (c *Cache) Put(key, text string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(textBucket)).Put([]byte(key), []byte(text))
	})
}

func (c *Cache) Close() error {
	return c.db.Close()
}
