package app

import (
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const prefsBucket = "prefs"

// Preference keys.
const (
	PrefSelectedCamera = "selected_camera"
	PrefLastStore      = "last_store"
)

// PrefStore persists small operator preferences (last selected camera, last
// used store) across restarts. Losing it costs nothing but convenience, so
// every caller treats a nil store as "no preference".
type PrefStore struct {
	db *bolt.DB
}

// OpenPrefStore opens (or creates) the preference database under workdir.
func OpenPrefStore(workdir string) (*PrefStore, error) {
	db, err := bolt.Open(filepath.Join(workdir, "prefs.db"), 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open preference store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(prefsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init preference bucket")
	}
	return &PrefStore{db: db}, nil
}

// Put stores a preference value under key.
func (s *PrefStore) Put(key string, value interface{}) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode preference %s", key)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(prefsBucket)).Put([]byte(key), data)
	})
}

// Get loads a preference into out; found is false when the key is absent.
func (s *PrefStore) Get(key string, out interface{}) (bool, error) {
	if s == nil {
		return false, nil
	}
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(prefsBucket)).Get([]byte(key))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, errors.Wrapf(err, "decode preference %s", key)
	}
	return true, nil
}

// Close closes the underlying database.
func (s *PrefStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
