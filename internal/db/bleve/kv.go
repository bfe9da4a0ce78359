package bleve

import (
	"context"
	"encoding/binary"
	"errors"
	"strconv"
	"time"

	"github.com/schemalabz/opencouncil-sub005/internal/db"
)

// Values in internal storage carry an 8-byte big-endian deadline (unix nanos, 0 = none)
// followed by the payload.
const deadlineLen = 8

func encodeValue(deadline int64, payload []byte) []byte {
	buf := make([]byte, deadlineLen+len(payload))
	binary.BigEndian.PutUint64(buf, uint64(deadline))
	copy(buf[deadlineLen:], payload)
	return buf
}

func decodeValue(raw []byte) (int64, []byte, bool) {
	if len(raw) < deadlineLen {
		return 0, nil, false
	}
	return int64(binary.BigEndian.Uint64(raw)), raw[deadlineLen:], true
}

// load returns the live value and its deadline. Caller holds kvMu.
func (s *Store) load(key string) (int64, []byte, error) {
	raw, err := s.kv.GetInternal([]byte(key))
	if err != nil {
		return 0, nil, &db.Error{Op: db.OpGet, Err: err}
	}
	deadline, payload, ok := decodeValue(raw)
	if !ok {
		return 0, nil, db.ErrKeyNotFound
	}
	if deadline != 0 && s.now().UnixNano() >= deadline {
		_ = s.kv.DeleteInternal([]byte(key))
		return 0, nil, db.ErrKeyNotFound
	}
	return deadline, payload, nil
}

func (s *Store) store(key string, deadline int64, payload []byte, op string) error {
	if err := s.kv.SetInternal([]byte(key), encodeValue(deadline, payload)); err != nil {
		return &db.Error{Op: op, Err: err}
	}
	return nil
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.kvMu.Lock()
	defer s.kvMu.Unlock()

	_, payload, err := s.load(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// Set stores a value without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.kvMu.Lock()
	defer s.kvMu.Unlock()
	return s.store(key, 0, value, db.OpSet)
}

// SetWithTTL stores a value that expires after ttl.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.kvMu.Lock()
	defer s.kvMu.Unlock()
	return s.store(key, s.now().Add(ttl).UnixNano(), value, db.OpSet)
}

// IncrBy adds val to the decimal counter at key, creating it at zero.
func (s *Store) IncrBy(_ context.Context, key string, val int64) error {
	s.kvMu.Lock()
	defer s.kvMu.Unlock()

	deadline, payload, err := s.load(key)
	var cur int64
	switch {
	case err == nil:
		cur, err = strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			return &db.Error{Op: db.OpIncrBy, Err: err}
		}
	case errors.Is(err, db.ErrKeyNotFound):
		deadline = 0
	default:
		return err
	}
	return s.store(key, deadline, []byte(strconv.FormatInt(cur+val, 10)), db.OpIncrBy)
}

// Expire sets a TTL on an existing key. With nx, keys that already expire are left alone.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.kvMu.Lock()
	defer s.kvMu.Unlock()

	deadline, payload, err := s.load(key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if nx && deadline != 0 {
		return nil
	}
	return s.store(key, s.now().Add(ttl).UnixNano(), payload, db.OpExpire)
}
