package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/models"
)

// storedMessage is the envelope persisted in Badger around a queue message.
type storedMessage struct {
	ID           string              `json:"id"`
	Body         models.QueueMessage `json:"body"`
	EnqueuedAt   time.Time           `json:"enqueued_at"`
	VisibleAt    time.Time           `json:"visible_at"`
	ReceiveCount int                 `json:"receive_count"`
}

// Delivery is one received message plus its claim metadata. The receiver
// must either Done or Release it; doing neither leaves the message invisible
// until the visibility timeout expires and another worker reclaims it.
type Delivery struct {
	Msg     models.QueueMessage
	ID      string
	Attempt int
}

// Manager is a durable at-least-once queue on Badger. Messages are stored
// under a data key and indexed by visibility time, so receiving scans only
// the index prefix in timestamp order. Claiming a message moves its index
// entry to now+visibilityTimeout, which doubles as the per-job processing
// lock: a crashed worker's claim simply expires.
type Manager struct {
	db                *badger.DB
	queueName         string
	visibilityTimeout time.Duration
	logger            arbor.ILogger
}

func NewManager(db *badger.DB, queueName string, visibilityTimeout time.Duration, logger arbor.ILogger) (*Manager, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 2 * time.Minute
	}

	return &Manager{
		db:                db,
		queueName:         queueName,
		visibilityTimeout: visibilityTimeout,
		logger:            logger,
	}, nil
}

// Enqueue adds a message, immediately visible.
func (m *Manager) Enqueue(ctx context.Context, msg models.QueueMessage) error {
	stored := storedMessage{
		ID:         uuid.New().String(),
		Body:       msg,
		EnqueuedAt: time.Now(),
		VisibleAt:  time.Now(),
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(m.msgKey(stored.ID), data); err != nil {
			return err
		}
		return txn.Set(m.indexKey(stored.VisibleAt, stored.ID), []byte{})
	})
}

// Receive claims the next visible message. Returns models.ErrNoMessage when
// nothing is ready. Attempt counts this delivery, so a first receive reports
// Attempt == 1.
func (m *Manager) Receive(ctx context.Context) (*Delivery, error) {
	var stored storedMessage
	var claimed bool

	err := m.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:index:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)

			ts, id, err := m.parseIndexKey(key)
			if err != nil {
				continue
			}

			// Index keys sort by timestamp, so the first future entry means
			// nothing else is ready either.
			if ts.After(now) {
				break
			}

			item, err := txn.Get(m.msgKey(id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					// Orphaned index entry, clean it up.
					if err := txn.Delete(key); err != nil {
						return err
					}
					continue
				}
				return err
			}

			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			}); err != nil {
				return err
			}

			stored.ReceiveCount++
			stored.VisibleAt = now.Add(m.visibilityTimeout)

			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := txn.Set(m.msgKey(id), data); err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			if err := txn.Set(m.indexKey(stored.VisibleAt, id), []byte{}); err != nil {
				return err
			}

			claimed = true
			return nil
		}

		return models.ErrNoMessage
	})

	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, models.ErrNoMessage
	}

	return &Delivery{
		Msg:     stored.Body,
		ID:      stored.ID,
		Attempt: stored.ReceiveCount,
	}, nil
}

// Done removes a processed message permanently.
func (m *Manager) Done(ctx context.Context, d *Delivery) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return m.removeMessage(txn, d.ID)
	})
}

// Release makes a claimed message visible again after a delay, used for
// backoff between retry attempts.
func (m *Manager) Release(ctx context.Context, d *Delivery, delay time.Duration) error {
	return m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(m.msgKey(d.ID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		var stored storedMessage
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		}); err != nil {
			return err
		}

		oldIndexKey := m.indexKey(stored.VisibleAt, d.ID)
		stored.VisibleAt = time.Now().Add(delay)

		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		if err := txn.Set(m.msgKey(d.ID), data); err != nil {
			return err
		}
		if err := txn.Delete(oldIndexKey); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(m.indexKey(stored.VisibleAt, d.ID), []byte{})
	})
}

// RemoveByJobID deletes any pending message for a job, used by cancellation.
// Returns true if a message was found and removed.
func (m *Manager) RemoveByJobID(ctx context.Context, jobID string) (bool, error) {
	removed := false

	err := m.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(fmt.Sprintf("queue:%s:msg:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var stored storedMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			}); err != nil {
				continue
			}

			if stored.Body.JobID != jobID {
				continue
			}

			if err := m.removeMessage(txn, stored.ID); err != nil {
				return err
			}
			removed = true
		}
		return nil
	})

	return removed, err
}

// Depth counts pending messages, visible or claimed.
func (m *Manager) Depth(ctx context.Context) (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:msg:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// removeMessage deletes a message and its index entry inside a transaction.
func (m *Manager) removeMessage(txn *badger.Txn, id string) error {
	msgKey := m.msgKey(id)
	item, err := txn.Get(msgKey)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	}

	var stored storedMessage
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stored)
	}); err != nil {
		return err
	}

	if err := txn.Delete(m.indexKey(stored.VisibleAt, id)); err != nil && err != badger.ErrKeyNotFound {
		return err
	}
	return txn.Delete(msgKey)
}

func (m *Manager) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", m.queueName, id))
}

func (m *Manager) indexKey(visibleAt time.Time, id string) []byte {
	// Zero pad to 20 digits so string ordering matches numeric ordering.
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", m.queueName, visibleAt.UnixNano(), id))
}

func (m *Manager) parseIndexKey(key []byte) (time.Time, string, error) {
	prefix := fmt.Sprintf("queue:%s:index:", m.queueName)
	suffix := strings.TrimPrefix(string(key), prefix)
	if len(suffix) < 22 {
		return time.Time{}, "", fmt.Errorf("invalid index key %q", key)
	}

	var ts int64
	if _, err := fmt.Sscanf(suffix[:20], "%d", &ts); err != nil {
		return time.Time{}, "", err
	}

	return time.Unix(0, ts), suffix[21:], nil
}
