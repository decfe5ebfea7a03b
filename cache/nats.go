package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"
)

func (c *Cache[T]) connectNATS() error {
	nc, err := nats.Connect(c.cfg.NATSURL,
		nats.Timeout(5*time.Second),
		nats.PingInterval(20*time.Second),
		nats.MaxPingsOutstanding(3),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return fmt.Errorf("getting JetStream context: %w", err)
	}

	kv, err := js.KeyValue(c.cfg.NATSBucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:  c.cfg.NATSBucket,
			Storage: nats.FileStorage,
			TTL:     c.cfg.DefaultTTL,
		})
	}
	if err != nil {
		nc.Close()
		return fmt.Errorf("opening bucket %q: %w", c.cfg.NATSBucket, err)
	}

	c.nc = nc
	c.kv = kv
	return nil
}

// mirror publishes item to the shared bucket. Entries also carry their
// expiry there, so a reader on another process applies the same TTL.
func (c *Cache[T]) mirror(key string, item Item[T]) error {
	if c.kv == nil {
		return nil
	}

	data, err := msgpack.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding %q for bucket: %w", key, err)
	}
	if _, err := c.kv.Put(key, data); err != nil {
		return fmt.Errorf("mirroring %q: %w", key, err)
	}
	return nil
}

func (c *Cache[T]) fetchMirror(key string, now int64) (Item[T], bool) {
	if c.kv == nil {
		return Item[T]{}, false
	}

	entry, err := c.kv.Get(key)
	if err != nil {
		if !errors.Is(err, nats.ErrKeyNotFound) {
			c.log.Warn().Err(err).Str("key", key).Msg("reading from bucket")
		}
		return Item[T]{}, false
	}

	var item Item[T]
	if err := msgpack.Unmarshal(entry.Value(), &item); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("decoding bucket entry")
		return Item[T]{}, false
	}
	if item.expiredAt(now) {
		return Item[T]{}, false
	}
	return item, true
}
