package consul

import (
	"bytes"
	"context"
	"slices"
	"strings"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
)

// casAttempts bounds how often an append re-reads after losing a check-and-set.
const casAttempts = 3

func (cb *ConsulBackend) LoadLedger(ctx context.Context, key string) ([]*data.Version, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	versions, _, err := cb.load(ctx, key)
	return versions, err
}

func (cb *ConsulBackend) AppendLedger(ctx context.Context, key string, v *data.Version) error {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	requested := v.Number
	for attempt := 0; attempt < casAttempts; attempt++ {
		versions, index, err := cb.load(ctx, key)
		if err != nil {
			return errors.Persistence(err, key)
		}

		v.Number = requested
		if err := data.AssignVersion(versions, v); err != nil {
			return errors.Persistence(err, key)
		}

		pair := &api.KVPair{
			Key:         cb.buildKey(key),
			Value:       data.EncodeLedger(append(versions, v)),
			ModifyIndex: index,
		}

		ok, _, err := cb.kv.CAS(pair, (&api.WriteOptions{}).WithContext(ctx))
		if err != nil {
			return errors.Persistence(err, key)
		}
		if ok {
			return nil
		}
	}

	return errors.Persistence(data.ErrBusy, key)
}

func (cb *ConsulBackend) ReplaceLedger(ctx context.Context, key string, versions []*data.Version) error {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	pair := &api.KVPair{
		Key:   cb.buildKey(key),
		Value: data.EncodeLedger(versions),
	}
	if _, err := cb.kv.Put(pair, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return errors.Persistence(err, key)
	}

	return nil
}

func (cb *ConsulBackend) ListLedgers(ctx context.Context) ([]string, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	prefix := cb.ledgerPrefix()
	consulKeys, _, err := cb.kv.Keys(prefix, "/", (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(consulKeys))
	for _, consulKey := range consulKeys {
		escaped := strings.TrimPrefix(consulKey, prefix)
		if escaped == "" || strings.HasSuffix(escaped, "/") {
			continue
		}
		key, err := backend.UnescapeKey(escaped)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}

	slices.Sort(keys)
	return keys, nil
}

// load returns the ledger together with the ModifyIndex used for check-and-set.
func (cb *ConsulBackend) load(ctx context.Context, key string) ([]*data.Version, uint64, error) {
	pair, _, err := cb.kv.Get(cb.buildKey(key), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, 0, err
	}
	if pair == nil {
		return []*data.Version{}, 0, nil
	}

	versions, _, err := data.DecodeLedger(bytes.NewReader(pair.Value))
	if err != nil {
		return nil, 0, err
	}
	if versions == nil {
		versions = []*data.Version{}
	}

	return versions, pair.ModifyIndex, nil
}
