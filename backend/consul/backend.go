package consul

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/histfs/backend"
)

// ConsulBackend keeps version ledgers in the Consul KV store, one value per
// logical file, encoded in the same line format as the local ledger files.
//
// Consul limits values to 512KB, which is plenty for ledgers but not for blobs,
// so this backend only serves as a ledger.
type ConsulBackend struct {
	mu     sync.RWMutex
	client *api.Client
	kv     *api.KV

	config *ConsulBackendConfig
}

var _ backend.LedgerBackend = (*ConsulBackend)(nil)

// ConsulBackendConfig contains configuration options for the Consul backend
type ConsulBackendConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string
	// Token for Consul ACL authentication (optional)
	Token string
	// Datacenter to use (optional)
	Datacenter string
	// Namespace for Consul Enterprise (optional)
	Namespace string
	// Prefix for all ledger keys (default: "histfs")
	Prefix string
}

func NewConsulBackend(config *ConsulBackendConfig) (*ConsulBackend, error) {
	if config == nil {
		config = &ConsulBackendConfig{}
	}
	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}
	config.Prefix = strings.Trim(config.Prefix, "/")
	if config.Prefix == "" {
		config.Prefix = "histfs"
	}

	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}
	if config.Namespace != "" {
		clientConfig.Namespace = config.Namespace
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &ConsulBackend{
		client: client,
		kv:     client.KV(),
		config: config,
	}, nil
}

func (*ConsulBackend) Name() string {
	return "consul"
}

// Open checks that the agent is reachable and has a leader.
func (cb *ConsulBackend) Open(ctx context.Context) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	leader, err := cb.client.Status().LeaderWithQueryOptions((&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to reach consul at '%s': %w", cb.config.Address, err)
	}
	if leader == "" {
		return fmt.Errorf("consul at '%s' has no leader", cb.config.Address)
	}

	return nil
}

func (cb *ConsulBackend) Close(ctx context.Context) error {
	return nil
}

func (cb *ConsulBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityLedger,
			backend.CapabilityAtomicReplace,
			backend.CapabilityPersistent,
		},
		MaxObjectSize: 512 * 1024,
	}
}

func (cb *ConsulBackend) ledgerPrefix() string {
	return cb.config.Prefix + "/ledgers/"
}

func (cb *ConsulBackend) buildKey(key string) string {
	return cb.ledgerPrefix() + backend.EscapeKey(key)
}
