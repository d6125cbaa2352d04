package config

import (
	"embed"
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed endpoints/*.yaml
var endpointResources embed.FS

// Layer identifies which chain within a network an endpoint list serves.
type Layer string

const (
	LayerRelayChain Layer = "relay_chain"
	LayerAssetHub   Layer = "asset_hub"
)

// endpointsFile mirrors the on-disk YAML resource shape — one list of
// WebSocket URLs per layer.
type endpointsFile struct {
	RelayChain []string `yaml:"relay_chain"`
	AssetHub   []string `yaml:"asset_hub"`
}

// Endpoints returns the configured endpoint pool for one layer of a network,
// honoring CUSTOM_RPC_ENDPOINT as a singleton override of the RC list.
func Endpoints(cfg Config, layer Layer) ([]string, error) {
	if layer == LayerRelayChain && cfg.CustomRPCEndpoint != "" {
		return []string{cfg.CustomRPCEndpoint}, nil
	}

	raw, err := endpointResources.ReadFile(fmt.Sprintf("endpoints/%s.yaml", cfg.Chain))
	if err != nil {
		return nil, errors.Wrapf(err, "no endpoint resource for chain %q", cfg.Chain)
	}
	var parsed endpointsFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.Wrap(err, "parsing endpoint resource")
	}

	switch layer {
	case LayerRelayChain:
		if len(parsed.RelayChain) == 0 {
			return nil, errors.Errorf("no relay_chain endpoints configured for %q", cfg.Chain)
		}
		return parsed.RelayChain, nil
	case LayerAssetHub:
		if len(parsed.AssetHub) == 0 {
			return nil, errors.Errorf("no asset_hub endpoints configured for %q", cfg.Chain)
		}
		return parsed.AssetHub, nil
	default:
		return nil, errors.Errorf("unknown layer %q", layer)
	}
}
