package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/aman-zulfiqar/yield-router/internal/models"
)

type fileConfig struct {
	Network                 string              `mapstructure:"network"`
	ChainID                 int64               `mapstructure:"chain_id"`
	Pools                   map[string]filePool `mapstructure:"pools"`
	MStable                 string              `mapstructure:"mstable"`
	MStableValidationHelper string              `mapstructure:"mstable_validation_helper"`
	RGTDistributor          string              `mapstructure:"rgt_distributor"`
	Assets                  []fileAsset         `mapstructure:"assets"`
}

type filePool struct {
	FundManager string `mapstructure:"fund_manager"`
	FundProxy   string `mapstructure:"fund_proxy"`
}

type fileAsset struct {
	Symbol   string `mapstructure:"symbol"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
}

// Load reads a chain context from a YAML/JSON/TOML file.
// Values missing from the file keep their mainnet defaults.
// An empty path returns Mainnet().
func Load(path string) (*Context, error) {
	ctx := Mainnet()
	if strings.TrimSpace(path) == "" {
		return ctx, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading chain config %s: %w", path, err)
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parsing chain config %s: %w", path, err)
	}

	if err := fc.apply(ctx); err != nil {
		return nil, fmt.Errorf("chain config %s: %w", path, err)
	}
	if err := ctx.Validate(); err != nil {
		return nil, fmt.Errorf("chain config %s: %w", path, err)
	}
	return ctx, nil
}

func (fc *fileConfig) apply(ctx *Context) error {
	if fc.Network != "" {
		ctx.Network = fc.Network
	}
	if fc.ChainID != 0 {
		ctx.ChainID = fc.ChainID
	}

	for name, fp := range fc.Pools {
		pool, err := models.ParsePool(name)
		if err != nil {
			return err
		}
		manager, err := parseAddress("pools."+name+".fund_manager", fp.FundManager)
		if err != nil {
			return err
		}
		proxy, err := parseAddress("pools."+name+".fund_proxy", fp.FundProxy)
		if err != nil {
			return err
		}
		ctx.Pools[pool] = PoolContracts{FundManager: manager, FundProxy: proxy}
	}

	overrides := []struct {
		field string
		raw   string
		dst   *common.Address
	}{
		{"mstable", fc.MStable, &ctx.MStable},
		{"mstable_validation_helper", fc.MStableValidationHelper, &ctx.MStableValidationHelper},
		{"rgt_distributor", fc.RGTDistributor, &ctx.RGTDistributor},
	}
	for _, o := range overrides {
		if o.raw == "" {
			continue
		}
		addr, err := parseAddress(o.field, o.raw)
		if err != nil {
			return err
		}
		*o.dst = addr
	}

	for i, fa := range fc.Assets {
		if fa.Symbol == "" {
			return fmt.Errorf("assets[%d]: symbol is required", i)
		}
		addr := common.Address{}
		if fa.Address != "" {
			a, err := parseAddress(fmt.Sprintf("assets[%d].address", i), fa.Address)
			if err != nil {
				return err
			}
			addr = a
		}
		ctx.Assets[fa.Symbol] = models.Asset{Symbol: fa.Symbol, Address: addr, Decimals: fa.Decimals}
	}
	return nil
}

func parseAddress(field, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, s)
	}
	return common.HexToAddress(s), nil
}
