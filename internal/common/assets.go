package common

import (
	"fmt"
	"os"
	"path/filepath"

	"crypto-broker-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type assetEntry struct {
	Symbol         string `yaml:"symbol"`
	Name           string `yaml:"name"`
	CoingeckoId    string `yaml:"coingecko_id"`
	Network        string `yaml:"network"`
	DepositAddress string `yaml:"deposit_address"`
	FallbackPrice  string `yaml:"fallback_price"`
}

type assetsFile struct {
	Assets []assetEntry `yaml:"assets"`
}

func LoadAssetConfig(path string) ([]models.AssetSpec, error) {
	var assetsPath string
	if filepath.IsAbs(path) {
		assetsPath = path
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		assetsPath = filepath.Join(wd, path)
	}

	data, err := os.ReadFile(assetsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	var config assetsFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}

	specs := make([]models.AssetSpec, 0, len(config.Assets))
	for i, asset := range config.Assets {
		if asset.Symbol == "" {
			return nil, fmt.Errorf("asset at index %d missing symbol", i)
		}
		if asset.Network == "" {
			return nil, fmt.Errorf("asset at index %d missing network", i)
		}
		if asset.CoingeckoId == "" {
			return nil, fmt.Errorf("asset %s missing coingecko_id", asset.Symbol)
		}

		fallback, err := decimal.NewFromString(asset.FallbackPrice)
		if err != nil {
			return nil, fmt.Errorf("asset %s has invalid fallback_price %q: %w", asset.Symbol, asset.FallbackPrice, err)
		}

		specs = append(specs, models.AssetSpec{
			Symbol:         asset.Symbol,
			Name:           asset.Name,
			CoingeckoId:    asset.CoingeckoId,
			Network:        asset.Network,
			DepositAddress: asset.DepositAddress,
			FallbackPrice:  fallback,
		})
	}

	return specs, nil
}

func LoadAssetSymbols(path string) ([]string, error) {
	assets, err := LoadAssetConfig(path)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, len(assets))
	for i, asset := range assets {
		symbols[i] = asset.Symbol
	}

	return symbols, nil
}
