package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang-algotrade/internal/dto"
	"golang-algotrade/pkg/decoder"
)

// FileRepository reads bar series, strategy documents and parameter lists
// from local files.
type FileRepository interface {
	LoadBars(path string) (*dto.BarSeries, error)
	LoadStrategy(path string) (dto.StrategyConfig, error)
	LoadParams(path string) ([]dto.ParamRange, error)
}

type fileRepository struct{}

func NewFileRepository() FileRepository {
	return &fileRepository{}
}

// LoadBars accepts either a JSON array of bars or a JSON object with a
// "bars" array. The symbol defaults to the file name.
func (r *fileRepository) LoadBars(path string) (*dto.BarSeries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bars file: %w", err)
	}

	series := &dto.BarSeries{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &series.Bars)
	} else {
		err = json.Unmarshal(trimmed, series)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode bars file %s: %w", path, err)
	}

	if series.Symbol == "" {
		series.Symbol = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return series, nil
}

// LoadStrategy reads a YAML or JSON strategy document.
func (r *fileRepository) LoadStrategy(path string) (dto.StrategyConfig, error) {
	var cfg dto.StrategyConfig
	if err := decodeFile(path, &cfg); err != nil {
		return dto.StrategyConfig{}, err
	}
	return cfg, nil
}

// LoadParams reads a parameter list, either bare or under a "parameters" key.
func (r *fileRepository) LoadParams(path string) ([]dto.ParamRange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}
	tree, err := decoder.Parse(data)
	if err != nil {
		return nil, err
	}
	if m, ok := tree.(map[string]interface{}); ok {
		tree = m["parameters"]
	}

	var params []dto.ParamRange
	if err := decoder.Decode(tree, &params); err != nil {
		return nil, fmt.Errorf("params file %s: %w", path, err)
	}
	return params, nil
}

func decodeFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	tree, err := decoder.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := decoder.Decode(tree, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
