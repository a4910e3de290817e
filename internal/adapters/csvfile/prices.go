package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alejandrodnm/blotter/internal/domain"
)

// priceColumns son las columnas obligatorias del CSV de precios. Se aceptan también
// los nombres que devuelve el proveedor de datos ("Close Price", etc.).
var priceColumns = []string{"date", "open", "high", "low", "close"}

// PriceLoader implementa ports.PriceProvider leyendo un CSV por activo.
type PriceLoader struct {
	paths map[string]string // asset → ruta del CSV
}

// NewPriceLoader crea un loader con el mapa asset → ruta del CSV.
func NewPriceLoader(paths map[string]string) *PriceLoader {
	return &PriceLoader{paths: paths}
}

// LoadPrices lee y valida la serie de un activo.
func (l *PriceLoader) LoadPrices(ctx context.Context, asset string) (domain.PriceSeries, error) {
	path, ok := l.paths[asset]
	if !ok {
		return domain.PriceSeries{}, fmt.Errorf("csvfile.LoadPrices: %w", &domain.ConfigurationError{
			Field:  "assets",
			Value:  asset,
			Reason: "no price file configured",
		})
	}
	if err := ctx.Err(); err != nil {
		return domain.PriceSeries{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("csvfile.LoadPrices: open %q: %w", path, err)
	}
	defer f.Close()

	series, err := ReadPrices(f, asset)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("csvfile.LoadPrices: %s: %w", path, err)
	}
	return series, nil
}

// ReadPrices parsea un CSV con cabecera date, open, high, low, close (en cualquier
// orden, columnas extra ignoradas) y valida la serie resultante.
func ReadPrices(r io.Reader, asset string) (domain.PriceSeries, error) {
	cr := csv.NewReader(decodeText(r))
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.PriceSeries{}, &domain.DataIntegrityError{Asset: asset, Reason: "empty price file"}
	}
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("read header: %w", err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return domain.PriceSeries{}, &domain.DataIntegrityError{Asset: asset, Reason: err.Error()}
	}

	series := domain.PriceSeries{Asset: asset}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("read line %d: %w", line, err)
		}

		bar, err := parseBar(rec, idx)
		if err != nil {
			return domain.PriceSeries{}, &domain.DataIntegrityError{
				Asset:  asset,
				Reason: fmt.Sprintf("line %d: %v", line, err),
			}
		}
		series.Bars = append(series.Bars, bar)
	}

	if err := series.Validate(); err != nil {
		return domain.PriceSeries{}, err
	}
	return series, nil
}

// columnIndex localiza las columnas obligatorias en la cabecera.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(priceColumns))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		name = strings.TrimSuffix(name, " price")
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	for _, col := range priceColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}
	return idx, nil
}

func parseBar(rec []string, idx map[string]int) (domain.PriceBar, error) {
	get := func(col string) (string, error) {
		i := idx[col]
		if i >= len(rec) {
			return "", fmt.Errorf("missing %s", col)
		}
		v := strings.TrimSpace(rec[i])
		if v == "" {
			return "", fmt.Errorf("empty %s", col)
		}
		return v, nil
	}

	raw, err := get("date")
	if err != nil {
		return domain.PriceBar{}, err
	}
	date, err := domain.ParseDate(raw)
	if err != nil {
		return domain.PriceBar{}, fmt.Errorf("bad date %q", raw)
	}

	bar := domain.PriceBar{Date: date}
	for _, f := range []struct {
		col string
		dst *float64
	}{
		{"open", &bar.Open},
		{"high", &bar.High},
		{"low", &bar.Low},
		{"close", &bar.Close},
	} {
		raw, err := get(f.col)
		if err != nil {
			return domain.PriceBar{}, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.PriceBar{}, fmt.Errorf("bad %s %q", f.col, raw)
		}
		*f.dst = v
	}
	return bar, nil
}
