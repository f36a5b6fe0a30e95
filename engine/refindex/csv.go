package refindex

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/carthesien/enrich/engine/domain"
)

// fuelCodes maps the technical dataset's fuel codes to the domain enum.
// Plain words are accepted too, for hand-maintained extracts.
var fuelCodes = map[string]domain.Fuel{
	"es":            domain.FuelPetrol,
	"go":            domain.FuelDiesel,
	"el":            domain.FuelElectric,
	"eh":            domain.FuelHybrid,
	"ee":            domain.FuelPlugInHybrid,
	"gh":            domain.FuelHybrid,
	"gp":            domain.FuelLPG,
	"gn":            domain.FuelCNG,
	"petrol":        domain.FuelPetrol,
	"essence":       domain.FuelPetrol,
	"diesel":        domain.FuelDiesel,
	"electric":      domain.FuelElectric,
	"hybrid":        domain.FuelHybrid,
	"plugin_hybrid": domain.FuelPlugInHybrid,
	"lpg":           domain.FuelLPG,
	"cng":           domain.FuelCNG,
}

// CSVSource loads variants from a delimited export of the technical dataset.
// The delimiter is sniffed from the header line; decimal commas are accepted.
type CSVSource struct {
	Path string
}

func (s CSVSource) Load(ctx context.Context) ([]domain.CanonicalVariant, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("refindex: open %s: %w", s.Path, err)
	}
	defer f.Close()
	return ParseCSV(ctx, f)
}

// ParseCSV reads the variant export from r.
func ParseCSV(ctx context.Context, r io.Reader) ([]domain.CanonicalVariant, error) {
	br := bufio.NewReader(r)
	headerLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("refindex: read header: %w", err)
	}
	comma := ','
	if strings.Count(headerLine, ";") > strings.Count(headerLine, ",") {
		comma = ';'
	}

	parseRow := csv.NewReader(strings.NewReader(headerLine))
	parseRow.Comma = comma
	header, err := parseRow.Read()
	if err != nil {
		return nil, fmt.Errorf("refindex: parse header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"brand", "model", "fuel", "max_power_kw"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("refindex: missing column %q", required)
		}
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1

	var out []domain.CanonicalVariant
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("refindex: line %d: %w", line, err)
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		fuel, ok := fuelCodes[strings.ToLower(get("fuel"))]
		if !ok {
			continue // unusable without a fuel type
		}
		v := domain.CanonicalVariant{
			Brand:            get("brand"),
			Model:            get("model"),
			Generation:       parseInt(get("generation")),
			YearFrom:         parseInt(get("year_from")),
			YearTo:           parseInt(get("year_to")),
			Fuel:             fuel,
			MaxPowerKW:       parseFloat(get("max_power_kw")),
			FiscalPowerCV:    parseInt(get("fiscal_power_cv")),
			MixedConsumption: parseFloat(get("mixed_consumption")),
			CO2GPerKM:        parseFloat(get("co2_g_per_km")),
			Label:            get("label"),
			Category:         domain.Category(strings.ToUpper(get("category"))),
		}
		if v.Brand == "" || v.Model == "" || v.MaxPowerKW <= 0 {
			continue
		}
		v.Key = VariantKey(v)
		out = append(out, v)
	}
	return out, nil
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	return f
}
