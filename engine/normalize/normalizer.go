package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/carthesien/enrich/engine/domain"
)

// Listing is the canonicalized view of a raw listing. Fields that could not
// be resolved are zero-valued, never errors.
type Listing struct {
	Brand      string // canonical brand, "" when unresolved
	ModelToken string
	Generation int // 0 = unknown
	PowerHP    int // DIN hp after unit disambiguation, 0 = absent
	PowerWasKW bool
	Year       int
	Fuel       domain.Fuel
	Gearbox    domain.Gearbox
	Tokens     []string // unique comparison tokens, order preserved
	Comparison string   // Tokens joined with single spaces
	Raw        domain.ListingInput
}

// Power bounds in DIN hp for extracted candidates.
const (
	minPowerHP = 50
	maxPowerHP = 800
	// Below this, a bare declared value is read as kilowatts.
	kwCutoff = 50
)

var (
	powerUnitRe   = regexp.MustCompile(`\b(\d{2,3})\s*(?:ch|cv|hp|din|chevaux)\b`)
	powerKWRe     = regexp.MustCompile(`\b(\d{2,3})\s*kw\b`)
	powerFamilyRe = regexp.MustCompile(`\b(?:dci|hdi|bluehdi|tdi|tdci|crdi|cdi|tce|tsi|tfsi|thp|vti|puretech|ecoboost|gdi|mpi)\s*(\d{2,3})\b`)
	yearRe        = regexp.MustCompile(`\b(20[0-2]\d)\b`)
	phaseRe       = regexp.MustCompile(`\bphase\s*([1-8])\b`)
)

// fuelVocab maps motorization tokens to a fuel, scanned in priority order so
// an e-tech hybrid with a dci badge still reads hybrid.
var fuelVocab = []struct {
	fuel   domain.Fuel
	tokens []string
}{
	{domain.FuelElectric, []string{"electrique", "electric", "bev", "kwh"}},
	{domain.FuelPlugInHybrid, []string{"phev", "rechargeable", "plug"}},
	{domain.FuelHybrid, []string{"hybride", "hybrid", "hev", "mhev", "etech"}},
	{domain.FuelCNG, []string{"gnv", "cng"}},
	{domain.FuelLPG, []string{"gpl", "lpg"}},
	{domain.FuelDiesel, []string{"diesel", "dci", "hdi", "bluehdi", "tdi", "tdci", "crdi", "cdi", "dti", "ddis", "d4d"}},
	{domain.FuelPetrol, []string{"essence", "tce", "tsi", "tfsi", "thp", "vti", "puretech", "ecoboost", "gdi", "mpi"}},
}

var gearboxVocab = map[string]domain.Gearbox{
	"automatique": domain.GearboxAutomatic,
	"bva":         domain.GearboxAutomatic,
	"eat6":        domain.GearboxAutomatic,
	"eat8":        domain.GearboxAutomatic,
	"dsg":         domain.GearboxAutomatic,
	"edc":         domain.GearboxAutomatic,
	"dct":         domain.GearboxAutomatic,
	"cvt":         domain.GearboxAutomatic,
	"manuelle":    domain.GearboxManual,
	"manual":      domain.GearboxManual,
	"bvm":         domain.GearboxManual,
	"bvm5":        domain.GearboxManual,
	"bvm6":        domain.GearboxManual,
}

// Normalize canonicalizes a raw listing. Side-effect-free and total: garbage
// input yields a Listing with absent fields, never an error.
func Normalize(in domain.ListingInput) Listing {
	text := strings.Join([]string{in.Brand, in.Model, in.Title, in.Subtitle}, " ")
	folded := Fold(text)
	toks := Tokens(text)

	nl := Listing{
		Raw:        in,
		Tokens:     toks,
		Comparison: strings.Join(toks, " "),
	}

	nl.Brand = resolveBrand(in.Brand, folded)
	nl.ModelToken = extractModelToken(in.Model, nl.Brand, folded)
	nl.Generation = extractGeneration(toks, nl.ModelToken, folded)
	nl.PowerHP, nl.PowerWasKW = extractPower(in.DeclaredPower, folded)
	nl.Year = extractYear(in.Year, folded)
	nl.Fuel = extractFuel(in.Fuel, toks)
	nl.Gearbox = extractGearbox(toks)
	return nl
}

// resolveBrand tries the declared brand field first, then scans the folded
// text for aliases, longest (two-word) forms before single tokens.
func resolveBrand(declared, folded string) string {
	if b, ok := domain.CanonicalBrand(Fold(declared)); ok {
		return b
	}
	fields := strings.Fields(folded)
	for i := 0; i < len(fields)-1; i++ {
		if b, ok := domain.CanonicalBrand(fields[i] + " " + fields[i+1]); ok {
			return b
		}
	}
	for _, f := range fields {
		if b, ok := domain.CanonicalBrand(f); ok {
			return b
		}
	}
	return ""
}

// extractModelToken prefers the declared model field, falling back to the
// token following the brand alias in the folded text.
func extractModelToken(declared, brand, folded string) string {
	if declared != "" {
		if toks := Tokens(declared); len(toks) > 0 {
			return toks[0]
		}
	}
	if brand == "" {
		return ""
	}
	fields := strings.Fields(folded)
	for i, f := range fields {
		b, ok := domain.CanonicalBrand(f)
		if !ok || b != brand {
			continue
		}
		// The brand usually occurs twice (field and title head); an alias is
		// never the model, so skip repeats before reading the next token.
		for j := i + 1; j < len(fields); j++ {
			if _, ok := domain.CanonicalBrand(fields[j]); ok {
				continue
			}
			next := fields[j]
			if len(next) >= 2 && !isVocabToken(next) {
				return next
			}
			break
		}
	}
	return ""
}

func isVocabToken(tok string) bool {
	if dropTokens[tok] {
		return true
	}
	if _, ok := gearboxVocab[tok]; ok {
		return true
	}
	for _, fv := range fuelVocab {
		for _, t := range fv.tokens {
			if t == tok {
				return true
			}
		}
	}
	return false
}

// extractPower picks the power figure. A declared value below the kW cutoff
// is read as kilowatts and converted; text candidates are counted and the
// most frequent within bounds wins.
func extractPower(declared float64, folded string) (hp int, wasKW bool) {
	if declared > 0 {
		if declared < kwCutoff {
			return int(math.Round(declared * domain.HPPerKW)), true
		}
		return int(math.Round(declared)), false
	}

	counts := make(map[int]int)
	var order []int
	add := func(v int) {
		if v < minPowerHP || v > maxPowerHP {
			return
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	for _, m := range powerUnitRe.FindAllStringSubmatch(folded, -1) {
		v, _ := strconv.Atoi(m[1])
		add(v)
	}
	for _, m := range powerFamilyRe.FindAllStringSubmatch(folded, -1) {
		v, _ := strconv.Atoi(m[1])
		add(v)
	}
	fromKW := make(map[int]bool)
	for _, m := range powerKWRe.FindAllStringSubmatch(folded, -1) {
		v, _ := strconv.Atoi(m[1])
		converted := int(math.Round(float64(v) * domain.HPPerKW))
		add(converted)
		fromKW[converted] = true
	}

	best, bestCount := 0, 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best, fromKW[best] && best > 0
}

func extractYear(declared int, folded string) int {
	if declared != 0 {
		return declared
	}
	for _, m := range yearRe.FindAllStringSubmatch(folded, -1) {
		y, _ := strconv.Atoi(m[1])
		if y >= 2000 && y <= 2026 {
			return y
		}
	}
	return 0
}

// extractGeneration reads a roman numeral token ("IV" -> 4), a "phase N"
// marker, or a single digit immediately after the model token.
func extractGeneration(toks []string, modelToken, folded string) int {
	for _, t := range toks {
		// Single-letter romans collide with ordinary text; require two chars.
		if len(t) >= 2 {
			if v := romanValue(t); v > 0 {
				return v
			}
		}
	}
	if m := phaseRe.FindStringSubmatch(folded); m != nil {
		v, _ := strconv.Atoi(m[1])
		return v
	}
	if modelToken != "" {
		fields := strings.Fields(folded)
		for i, f := range fields {
			if f == modelToken && i+1 < len(fields) {
				next := fields[i+1]
				if len(next) == 1 && next[0] >= '1' && next[0] <= '8' {
					return int(next[0] - '0')
				}
			}
		}
	}
	return 0
}

func extractFuel(declared domain.Fuel, toks []string) domain.Fuel {
	if declared != domain.FuelUnknown {
		return declared
	}
	set := make(map[string]bool, len(toks))
	for _, t := range toks {
		set[t] = true
	}
	for _, fv := range fuelVocab {
		for _, t := range fv.tokens {
			if set[t] {
				return fv.fuel
			}
		}
	}
	return domain.FuelUnknown
}

func extractGearbox(toks []string) domain.Gearbox {
	for _, t := range toks {
		if g, ok := gearboxVocab[t]; ok {
			return g
		}
	}
	return domain.GearboxUnknown
}

// FuelWord returns the canonical text token for a fuel, for candidate
// comparison strings.
func FuelWord(f domain.Fuel) string {
	switch f {
	case domain.FuelPetrol:
		return "essence"
	case domain.FuelDiesel:
		return "diesel"
	case domain.FuelHybrid:
		return "hybride"
	case domain.FuelPlugInHybrid:
		return "phev"
	case domain.FuelElectric:
		return "electrique"
	case domain.FuelLPG:
		return "gpl"
	case domain.FuelCNG:
		return "gnv"
	default:
		return ""
	}
}
