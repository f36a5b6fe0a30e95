package domain

import "strings"

// BrandAliases maps the canonical brand name to the spellings, abbreviations
// and misspellings observed in listings. Keys and aliases are lowercase,
// diacritic-free.
var BrandAliases = map[string][]string{
	"abarth":     {},
	"alfa romeo": {"alfa", "alfa-romeo", "alfaromeo"},
	"audi":       {},
	"bmw":        {},
	"citroen":    {"citroën"},
	"cupra":      {},
	"dacia":      {},
	"ds":         {"ds automobiles"},
	"fiat":       {},
	"ford":       {},
	"honda":      {},
	"hyundai":    {"hyundaï"},
	"jaguar":     {},
	"jeep":       {},
	"kia":        {},
	"land rover": {"landrover", "land-rover", "range rover"},
	"lexus":      {},
	"mazda":      {},
	"mercedes":   {"mercedes-benz", "mercedes benz", "mb", "benz"},
	"mg":         {},
	"mini":       {},
	"mitsubishi": {},
	"nissan":     {},
	"opel":       {},
	"peugeot":    {"peugeo", "pegeot"},
	"porsche":    {},
	"renault":    {"renualt"},
	"seat":       {},
	"skoda":      {"škoda"},
	"smart":      {},
	"ssangyong":  {},
	"suzuki":     {},
	"tesla":      {},
	"toyota":     {},
	"volkswagen": {"vw", "volkswagon"},
	"volvo":      {},
}

// brandSegments maps each canonical brand to its market segment. Brands not
// listed default to SegmentVolume.
var brandSegments = map[string]Segment{
	"dacia":      SegmentBudget,
	"fiat":       SegmentBudget,
	"mg":         SegmentBudget,
	"mitsubishi": SegmentBudget,
	"ssangyong":  SegmentBudget,
	"suzuki":     SegmentBudget,

	"audi":     SegmentPremium,
	"bmw":      SegmentPremium,
	"ds":       SegmentPremium,
	"lexus":    SegmentPremium,
	"mercedes": SegmentPremium,
	"mini":     SegmentPremium,
	"volvo":    SegmentPremium,

	"abarth":  SegmentLuxurySport,
	"jaguar":  SegmentLuxurySport,
	"porsche": SegmentLuxurySport,

	"jeep":       SegmentSUVSpecialist,
	"land rover": SegmentSUVSpecialist,

	"tesla": SegmentElectricFirst,
}

// aliasIndex maps every alias (including the canonical spelling) to its brand.
var aliasIndex = func() map[string]string {
	idx := make(map[string]string, len(BrandAliases)*2)
	for canonical, aliases := range BrandAliases {
		idx[canonical] = canonical
		for _, a := range aliases {
			idx[a] = canonical
		}
	}
	return idx
}()

// CanonicalBrand resolves a lowercase token (or token pair) to its canonical
// brand name.
func CanonicalBrand(token string) (string, bool) {
	b, ok := aliasIndex[strings.TrimSpace(token)]
	return b, ok
}

// SegmentOf returns the market segment for a canonical brand.
func SegmentOf(brand string) Segment {
	if s, ok := brandSegments[brand]; ok {
		return s
	}
	return SegmentVolume
}
