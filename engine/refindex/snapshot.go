// Package refindex holds the canonical variant dataset as versioned,
// immutable snapshots. Refresh builds a new snapshot and atomically swaps the
// active pointer; in-flight matches keep whatever snapshot they started with.
package refindex

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carthesien/enrich/engine/domain"
	"github.com/carthesien/enrich/engine/normalize"
)

// maxEditDistance is the fuzzy tolerance for the model-token block filter.
const maxEditDistance = 2

// Snapshot is a read-only view over the variant dataset, partitioned by
// canonical brand for blocking. Never mutated after construction.
type Snapshot struct {
	version  int64
	loadedAt time.Time
	byKey    map[string]domain.CanonicalVariant
	byBrand  map[string][]domain.CanonicalVariant
}

// NewSnapshot builds a snapshot from a variant slice. Variants without a key
// get the deterministic identity key; brand partitions use the canonical
// brand when the alias table resolves it, the folded brand otherwise.
func NewSnapshot(version int64, variants []domain.CanonicalVariant) *Snapshot {
	s := &Snapshot{
		version:  version,
		loadedAt: time.Now(),
		byKey:    make(map[string]domain.CanonicalVariant, len(variants)),
		byBrand:  make(map[string][]domain.CanonicalVariant),
	}
	for _, v := range variants {
		if v.Key == "" {
			v.Key = VariantKey(v)
		}
		if _, dup := s.byKey[v.Key]; dup {
			continue
		}
		s.byKey[v.Key] = v
		brand := brandKey(v.Brand)
		s.byBrand[brand] = append(s.byBrand[brand], v)
	}
	return s
}

func brandKey(brand string) string {
	folded := normalize.Fold(brand)
	if b, ok := domain.CanonicalBrand(folded); ok {
		return b
	}
	return folded
}

// VariantKey derives a stable identifier from the variant's identity tuple,
// so reloads of the same dataset produce identical keys.
func VariantKey(v domain.CanonicalVariant) string {
	identity := fmt.Sprintf("%s|%s|%d|%s|%.1f|%s",
		normalize.Fold(v.Brand), normalize.Fold(v.Model), v.Generation,
		v.Fuel, v.MaxPowerKW, normalize.Fold(v.Label))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("variant:"+identity)).String()
}

// Version returns the monotonic snapshot version.
func (s *Snapshot) Version() int64 { return s.version }

// LoadedAt returns when the snapshot was constructed.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Len returns the number of variants.
func (s *Snapshot) Len() int { return len(s.byKey) }

// Variant looks up one variant by key.
func (s *Snapshot) Variant(key string) (domain.CanonicalVariant, error) {
	v, ok := s.byKey[key]
	if !ok {
		return domain.CanonicalVariant{}, fmt.Errorf("%w: %s", domain.ErrVariantNotFound, key)
	}
	return v, nil
}

// All returns every variant. The slice is fresh; the snapshot stays immutable.
func (s *Snapshot) All() []domain.CanonicalVariant {
	out := make([]domain.CanonicalVariant, 0, len(s.byKey))
	for _, v := range s.byKey {
		out = append(out, v)
	}
	return out
}

// Block returns the candidates sharing the listing's canonical brand.
// Callers must not mutate the returned slice.
func (s *Snapshot) Block(brand string) []domain.CanonicalVariant {
	return s.byBrand[brandKey(brand)]
}

// BlockFiltered further restricts the brand block to variants whose model
// contains the token, or sits within a small edit distance of it.
func (s *Snapshot) BlockFiltered(brand, modelToken string) []domain.CanonicalVariant {
	block := s.Block(brand)
	if modelToken == "" {
		return block
	}
	token := normalize.Fold(modelToken)
	var out []domain.CanonicalVariant
	for _, v := range block {
		model := normalize.Fold(v.Model)
		if strings.Contains(model, token) || normalize.EditDistance(model, token) <= maxEditDistance {
			out = append(out, v)
		}
	}
	return out
}
