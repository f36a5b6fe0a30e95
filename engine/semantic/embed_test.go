package semantic

import (
	"math"
	"testing"

	"github.com/carthesien/enrich/engine/domain"
)

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestEmbed_Deterministic(t *testing.T) {
	tokens := []string{"renault", "clio", "dci", "90"}
	a := Embed(tokens)
	b := Embed(tokens)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding differs at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestEmbed_UnitNorm(t *testing.T) {
	v := Embed([]string{"peugeot", "208", "puretech", "110"})
	if len(v) != Dims {
		t.Fatalf("len = %d, want %d", len(v), Dims)
	}
	if norm := dot(v, v); math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("norm^2 = %v, want 1", norm)
	}
}

func TestEmbed_EmptyIsZero(t *testing.T) {
	v := Embed(nil)
	if norm := dot(v, v); norm != 0 {
		t.Errorf("empty embedding has norm^2 %v", norm)
	}
}

func TestEmbed_SimilarTextsCloser(t *testing.T) {
	clio := Embed([]string{"renault", "clio", "dci", "90", "diesel"})
	clioVariant := Embed([]string{"renault", "clio", "dci", "90"})
	golf := Embed([]string{"volkswagen", "golf", "tdi", "150", "diesel"})

	if dot(clio, clioVariant) <= dot(clio, golf) {
		t.Errorf("near-duplicate %v not closer than unrelated %v",
			dot(clio, clioVariant), dot(clio, golf))
	}
}

func TestPointFor_KeyAndBrandPayload(t *testing.T) {
	v := domain.CanonicalVariant{
		Key:        "point-key",
		Brand:      "Renault",
		Model:      "Clio",
		Fuel:       domain.FuelDiesel,
		MaxPowerKW: 66,
		Label:      "dCi 90",
	}
	p := PointFor(v)
	if p.Key != "point-key" {
		t.Errorf("key = %q", p.Key)
	}
	if p.Payload["brand"] != "renault" {
		t.Errorf("brand payload = %v, want folded brand", p.Payload["brand"])
	}
	if norm := dot(p.Embedding, p.Embedding); math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("point embedding not unit norm: %v", norm)
	}
}
