package match

import (
	"context"
	"testing"

	"github.com/carthesien/enrich/engine/domain"
	"github.com/carthesien/enrich/engine/normalize"
	"github.com/carthesien/enrich/engine/refindex"
)

func clioDCI90() domain.CanonicalVariant {
	return domain.CanonicalVariant{
		Brand: "Renault", Model: "Clio", Generation: 4,
		YearFrom: 2012, YearTo: 2019, Fuel: domain.FuelDiesel,
		MaxPowerKW: 66, FiscalPowerCV: 4, MixedConsumption: 3.6,
		Label: "dCi 90 Energy", Category: domain.CategoryB,
	}
}

func clioTCE90() domain.CanonicalVariant {
	v := clioDCI90()
	v.Fuel = domain.FuelPetrol
	v.FiscalPowerCV = 5
	v.MixedConsumption = 5.2
	v.Label = "TCe 90"
	return v
}

func indexOf(t *testing.T, variants ...domain.CanonicalVariant) *refindex.Index {
	t.Helper()
	ix := refindex.NewIndex()
	ix.Swap(variants)
	return ix
}

func matchListing(t *testing.T, m *Matcher, in domain.ListingInput) Result {
	t.Helper()
	return m.Match(context.Background(), normalize.Normalize(in))
}

func TestMatch_BrandUnresolved(t *testing.T) {
	m := New(indexOf(t, clioDCI90()), DefaultThresholds())
	r := matchListing(t, m, domain.ListingInput{Title: "Lada Niva 1.7"})
	if r.Outcome != OutcomeNoMatch || r.Reason != ReasonBrandUnresolved {
		t.Fatalf("got %v/%v, want NoMatch/brand_unresolved", r.Outcome, r.Reason)
	}
}

func TestMatch_EmptyBlock(t *testing.T) {
	m := New(indexOf(t, clioDCI90()), DefaultThresholds())
	r := matchListing(t, m, domain.ListingInput{Brand: "Peugeot", Title: "208 PureTech 100"})
	if r.Outcome != OutcomeNoMatch || r.Reason != ReasonEmptyBlock {
		t.Fatalf("got %v/%v, want NoMatch/empty_block", r.Outcome, r.Reason)
	}
}

func TestMatch_BlockingSoundness(t *testing.T) {
	peugeot := clioDCI90()
	peugeot.Brand = "Peugeot"
	peugeot.Model = "208"
	peugeot.Label = "BlueHDi 100"
	m := New(indexOf(t, clioDCI90(), peugeot), DefaultThresholds())

	r := matchListing(t, m, domain.ListingInput{
		Brand: "Renault", Model: "Clio", Title: "Clio IV dci 90ch", DeclaredPower: 90,
	})
	if r.Outcome != OutcomeResolved {
		t.Fatalf("expected resolved, got %v", r.Outcome)
	}
	if r.Variant.Brand != "Renault" {
		t.Errorf("matcher crossed brands: resolved %q", r.Variant.Brand)
	}
}

// The canonical end-to-end example: declared 90 hp against a 66 kW diesel
// variant resolves Auto with both agreement bonuses.
func TestMatch_ClioDieselAuto(t *testing.T) {
	m := New(indexOf(t, clioDCI90(), clioTCE90()), DefaultThresholds())
	r := matchListing(t, m, domain.ListingInput{
		Brand: "Renault", Model: "Clio", Title: "Clio IV dci 90ch", DeclaredPower: 90,
	})
	if r.Outcome != OutcomeResolved || r.Band != domain.BandAuto {
		t.Fatalf("got %v/%v score=%.1f, want Resolved/Auto", r.Outcome, r.Band, r.Score)
	}
	if r.Variant.Fuel != domain.FuelDiesel {
		t.Errorf("resolved the wrong engine family: %s", r.Variant.Fuel)
	}
	if !r.PowerAgreement || !r.FuelAgreement {
		t.Errorf("expected both agreement flags, got power=%v fuel=%v",
			r.PowerAgreement, r.FuelAgreement)
	}
}

// Same listing against petrol-only variants: the dci token implies diesel,
// and the fuel mismatch penalty keeps Auto unreachable.
func TestMatch_FuelMismatchBlocksAuto(t *testing.T) {
	m := New(indexOf(t, clioTCE90()), DefaultThresholds())
	r := matchListing(t, m, domain.ListingInput{
		Brand: "Renault", Model: "Clio", Title: "Clio IV dci 90ch", DeclaredPower: 90,
	})
	if r.Outcome == OutcomeResolved && r.Band == domain.BandAuto {
		t.Fatalf("fuel mismatch must never resolve Auto, got score %.1f", r.Score)
	}
	if r.Outcome != OutcomeRejected {
		t.Fatalf("expected Rejected, got %v", r.Outcome)
	}
	if len(r.Candidates) == 0 || !r.Candidates[0].FuelMismatch {
		t.Error("rejected candidates should carry the mismatch flag")
	}
}

// Two diesel trims differing only by label score within the epsilon.
func TestMatch_TieReturnsAmbiguous(t *testing.T) {
	limited := clioDCI90()
	limited.Label = "dCi 90 Limited"
	m := New(indexOf(t, clioDCI90(), limited), DefaultThresholds())
	r := matchListing(t, m, domain.ListingInput{
		Brand: "Renault", Model: "Clio", Title: "Clio IV dci 90ch", DeclaredPower: 90,
	})
	if r.Outcome != OutcomeAmbiguous {
		t.Fatalf("near-equal candidates must return Ambiguous, got %v", r.Outcome)
	}
	if len(r.Candidates) < 2 {
		t.Fatal("ambiguous result should carry the ordered candidate list")
	}
	if r.Candidates[0].Score < r.Candidates[1].Score {
		t.Error("candidates must be ordered best first")
	}
}

// A known model year resolves a tie between trims whose generation windows
// do not overlap.
func TestMatch_YearBreaksTie(t *testing.T) {
	early := clioDCI90()
	early.YearTo = 2016
	late := clioDCI90()
	late.Label = "dCi 90 Limited"
	late.YearFrom = 2017
	m := New(indexOf(t, early, late), DefaultThresholds())

	r := matchListing(t, m, domain.ListingInput{
		Brand: "Renault", Model: "Clio", Title: "Clio IV dci 90ch",
		DeclaredPower: 90, Year: 2018,
	})
	if r.Outcome != OutcomeResolved {
		t.Fatalf("year should break the tie, got %v", r.Outcome)
	}
	if r.Variant.Label != "dCi 90 Limited" {
		t.Errorf("resolved %q, want the trim whose window holds 2018", r.Variant.Label)
	}

	// Overlapping windows both hold the year: the tie stands.
	late.YearFrom = 2012
	m = New(indexOf(t, early, late), DefaultThresholds())
	r = matchListing(t, m, domain.ListingInput{
		Brand: "Renault", Model: "Clio", Title: "Clio IV dci 90ch",
		DeclaredPower: 90, Year: 2015,
	})
	if r.Outcome != OutcomeAmbiguous {
		t.Fatalf("year held by both windows cannot break the tie, got %v", r.Outcome)
	}
}

func TestMatch_PowerToleranceBoundary(t *testing.T) {
	m := New(indexOf(t, clioDCI90()), DefaultThresholds())
	// 66 kW is 89.73 hp: declared 94 is within the 5 hp tolerance, 96 is not.
	r := matchListing(t, m, domain.ListingInput{
		Brand: "Renault", Model: "Clio", Title: "Clio IV dci", DeclaredPower: 94,
	})
	if r.Outcome != OutcomeResolved || !r.PowerAgreement {
		t.Errorf("94 hp should earn the power bonus, got %+v", r.Summary())
	}
	r = matchListing(t, m, domain.ListingInput{
		Brand: "Renault", Model: "Clio", Title: "Clio IV dci", DeclaredPower: 96,
	})
	if r.Outcome == OutcomeResolved && r.PowerAgreement {
		t.Error("96 hp is outside the tolerance, no bonus expected")
	}
}

func TestMatch_BelowFloorRejected(t *testing.T) {
	// A Renault variant that shares almost no tokens with the listing.
	espace := clioDCI90()
	espace.Model = "Espace"
	espace.Generation = 5
	espace.Label = "Blue dCi 190 Initiale Paris"
	espace.MaxPowerKW = 140
	m := New(indexOf(t, espace), DefaultThresholds())
	r := matchListing(t, m, domain.ListingInput{Brand: "Renault", Title: "Renault Espace essence 2008"})
	if r.Outcome != OutcomeRejected {
		t.Fatalf("expected Rejected below the floor, got %v (score %.1f)",
			r.Outcome, r.Candidates[0].Score)
	}
}

type fixedRecaller struct{ keys []string }

func (f fixedRecaller) Recall(context.Context, string, string, int) ([]string, error) {
	return f.keys, nil
}

func TestMatch_SemanticRecallFallback(t *testing.T) {
	v := clioDCI90()
	v.Key = refindex.VariantKey(v)
	m := New(indexOf(t, v), DefaultThresholds(), WithRecaller(fixedRecaller{keys: []string{v.Key}}))
	// Model token "cliiioo" defeats the lexical filter; recall recovers the key.
	r := matchListing(t, m, domain.ListingInput{
		Brand: "Renault", Model: "Cliiioo", Title: "cliiioo iv dci 90ch clio", DeclaredPower: 90,
	})
	if r.Outcome != OutcomeResolved {
		t.Fatalf("recall should feed stage B, got %v", r.Outcome)
	}
}

func TestMatch_CacheInvalidatesOnSwap(t *testing.T) {
	ix := indexOf(t, clioDCI90())
	m := New(ix, DefaultThresholds(), WithCache(16))
	in := domain.ListingInput{Brand: "Renault", Model: "Clio", Title: "Clio IV dci 90ch", DeclaredPower: 90}

	r1 := matchListing(t, m, in)
	if r1.Outcome != OutcomeResolved {
		t.Fatal("expected resolved")
	}
	r2 := matchListing(t, m, in)
	if r2.SnapshotVersion != r1.SnapshotVersion {
		t.Error("cached result should carry the same snapshot version")
	}

	ix.Swap(nil) // dataset gone
	r3 := matchListing(t, m, in)
	if r3.Outcome != OutcomeNoMatch {
		t.Errorf("cache must not outlive the snapshot, got %v", r3.Outcome)
	}
}

func TestCandidateTokens(t *testing.T) {
	toks := CandidateTokens(clioDCI90())
	want := map[string]bool{"renault": true, "clio": true, "dci": true, "90": true,
		"energy": true, "4": true, "iv": true, "diesel": true}
	for tok := range want {
		found := false
		for _, got := range toks {
			if got == tok {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing token %q in %v", tok, toks)
		}
	}
}
