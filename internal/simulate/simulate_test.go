package simulate

import "testing"

func TestSeedBaseEntitiesReturnsFixedGazetteer(t *testing.T) {
	base := SeedBaseEntities()
	if len(base.Roads) == 0 || len(base.POIs) == 0 || len(base.Anchors) == 0 {
		t.Fatalf("expected non-empty roads/pois/anchors, got %+v", base)
	}
}

func TestGenerateAddressRecordsIsDeterministicPerSeed(t *testing.T) {
	recs1, labels1 := GenerateAddressRecords(5, 3, 7)
	recs2, labels2 := GenerateAddressRecords(5, 3, 7)

	if len(recs1) != len(recs2) {
		t.Fatalf("expected same record count across runs with identical seed, got %d vs %d", len(recs1), len(recs2))
	}
	for i := range recs1 {
		if recs1[i].RawAddress != recs2[i].RawAddress {
			t.Fatalf("expected identical raw address at index %d for same seed, got %q vs %q", i, recs1[i].RawAddress, recs2[i].RawAddress)
		}
	}
	if len(labels1) != len(labels2) {
		t.Fatalf("expected same label count across runs with identical seed, got %d vs %d", len(labels1), len(labels2))
	}
}

func TestGenerateAddressRecordsProducesExpectedCounts(t *testing.T) {
	recs, _ := GenerateAddressRecords(4, 5, 1)
	if len(recs) != 20 {
		t.Fatalf("expected 4*5=20 records, got %d", len(recs))
	}
	for _, rec := range recs {
		if rec.RID == "" || rec.RawAddress == "" {
			t.Fatalf("expected every record to have a rid and raw address, got %+v", rec)
		}
		if !rec.HasGeo() {
			t.Fatalf("expected every synthetic record to carry coordinates, got %+v", rec)
		}
	}
}

func TestGenerateAddressRecordsLabelsAreConsistentWithEntities(t *testing.T) {
	_, labels := GenerateAddressRecords(6, 4, 42)

	var positives, negatives int
	for _, l := range labels {
		switch l.Label {
		case 1:
			positives++
		case 0:
			negatives++
		default:
			t.Fatalf("unexpected label value %d", l.Label)
		}
		if l.RID1 == l.RID2 {
			t.Fatalf("expected distinct rids in a pair label, got %+v", l)
		}
	}
	if positives == 0 {
		t.Fatalf("expected at least one positive pair label")
	}
	if negatives == 0 {
		t.Fatalf("expected at least one negative pair label")
	}
}
