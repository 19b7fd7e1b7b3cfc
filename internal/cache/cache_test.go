package cache

import (
	"context"
	"testing"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

func TestLRUCacheSetGetRoundTrip(t *testing.T) {
	c, err := NewLRUCache(10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	raw := "合肥市蜀山区创新大道110号"
	parsed := &model.ParsedAddress{Road: "创新大道", RoadNo: "110"}

	if err := c.Set(ctx, raw, parsed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := c.Get(ctx, raw)
	if err != nil || !ok {
		t.Fatalf("expected cache hit, got ok=%v err=%v", ok, err)
	}
	if got.Road != "创新大道" {
		t.Fatalf("unexpected cached value: %+v", got)
	}
}

func TestLRUCacheMissTracksStats(t *testing.T) {
	c, err := NewLRUCache(10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, ok, _ := c.Get(context.Background(), "unseen address")
	if ok {
		t.Fatalf("expected miss for unseen key")
	}
	if c.Stats().L1Misses != 1 {
		t.Fatalf("expected 1 miss recorded, got %+v", c.Stats())
	}
}

func TestFingerprintStableAndDistinct(t *testing.T) {
	a := Fingerprint("合肥市蜀山区创新大道110号")
	b := Fingerprint("合肥市蜀山区创新大道110号")
	c := Fingerprint("合肥市蜀山区创新大道111号")
	if a != b {
		t.Fatalf("expected stable fingerprint for identical input")
	}
	if a == c {
		t.Fatalf("expected distinct fingerprint for different input")
	}
}
