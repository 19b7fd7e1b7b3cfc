package alias

import (
	"testing"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

func TestBuildReverseIndexCanonicalizesAliases(t *testing.T) {
	m := model.AliasMap{
		"高新创新园": {"创新园", "合肥高新创新园", "高新区创新园"},
	}
	rev := BuildReverseIndex(m)

	if got := rev.Canonicalize("创新园"); got != "高新创新园" {
		t.Fatalf("expected alias to canonicalize, got %q", got)
	}
	if got := rev.Canonicalize("高新创新园"); got != "高新创新园" {
		t.Fatalf("expected canonical name to map to itself, got %q", got)
	}
}

func TestCanonicalizeUnknownNameIsUnchanged(t *testing.T) {
	rev := BuildReverseIndex(model.AliasMap{})
	if got := rev.Canonicalize("未知园区"); got != "未知园区" {
		t.Fatalf("expected unknown name unchanged, got %q", got)
	}
}

func TestCanonicalizeIgnoresCaseAndSpacing(t *testing.T) {
	m := model.AliasMap{"Chuangxin Ave": {"创新大道"}}
	rev := BuildReverseIndex(m)
	if got := rev.Canonicalize(" 创新 大道 "); got != "Chuangxin Ave" {
		t.Fatalf("expected canonicalization regardless of spacing, got %q", got)
	}
	if got := rev.Canonicalize("CHUANGXIN  ave"); got != "Chuangxin Ave" {
		t.Fatalf("expected canonicalization regardless of case, got %q", got)
	}
}
