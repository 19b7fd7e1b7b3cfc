// Package simulate generates synthetic reference data and noisy
// address record variants for exercising and evaluating the
// resolution pipeline without a live data source. Unlike generators
// that reseed the global random source, every call here takes its own
// *rand.Rand so results are reproducible per-seed without disturbing
// any other random state in the process.
package simulate

import (
	"fmt"
	"math/rand"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

// BaseEntities is the fixed reference gazetteer seeded before any
// synthetic records are generated.
type BaseEntities struct {
	Roads   []model.Road
	POIs    []model.POI
	Anchors []model.Anchor
}

// SeedBaseEntities returns a small, fixed set of roads, POIs and
// anchors around a single neighborhood, used as ground truth for
// both synthetic record generation and manual testing.
func SeedBaseEntities() BaseEntities {
	return BaseEntities{
		Roads: []model.Road{
			{RoadID: "r1", Name: "创新大道", District: "蜀山区", Aliases: []string{"创新大街", "Chuangxin Ave"}},
			{RoadID: "r2", Name: "科学大道", District: "蜀山区", Aliases: []string{"KeXue Ave"}},
			{RoadID: "r3", Name: "天波路", District: "蜀山区", Aliases: []string{"Tianbo Rd"}},
			{RoadID: "r4", Name: "文昌路", District: "蜀山区"},
			{RoadID: "r5", Name: "永乐北路", District: "蜀山区", Aliases: []string{"永乐北街"}},
		},
		POIs: []model.POI{
			{POIID: "p1", Name: "高新创新园", POIType: "AOI", District: "蜀山区", Lat: 31.8200, Lon: 117.1299,
				Aliases: []string{"创新园", "合肥高新创新园", "高新区创新园"}},
			{POIID: "p2", Name: "蜀峰广场", POIType: "AOI", District: "蜀山区", Lat: 31.8160, Lon: 117.1250,
				Aliases: []string{"蜀峰广场一期", "蜀峰广场(一期)", "蜀峰广场·一期"}},
			{POIID: "p3", Name: "名儒学校中学部", POIType: "POI", District: "蜀山区", Lat: 31.8120, Lon: 117.1320,
				Aliases: []string{"名儒学校", "名儒中学部"}},
		},
		Anchors: []model.Anchor{
			{AnchorID: "a1", AnchorType: "intersection", KeyText: "天波路|科学大道", District: "蜀山区", Lat: floatPtr(31.8204), Lon: floatPtr(117.1292)},
			{AnchorID: "a2", AnchorType: "intersection", KeyText: "文昌路|永乐北路", District: "蜀山区", Lat: floatPtr(31.8115), Lon: floatPtr(117.1330)},
			{AnchorID: "a3", AnchorType: "poi", KeyText: "名儒学校中学部", District: "蜀山区", Lat: floatPtr(31.8120), Lon: floatPtr(117.1320)},
		},
	}
}

func floatPtr(v float64) *float64 { return &v }

// entity is one "real" underlying address, rendered into multiple
// noisy text variants.
type entity struct {
	aoi, building, floor, room, road, roadNo, shop string
	lat, lon                                       float64
}

var (
	aoiChoices      = []string{"高新创新园", "蜀峰广场", "百盛山甄选自助餐厅-城南店", "创新园"}
	buildingChoices = []string{"F9A", "F9B", "A12", "B7", "5#", "3#"}
	floorChoices    = []string{"1", "2", "3", "4", "5"}
	roomChoices     = []string{"101", "203", "305", "508", "1203"}
	roadChoices     = []string{"创新大道", "科学大道", "文昌路"}
	roadNoChoices   = []string{"66", "88", "110", "120", "188"}
	shopChoices     = []string{"惠康大药房", "益康大药房", "便利店", "咖啡馆", "自助餐厅"}
	sourceChoices   = []string{"gaode", "manual", "crm", "delivery", "network_grid", "poi"}
	floorCN         = map[string]string{"1": "一", "2": "二", "3": "三", "4": "四", "5": "五"}
	interChoices    = []string{
		"（科学大道与天波路交口西北40米）",
		"（文昌路与永乐北路交叉口东南60米）",
		"（名儒学校中学部东侧110米）",
		"",
	}
)

func choice[T any](r *rand.Rand, options []T) T {
	return options[r.Intn(len(options))]
}

// PairLabel is a supervised same/different label for a synthetic
// pair, before it has been persisted.
type PairLabel struct {
	RID1  string
	RID2  string
	Label int
}

const (
	baseLat = 31.8200
	baseLon = 117.1299
)

// GenerateAddressRecords synthesizes nEntities underlying addresses,
// each rendered into variantsPerEntity noisy text variants, plus a
// roughly balanced set of positive (same-entity) and negative
// (different-entity) pair labels. The same seed always reproduces the
// same records and labels.
func GenerateAddressRecords(nEntities, variantsPerEntity int, seed int64) ([]*model.AddressRecord, []PairLabel) {
	r := rand.New(rand.NewSource(seed))

	entities := make([]entity, 0, nEntities)
	for i := 0; i < nEntities; i++ {
		entities = append(entities, entity{
			aoi:      choice(r, aoiChoices),
			building: choice(r, buildingChoices),
			floor:    choice(r, floorChoices),
			room:     choice(r, roomChoices),
			road:     choice(r, roadChoices),
			roadNo:   choice(r, roadNoChoices),
			shop:     choice(r, shopChoices),
			lat:      baseLat + (r.Float64()*2-1)*0.01,
			lon:      baseLon + (r.Float64()*2-1)*0.01,
		})
	}

	var records []*model.AddressRecord
	var entityRIDs [][]string
	ridCounter := 0
	nextRID := func() string {
		ridCounter++
		return fmt.Sprintf("rid%04d", ridCounter)
	}

	for _, e := range entities {
		var rids []string
		for v := 0; v < variantsPerEntity; v++ {
			rid := nextRID()
			raw := variantText(r, e)
			lat := e.lat + (r.Float64()*2-1)*0.0002
			lon := e.lon + (r.Float64()*2-1)*0.0002
			grid := "蜀山区"
			if r.Float64() < 0.08 {
				grid = "瑶海区"
			}
			records = append(records, &model.AddressRecord{
				RID:           rid,
				Source:        choice(r, sourceChoices),
				RawAddress:    raw,
				DistrictClaim: "蜀山区",
				GridDistrict:  grid,
				Lat:           &lat,
				Lon:           &lon,
			})
			rids = append(rids, rid)
		}
		entityRIDs = append(entityRIDs, rids)
	}

	labels := buildLabels(r, entityRIDs)
	return records, labels
}

func variantText(r *rand.Rand, e entity) string {
	floorStyle := choice(r, []string{e.floor + "楼", e.floor + "层", floorCN[e.floor] + "楼", floorCN[e.floor] + "层"})
	roomStyle := choice(r, []string{e.room + "室", "房" + e.room, e.room})
	buildingStyle := choice(r, []string{e.building, e.building + "栋", e.building + "号楼"})

	aoiStyle := e.aoi
	if e.aoi == "蜀峰广场" {
		aoiStyle = choice(r, []string{e.aoi, e.aoi + "一期"})
	}

	inter := choice(r, interChoices)

	shopStyle := e.shop
	if (e.shop == "惠康大药房" || e.shop == "益康大药房") && r.Float64() < 0.3 {
		shopStyle = choice(r, []string{"惠康大药房", "益康大药房"})
	}
	if len(e.aoi) >= len("百盛山") && e.aoi[:len("百盛山")] == "百盛山" && r.Float64() < 0.5 {
		shopStyle = choice(r, []string{"百盛山海鲜", "百盛山甄选自助餐厅-城南店"})
	}

	templates := []string{
		fmt.Sprintf("合肥市蜀山区%s%s号 %s %s %s %s %s%s", e.road, e.roadNo, aoiStyle, buildingStyle, floorStyle, roomStyle, shopStyle, inter),
		fmt.Sprintf("安徽省合肥市蜀山区%s%s%s%s（%s%s号附近）%s%s", aoiStyle, buildingStyle, floorStyle, roomStyle, e.road, e.roadNo, shopStyle, inter),
		fmt.Sprintf("合肥蜀山区 %s %s %s %s %s%s", e.road, buildingStyle, floorStyle, roomStyle, shopStyle, inter),
	}
	return choice(r, templates)
}

func buildLabels(r *rand.Rand, entityRIDs [][]string) []PairLabel {
	var labels []PairLabel
	for _, rids := range entityRIDs {
		for i := 0; i < len(rids); i++ {
			for j := i + 1; j < len(rids); j++ {
				labels = append(labels, PairLabel{RID1: rids[i], RID2: rids[j], Label: 1})
			}
		}
	}

	var allRIDs []string
	for _, g := range entityRIDs {
		allRIDs = append(allRIDs, g...)
	}

	sameCluster := func(a, b string) bool {
		for _, g := range entityRIDs {
			inA, inB := false, false
			for _, rid := range g {
				if rid == a {
					inA = true
				}
				if rid == b {
					inB = true
				}
			}
			if inA && inB {
				return true
			}
		}
		return false
	}

	target := len(labels)
	for n := 0; n < target && len(allRIDs) > 1; n++ {
		a := choice(r, allRIDs)
		b := choice(r, allRIDs)
		if a == b || sameCluster(a, b) {
			continue
		}
		labels = append(labels, PairLabel{RID1: a, RID2: b, Label: 0})
	}

	r.Shuffle(len(labels), func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })
	return labels
}
