// Package repository is the Mongo-backed tabular store: one
// collection per logical table (address_records, parsed_addresses,
// roads, pois, anchors, conflicts, match_logs, clusters, pair_labels,
// learned_aliases, review_items), mirroring the original
// spreadsheet-as-database layout one table at a time.
//
// Mongo gives per-document atomicity but not the read-whole-sheet/
// mutate-row/write-back isolation the original spreadsheet connection
// provided for free; each table that is upserted into therefore gets
// its own mutex so two concurrent upserts on the same logical table
// serialize instead of racing, while different tables can still be
// written concurrently. The insert-only conflicts, match_logs and
// pair_labels collections have no mutex.
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

const defaultOpTimeout = 10 * time.Second

// Repository is the persistence boundary for the pipeline and the
// admin surface. All exported methods are safe for concurrent use.
type Repository struct {
	db *mongo.Database

	records      *mongo.Collection
	parsed       *mongo.Collection
	roads        *mongo.Collection
	pois         *mongo.Collection
	anchors      *mongo.Collection
	conflicts    *mongo.Collection
	matchLogs    *mongo.Collection
	clusters     *mongo.Collection
	pairLabels   *mongo.Collection
	learnedAlias *mongo.Collection
	reviewItems  *mongo.Collection

	recordsMu    sync.Mutex
	parsedMu     sync.Mutex
	roadsMu      sync.Mutex
	poisMu       sync.Mutex
	anchorsMu    sync.Mutex
	clustersMu   sync.Mutex
	aliasMu      sync.Mutex
	reviewMu     sync.Mutex
}

// New wires up the repository's collections and background indexes
// against db. Index creation failures are logged by the caller (via
// the returned error) but do not prevent the repository from being
// usable — a missing secondary index degrades query performance, not
// correctness.
func New(ctx context.Context, db *mongo.Database) (*Repository, error) {
	r := &Repository{
		db:           db,
		records:      db.Collection("address_records"),
		parsed:       db.Collection("parsed_addresses"),
		roads:        db.Collection("roads"),
		pois:         db.Collection("pois"),
		anchors:      db.Collection("anchors"),
		conflicts:    db.Collection("conflicts"),
		matchLogs:    db.Collection("match_logs"),
		clusters:     db.Collection("clusters"),
		pairLabels:   db.Collection("pair_labels"),
		learnedAlias: db.Collection("learned_aliases"),
		reviewItems:  db.Collection("review_items"),
	}

	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	if err := r.ensureIndexes(ctx); err != nil {
		return r, fmt.Errorf("repository: ensure indexes: %w", err)
	}
	return r, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	type spec struct {
		coll *mongo.Collection
		idx  mongo.IndexModel
	}
	specs := []spec{
		{r.records, mongo.IndexModel{Keys: bson.D{{Key: "rid", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{r.parsed, mongo.IndexModel{Keys: bson.D{{Key: "rid", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{r.roads, mongo.IndexModel{Keys: bson.D{{Key: "road_id", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{r.pois, mongo.IndexModel{Keys: bson.D{{Key: "poi_id", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{r.anchors, mongo.IndexModel{Keys: bson.D{{Key: "anchor_id", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{r.anchors, mongo.IndexModel{Keys: bson.D{{Key: "key_text", Value: 1}}}},
		{r.clusters, mongo.IndexModel{Keys: bson.D{{Key: "cluster_id", Value: 1}}}},
		{r.learnedAlias, mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{r.reviewItems, mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{r.reviewItems, mongo.IndexModel{Keys: bson.D{{Key: "resolved", Value: 1}}}},
	}
	for _, s := range specs {
		if _, err := s.coll.Indexes().CreateOne(ctx, s.idx); err != nil {
			return err
		}
	}
	return nil
}

// --- address_records ---

func (r *Repository) UpsertRecord(ctx context.Context, rec *model.AddressRecord) error {
	r.recordsMu.Lock()
	defer r.recordsMu.Unlock()

	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := r.records.ReplaceOne(ctx, bson.M{"rid": rec.RID}, rec, options.Replace().SetUpsert(true))
	return err
}

func (r *Repository) ListRecords(ctx context.Context) ([]*model.AddressRecord, error) {
	cur, err := r.records.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.AddressRecord
	for cur.Next(ctx) {
		var rec model.AddressRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, cur.Err()
}

func (r *Repository) GetRecord(ctx context.Context, rid string) (*model.AddressRecord, error) {
	var rec model.AddressRecord
	err := r.records.FindOne(ctx, bson.M{"rid": rid}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// --- parsed_addresses ---

func (r *Repository) UpsertParsed(ctx context.Context, rid string, p *model.ParsedAddress) error {
	r.parsedMu.Lock()
	defer r.parsedMu.Unlock()

	doc := bson.M{"rid": rid, "parsed_at": time.Now().UTC().Format(time.RFC3339)}
	raw, err := bson.Marshal(p)
	if err != nil {
		return err
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}

	_, err = r.parsed.ReplaceOne(ctx, bson.M{"rid": rid}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *Repository) GetParsed(ctx context.Context, rid string) (*model.ParsedAddress, error) {
	var p model.ParsedAddress
	err := r.parsed.FindOne(ctx, bson.M{"rid": rid}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// --- conflicts ---

func (r *Repository) InsertConflicts(ctx context.Context, conflicts []model.Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	docs := make([]interface{}, len(conflicts))
	for i, c := range conflicts {
		docs[i] = c
	}
	_, err := r.conflicts.InsertMany(ctx, docs)
	return err
}

// --- match_logs ---

func (r *Repository) InsertMatchLog(ctx context.Context, entry *model.MatchLogEntry) error {
	if entry.CreatedAt == "" {
		entry.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := r.matchLogs.InsertOne(ctx, entry)
	return err
}

// --- clusters ---

func (r *Repository) WriteClusters(ctx context.Context, clusters map[string][]string) error {
	r.clustersMu.Lock()
	defer r.clustersMu.Unlock()

	if _, err := r.clusters.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	var docs []interface{}
	for clusterID, rids := range clusters {
		docs = append(docs, model.Cluster{ClusterID: clusterID, Members: rids})
	}
	if len(docs) == 0 {
		return nil
	}
	_, err := r.clusters.InsertMany(ctx, docs)
	return err
}

func (r *Repository) ListClusters(ctx context.Context) ([]model.Cluster, error) {
	cur, err := r.clusters.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []model.Cluster
	for cur.Next(ctx) {
		var c model.Cluster
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, cur.Err()
}

// --- roads / pois / anchors (reference gazetteer) ---

func (r *Repository) UpsertRoad(ctx context.Context, road *model.Road) error {
	r.roadsMu.Lock()
	defer r.roadsMu.Unlock()
	_, err := r.roads.ReplaceOne(ctx, bson.M{"road_id": road.RoadID}, road, options.Replace().SetUpsert(true))
	return err
}

func (r *Repository) ListRoads(ctx context.Context) ([]model.Road, error) {
	cur, err := r.roads.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []model.Road
	for cur.Next(ctx) {
		var rd model.Road
		if err := cur.Decode(&rd); err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, cur.Err()
}

func (r *Repository) UpsertPOI(ctx context.Context, poi *model.POI) error {
	r.poisMu.Lock()
	defer r.poisMu.Unlock()
	_, err := r.pois.ReplaceOne(ctx, bson.M{"poi_id": poi.POIID}, poi, options.Replace().SetUpsert(true))
	return err
}

func (r *Repository) ListPOIs(ctx context.Context) ([]model.POI, error) {
	cur, err := r.pois.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []model.POI
	for cur.Next(ctx) {
		var p model.POI
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, cur.Err()
}

func (r *Repository) UpsertAnchor(ctx context.Context, anchor *model.Anchor) error {
	r.anchorsMu.Lock()
	defer r.anchorsMu.Unlock()
	_, err := r.anchors.ReplaceOne(ctx, bson.M{"anchor_id": anchor.AnchorID}, anchor, options.Replace().SetUpsert(true))
	return err
}

// FindAnchorByKey implements internal/anchor.Lookup.
func (r *Repository) FindAnchorByKey(ctx context.Context, keyText string) (*model.Anchor, error) {
	var a model.Anchor
	err := r.anchors.FindOne(ctx, bson.M{"key_text": keyText}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// --- pair_labels (supervised evaluation set) ---

func (r *Repository) InsertPairLabels(ctx context.Context, labels []model.PairLabel) error {
	if len(labels) == 0 {
		return nil
	}
	docs := make([]interface{}, len(labels))
	for i, l := range labels {
		docs[i] = l
	}
	_, err := r.pairLabels.InsertMany(ctx, docs)
	return err
}

func (r *Repository) ListPairLabels(ctx context.Context) ([]model.PairLabel, error) {
	cur, err := r.pairLabels.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []model.PairLabel
	for cur.Next(ctx) {
		var l model.PairLabel
		if err := cur.Decode(&l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, cur.Err()
}

// --- learned_aliases (admin review queue for alias suggestions) ---

func (r *Repository) UpsertLearnedAlias(ctx context.Context, a *model.LearnedAlias) error {
	r.aliasMu.Lock()
	defer r.aliasMu.Unlock()
	_, err := r.learnedAlias.ReplaceOne(ctx, bson.M{"id": a.ID}, a, options.Replace().SetUpsert(true))
	return err
}

// ResolveLearnedAlias records an operator's accept/reject decision on
// a previously-suggested alias, without touching its canonical/alias
// text or support/confidence fields.
func (r *Repository) ResolveLearnedAlias(ctx context.Context, id string, accepted bool) error {
	r.aliasMu.Lock()
	defer r.aliasMu.Unlock()
	_, err := r.learnedAlias.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"accepted": accepted}})
	return err
}

func (r *Repository) ListLearnedAliases(ctx context.Context, onlyPending bool) ([]model.LearnedAlias, error) {
	filter := bson.M{}
	if onlyPending {
		filter["accepted"] = bson.M{"$exists": false}
	}
	cur, err := r.learnedAlias.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []model.LearnedAlias
	for cur.Next(ctx) {
		var a model.LearnedAlias
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, cur.Err()
}

// --- review_items (UNSURE decision queue) ---

func (r *Repository) InsertReviewItem(ctx context.Context, item *model.ReviewItem) error {
	r.reviewMu.Lock()
	defer r.reviewMu.Unlock()
	if item.CreatedAt == "" {
		item.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := r.reviewItems.ReplaceOne(ctx, bson.M{"id": item.ID}, item, options.Replace().SetUpsert(true))
	return err
}

func (r *Repository) ListPendingReviewItems(ctx context.Context) ([]model.ReviewItem, error) {
	cur, err := r.reviewItems.Find(ctx, bson.M{"resolved": false})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []model.ReviewItem
	for cur.Next(ctx) {
		var item model.ReviewItem
		if err := cur.Decode(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, cur.Err()
}

func (r *Repository) ResolveReviewItem(ctx context.Context, id, resolution string) error {
	r.reviewMu.Lock()
	defer r.reviewMu.Unlock()
	_, err := r.reviewItems.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"resolved": true, "resolution": resolution}})
	return err
}
