package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/aligner-portal/internal/model"
)

// PatientRepo stores case documents in the `patients` collection. Every
// mutation is a single-document atomic update; there is no version field,
// so concurrent writers follow last-write-wins.
type PatientRepo struct {
	coll *mongo.Collection
}

func NewPatientRepo(db *mongo.Database) *PatientRepo {
	return &PatientRepo{coll: db.Collection("patients")}
}

// Create inserts a new case and fills in its generated ID.
func (r *PatientRepo) Create(ctx context.Context, p *model.Patient) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	return err
}

func (r *PatientRepo) GetByID(ctx context.Context, id primitive.ObjectID) (model.Patient, error) {
	var p model.Patient
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Patient{}, ErrNotFound
	}
	return p, err
}

func scopeFilter(s model.CaseScope) bson.M {
	f := bson.M{}
	if s.OwnerIDs != nil {
		f["userId"] = bson.M{"$in": s.OwnerIDs}
	}
	if s.PlannerID != nil {
		f["plannerId"] = *s.PlannerID
	}
	return f
}

// List returns cases visible under the query scope, newest first.
func (r *PatientRepo) List(ctx context.Context, q model.CaseQuery) ([]model.Patient, error) {
	f := scopeFilter(q.Scope)
	if q.CaseStatus != "" {
		f["caseStatus"] = q.CaseStatus
	}
	if q.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		f["$or"] = bson.A{bson.M{"patientName": rx}, bson.M{"caseId": rx}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	cur, err := r.coll.Find(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []model.Patient{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// set applies a $set to one case and returns the updated document.
func (r *PatientRepo) set(ctx context.Context, filter bson.M, fields bson.M) (model.Patient, error) {
	fields["updatedAt"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p model.Patient
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": fields}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Patient{}, ErrNotFound
	}
	return p, err
}

// UpdateIntake replaces the patient name and intake form.
func (r *PatientRepo) UpdateIntake(ctx context.Context, id primitive.ObjectID, name string, in model.Intake) (model.Patient, error) {
	return r.set(ctx, bson.M{"_id": id}, bson.M{"patientName": name, "intake": in})
}

// SetStatus writes caseStatus. When unlockUpload is true the STL gate is
// opened in the same update; this method never closes it.
func (r *PatientRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status string, unlockUpload bool) (model.Patient, error) {
	fields := bson.M{"caseStatus": status}
	if unlockUpload {
		fields["stlFile.canUpload"] = true
	}
	return r.set(ctx, bson.M{"_id": id}, fields)
}

func (r *PatientRepo) SetProgress(ctx context.Context, id primitive.ObjectID, p model.ProgressStatus) (model.Patient, error) {
	return r.set(ctx, bson.M{"_id": id}, bson.M{"progressStatus": p})
}

// SetPrice writes total and/or received and recomputes pending from the
// stored values in the same update.
func (r *PatientRepo) SetPrice(ctx context.Context, id primitive.ObjectID, total, received *int64) (model.Patient, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p model.Patient
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, priceUpdate(total, received, time.Now().UTC()), opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Patient{}, ErrNotFound
	}
	return p, err
}

func (r *PatientRepo) AssignPlanner(ctx context.Context, id primitive.ObjectID, plannerID uint64, deadline *time.Time) (model.Patient, error) {
	return r.set(ctx, bson.M{"_id": id}, bson.M{"plannerId": plannerID, "plannerDeadline": deadline})
}

// SetSTLFile records the uploaded scan. The filter requires the upload gate
// to be open; a closed gate yields ErrConflict.
func (r *PatientRepo) SetSTLFile(ctx context.Context, id primitive.ObjectID, url, key string) (model.Patient, error) {
	p, err := r.set(ctx, bson.M{"_id": id, "stlFile.canUpload": true},
		bson.M{"stlFile.url": url, "stlFile.key": key})
	if errors.Is(err, ErrNotFound) {
		return model.Patient{}, ErrConflict
	}
	return p, err
}

func (r *PatientRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type statsFacet struct {
	ByStatus []struct {
		Key string `bson:"_id"`
		N   int64  `bson:"n"`
	} `bson:"byStatus"`
	ByProgress []struct {
		Key string `bson:"_id"`
		N   int64  `bson:"n"`
	} `bson:"byProgress"`
	Totals []struct {
		N        int64 `bson:"n"`
		Total    int64 `bson:"total"`
		Received int64 `bson:"received"`
		Pending  int64 `bson:"pending"`
	} `bson:"totals"`
}

// Stats aggregates counts and amount sums for the dashboard in one round trip.
func (r *PatientRepo) Stats(ctx context.Context, scope model.CaseScope) (model.CaseStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: scopeFilter(scope)}},
		{{Key: "$facet", Value: bson.M{
			"byStatus":   bson.A{bson.M{"$group": bson.M{"_id": "$caseStatus", "n": bson.M{"$sum": 1}}}},
			"byProgress": bson.A{bson.M{"$group": bson.M{"_id": "$progressStatus", "n": bson.M{"$sum": 1}}}},
			"totals": bson.A{bson.M{"$group": bson.M{
				"_id":      nil,
				"n":        bson.M{"$sum": 1},
				"total":    bson.M{"$sum": "$amount.total"},
				"received": bson.M{"$sum": "$amount.received"},
				"pending":  bson.M{"$sum": "$amount.pending"},
			}}},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return model.CaseStats{}, err
	}
	defer cur.Close(ctx)

	stats := model.CaseStats{ByStatus: map[string]int64{}, ByProgress: map[string]int64{}}
	var facets []statsFacet
	if err := cur.All(ctx, &facets); err != nil {
		return model.CaseStats{}, err
	}
	if len(facets) == 0 {
		return stats, nil
	}
	f := facets[0]
	for _, s := range f.ByStatus {
		stats.ByStatus[s.Key] = s.N
	}
	for _, p := range f.ByProgress {
		stats.ByProgress[p.Key] = p.N
	}
	if len(f.Totals) > 0 {
		t := f.Totals[0]
		stats.Total = t.N
		stats.Amount = model.Amount{Total: t.Total, Received: t.Received, Pending: t.Pending}
	}
	return stats, nil
}
