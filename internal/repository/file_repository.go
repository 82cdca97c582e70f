package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/aligner-portal/internal/model"
)

// FileRepo stores case attachments in `patient_files`, one row per upload.
type FileRepo struct {
	coll *mongo.Collection
}

func NewFileRepo(db *mongo.Database) *FileRepo {
	return &FileRepo{coll: db.Collection("patient_files")}
}

func (r *FileRepo) Create(ctx context.Context, f *model.PatientFile) error {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, f)
	return err
}

func (r *FileRepo) GetByID(ctx context.Context, id primitive.ObjectID) (model.PatientFile, error) {
	var f model.PatientFile
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.PatientFile{}, ErrNotFound
	}
	return f, err
}

// ListByPatient returns a case's files in upload order.
func (r *FileRepo) ListByPatient(ctx context.Context, patientID primitive.ObjectID) ([]model.PatientFile, error) {
	cur, err := r.coll.Find(ctx, bson.M{"patientId": patientID},
		options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []model.PatientFile{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *FileRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *FileRepo) DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"patientId": patientID})
	return err
}
