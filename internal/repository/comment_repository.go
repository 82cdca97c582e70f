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

// CommentRepo keeps one document per case in `patient_comments`. The
// unique index on patientId makes the upsert in Append safe under
// concurrent first comments.
type CommentRepo struct {
	coll *mongo.Collection
}

func NewCommentRepo(db *mongo.Database) *CommentRepo {
	return &CommentRepo{coll: db.Collection("patient_comments")}
}

// Append pushes an entry onto the case's comment log, creating the log on
// first use. It returns the comment document id and the appended entry.
func (r *CommentRepo) Append(ctx context.Context, patientID primitive.ObjectID, patientName string, e model.CommentEntry) (primitive.ObjectID, model.CommentEntry, error) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	update := commentAppend(patientID, patientName, e)
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc model.PatientComment
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"patientId": patientID}, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// lost the upsert race; the document exists now, push again
		err = r.coll.FindOneAndUpdate(ctx, bson.M{"patientId": patientID},
			bson.M{"$push": bson.M{"comments": e}},
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	}
	if err != nil {
		return primitive.NilObjectID, model.CommentEntry{}, err
	}
	if len(doc.Comments) == 0 {
		return primitive.NilObjectID, model.CommentEntry{}, errors.New("comment log empty after append")
	}
	return doc.ID, doc.Comments[len(doc.Comments)-1], nil
}

// GetByPatient returns the comment document of a case or ErrNotFound.
func (r *CommentRepo) GetByPatient(ctx context.Context, patientID primitive.ObjectID) (model.PatientComment, error) {
	var doc model.PatientComment
	err := r.coll.FindOne(ctx, bson.M{"patientId": patientID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.PatientComment{}, ErrNotFound
	}
	return doc, err
}

// UpdateEntry rewrites the text of one entry in place.
func (r *CommentRepo) UpdateEntry(ctx context.Context, patientID, commentID primitive.ObjectID, text string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"patientId": patientID, "comments._id": commentID},
		bson.M{"$set": bson.M{"comments.$.comment": text}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEntry removes one entry from the log.
func (r *CommentRepo) DeleteEntry(ctx context.Context, patientID, commentID primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"patientId": patientID, "comments._id": commentID},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CommentRepo) DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"patientId": patientID})
	return err
}
