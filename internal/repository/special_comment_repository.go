package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/aligner-portal/internal/model"
)

// SpecialCommentRepo stores production comments in `special_comments`.
type SpecialCommentRepo struct {
	coll *mongo.Collection
}

func NewSpecialCommentRepo(db *mongo.Database) *SpecialCommentRepo {
	return &SpecialCommentRepo{coll: db.Collection("special_comments")}
}

func (r *SpecialCommentRepo) Create(ctx context.Context, s *model.SpecialComment) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, s)
	return err
}

func (r *SpecialCommentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (model.SpecialComment, error) {
	var s model.SpecialComment
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "isActive": true}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.SpecialComment{}, ErrNotFound
	}
	return s, err
}

// ListActive returns active comments, newest first.
func (r *SpecialCommentRepo) ListActive(ctx context.Context) ([]model.SpecialComment, error) {
	cur, err := r.coll.Find(ctx, bson.M{"isActive": true},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []model.SpecialComment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountUnread counts active comments whose receipt for adminID is unread.
// Admins without a receipt are not counted.
func (r *SpecialCommentRepo) CountUnread(ctx context.Context, adminID uint64) (int64, error) {
	return r.coll.CountDocuments(ctx, unreadSpecialFilter(adminID))
}

// MarkRead stamps the caller's unread receipt. It never inserts a receipt,
// so an admin created after the comment gets ErrNotFound, as does a second
// call for a receipt already read.
func (r *SpecialCommentRepo) MarkRead(ctx context.Context, id primitive.ObjectID, adminID uint64, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx, markReceiptFilter(id, adminID), receiptUpdate(at))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SpecialCommentRepo) Update(ctx context.Context, id primitive.ObjectID, title, comment string) (model.SpecialComment, error) {
	var s model.SpecialComment
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "isActive": true},
		bson.M{"$set": bson.M{"title": title, "comment": comment, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.SpecialComment{}, ErrNotFound
	}
	return s, err
}

// Deactivate soft-deletes a comment.
func (r *SpecialCommentRepo) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
