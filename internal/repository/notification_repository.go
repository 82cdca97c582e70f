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

type NotificationRepo struct {
	coll *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) *NotificationRepo {
	return &NotificationRepo{coll: db.Collection("notifications")}
}

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, n)
	return err
}

// ListFor returns the audience's notifications, unread first, newest first
// within each group.
func (r *NotificationRepo) ListFor(ctx context.Context, audience string) ([]model.Notification, error) {
	cur, err := r.coll.Find(ctx, inboxFilter(audience), options.Find().SetSort(inboxSort()))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []model.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, audience string) (int64, error) {
	return r.coll.CountDocuments(ctx, unreadInboxFilter(audience))
}

// MarkRead flips one unread notification to read. An already-read or
// missing notification yields ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, id primitive.ObjectID, audience string) (model.Notification, error) {
	var n model.Notification
	err := r.coll.FindOneAndUpdate(ctx,
		markNotificationFilter(id, audience),
		bson.M{"$set": bson.M{"read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Notification{}, ErrNotFound
	}
	return n, err
}

func (r *NotificationRepo) DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"patientId": patientID})
	return err
}
