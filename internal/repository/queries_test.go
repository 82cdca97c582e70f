package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/aligner-portal/internal/model"
)

func TestInboxQueries(t *testing.T) {
	aud := model.UserAudience(7)
	id := primitive.NewObjectID()

	assert.Equal(t, bson.D{{Key: "read", Value: 1}, {Key: "createdAt", Value: -1}}, inboxSort())
	assert.Equal(t, bson.M{"commentFor": aud}, inboxFilter(aud))
	assert.Equal(t, bson.M{"commentFor": aud, "read": false}, unreadInboxFilter(aud))
	assert.Equal(t, bson.M{"_id": id, "commentFor": aud, "read": false}, markNotificationFilter(id, aud))
}

func TestReceiptQueries(t *testing.T) {
	id := primitive.NewObjectID()
	want := bson.M{"$elemMatch": bson.M{"adminId": uint64(3), "readAt": nil}}

	assert.Equal(t, bson.M{"isActive": true, "readBy": want}, unreadSpecialFilter(3))
	assert.Equal(t, bson.M{"_id": id, "isActive": true, "readBy": want}, markReceiptFilter(id, 3))

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, bson.M{"$set": bson.M{"readBy.$.readAt": at}}, receiptUpdate(at))
}

func TestCommentAppendUpdate(t *testing.T) {
	pid := primitive.NewObjectID()
	e := model.CommentEntry{ID: primitive.NewObjectID(), Comment: "trim upper arch"}

	got := commentAppend(pid, "Jane Roe", e)
	assert.Equal(t, bson.M{"patientId": pid, "patientName": "Jane Roe"}, got["$setOnInsert"])
	assert.Equal(t, bson.M{"comments": e}, got["$push"])
	assert.Len(t, got, 2)
}

func TestPriceUpdate(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	total, received := int64(1000), int64(200)
	pending := bson.D{{Key: "$set", Value: bson.D{{Key: "amount.pending", Value: bson.D{
		{Key: "$subtract", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$amount.total", 0}}},
			bson.D{{Key: "$ifNull", Value: bson.A{"$amount.received", 0}}},
		}},
	}}}}}

	t.Run("total only leaves received untouched", func(t *testing.T) {
		got := priceUpdate(&total, nil, now)
		require.Len(t, got, 2)
		assert.Equal(t, bson.D{{Key: "$set", Value: bson.D{
			{Key: "amount.total", Value: int64(1000)},
			{Key: "updatedAt", Value: now},
		}}}, got[0])
		assert.Equal(t, pending, got[1])
	})

	t.Run("received only leaves total untouched", func(t *testing.T) {
		got := priceUpdate(nil, &received, now)
		require.Len(t, got, 2)
		assert.Equal(t, bson.D{{Key: "$set", Value: bson.D{
			{Key: "amount.received", Value: int64(200)},
			{Key: "updatedAt", Value: now},
		}}}, got[0])
		assert.Equal(t, pending, got[1])
	})

	t.Run("both fields in one stage", func(t *testing.T) {
		got := priceUpdate(&total, &received, now)
		assert.Equal(t, mongo.Pipeline{
			{{Key: "$set", Value: bson.D{
				{Key: "amount.total", Value: int64(1000)},
				{Key: "amount.received", Value: int64(200)},
				{Key: "updatedAt", Value: now},
			}}},
			pending,
		}, got)
	})
}
