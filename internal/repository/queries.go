package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/aligner-portal/internal/model"
)

// Filter, sort and update documents shared by the Mongo repositories. They
// are plain values so their shapes can be checked without a server.

// inboxSort puts unread notifications first, newest first within a group.
func inboxSort() bson.D {
	return bson.D{{Key: "read", Value: 1}, {Key: "createdAt", Value: -1}}
}

func inboxFilter(audience string) bson.M {
	return bson.M{"commentFor": audience}
}

func unreadInboxFilter(audience string) bson.M {
	return bson.M{"commentFor": audience, "read": false}
}

// markNotificationFilter only matches an unread row, so a second mark-read
// finds nothing.
func markNotificationFilter(id primitive.ObjectID, audience string) bson.M {
	return bson.M{"_id": id, "commentFor": audience, "read": false}
}

func unreadReceipt(adminID uint64) bson.M {
	return bson.M{"$elemMatch": bson.M{"adminId": adminID, "readAt": nil}}
}

func unreadSpecialFilter(adminID uint64) bson.M {
	return bson.M{"isActive": true, "readBy": unreadReceipt(adminID)}
}

// markReceiptFilter binds the positional operator in receiptUpdate to the
// caller's unread receipt.
func markReceiptFilter(id primitive.ObjectID, adminID uint64) bson.M {
	return bson.M{"_id": id, "isActive": true, "readBy": unreadReceipt(adminID)}
}

func receiptUpdate(at time.Time) bson.M {
	return bson.M{"$set": bson.M{"readBy.$.readAt": at}}
}

// commentAppend creates the per-case log on first use and pushes e.
func commentAppend(patientID primitive.ObjectID, patientName string, e model.CommentEntry) bson.M {
	return bson.M{
		"$setOnInsert": bson.M{"patientId": patientID, "patientName": patientName},
		"$push":        bson.M{"comments": e},
	}
}

// priceUpdate is an aggregation pipeline update. The first stage writes the
// supplied fields, the second derives pending from the stored values, so
// concurrent total and received writes never drop each other.
func priceUpdate(total, received *int64, now time.Time) mongo.Pipeline {
	fields := bson.D{}
	if total != nil {
		fields = append(fields, bson.E{Key: "amount.total", Value: *total})
	}
	if received != nil {
		fields = append(fields, bson.E{Key: "amount.received", Value: *received})
	}
	fields = append(fields, bson.E{Key: "updatedAt", Value: now})
	return mongo.Pipeline{
		{{Key: "$set", Value: fields}},
		{{Key: "$set", Value: bson.D{{Key: "amount.pending", Value: bson.D{
			{Key: "$subtract", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$amount.total", 0}}},
				bson.D{{Key: "$ifNull", Value: bson.A{"$amount.received", 0}}},
			}},
		}}}}},
	}
}
