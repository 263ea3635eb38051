package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/autostock/autostock-api/models"
)

// CounterService issues strictly increasing per-(user, kind) sequence
// numbers used to mint human-readable ids ("p-<n>", "b-<n>").
type CounterService struct {
	col *mongo.Collection
}

func NewCounterService(db *mongo.Database) *CounterService {
	return &CounterService{col: db.Collection("counters")}
}

// NextSequence atomically increments the counter for (userID, kind) and
// returns the resulting value. The document is upserted on first use, so the
// first call for a new pair returns 1. The single findAndModify keeps
// concurrent callers from ever observing the same value.
func (s *CounterService) NextSequence(ctx context.Context, userID string, kind models.CounterKind) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter models.Counter
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "type": kind},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, storageErr("counters.findOneAndUpdate", err)
	}
	return counter.Seq, nil
}

// CurrentSequence returns the counter's current value without mutating it,
// or 0 when no counter document exists yet.
func (s *CounterService) CurrentSequence(ctx context.Context, userID string, kind models.CounterKind) (int64, error) {
	var counter models.Counter
	err := s.col.FindOne(ctx, bson.M{"user_id": userID, "type": kind}).Decode(&counter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("counters.findOne", err)
	}
	return counter.Seq, nil
}

// ResetSequence force-sets the counter back to 0, creating the document if
// absent. The next NextSequence call returns 1 again, so ids already handed
// out can be minted a second time if they are still referenced elsewhere.
// Administrative use only.
func (s *CounterService) ResetSequence(ctx context.Context, userID string, kind models.CounterKind) error {
	opts := options.Update().SetUpsert(true)
	_, err := s.col.UpdateOne(ctx,
		bson.M{"user_id": userID, "type": kind},
		bson.M{"$set": bson.M{"seq": int64(0)}},
		opts,
	)
	if err != nil {
		return storageErr("counters.updateOne", err)
	}
	return nil
}
