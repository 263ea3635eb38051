package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CounterKind partitions sequence numbering. Each (user, kind) pair owns an
// independent counter.
type CounterKind string

const (
	CounterBatch   CounterKind = "batch"
	CounterProduct CounterKind = "product"
)

// Counter is the per-(user, kind) sequence document backing human-readable
// ids like "p-12" and "b-3".
type Counter struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID string             `bson:"user_id" json:"user_id"`
	Type   CounterKind        `bson:"type" json:"type"`
	Seq    int64              `bson:"seq" json:"seq"`
}
