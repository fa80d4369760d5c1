package database

import (
	"errors"
	"time"

	"github.com/dmtral/aipulse/app/model"
)

// ErrDuplicate is returned by Insert when a record with the same
// source_id already exists. Callers treat it as "already processed",
// not as a failure; the primary key makes concurrent inserts safe.
var ErrDuplicate = errors.New("record already exists")

type RecordRepository interface {
	Exists(kind model.Kind, sourceID string) (bool, error)
	Insert(kind model.Kind, rec *model.Record) error
	AppendNotifiedChannel(kind model.Kind, sourceID, channel string) error

	QuerySince(kind model.Kind, from, to time.Time) ([]model.Record, error)
	GetUndigested(kind model.Kind, from, to time.Time) ([]model.Record, error)
	MarkDigested(kind model.Kind, sourceIDs []string) error

	DeleteOlderThan(kind model.Kind, cutoff time.Time) (int64, error)
	GetRecordStats(kind model.Kind) (total, relevant, notified int, err error)
}

type TopicRepository interface {
	GetTopics() (map[string]int64, error)
	SaveTopic(key string, threadID int64) error
}
