package remote

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollectionName is the collection holding one document per tree path.
const MongoCollectionName = "collections"

// treeDocument stores the canonical JSON as text so arrays-with-gaps survive untouched.
type treeDocument struct {
	Path      string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type changeEvent struct {
	OperationType string        `bson:"operationType"`
	FullDocument  *treeDocument `bson:"fullDocument"`
}

// value returns the tree carried by a change event. A deleted document reads
// as an absent tree; events without a document carry nothing.
func (ev changeEvent) value() ([]byte, bool) {
	switch {
	case ev.OperationType == "delete":
		return nil, true
	case ev.FullDocument != nil:
		return []byte(ev.FullDocument.Value), true
	}
	return nil, false
}

// watchPipeline limits a change stream to the document of one path.
func watchPipeline(path string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: path}}}},
	}
}

// MongoStore watches tree documents through change streams (replica set required).
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(MongoCollectionName)}
}

func (s *MongoStore) Set(ctx context.Context, path string, value []byte) error {
	doc := treeDocument{Path: path, Value: string(value), UpdatedAt: time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": path}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) Get(ctx context.Context, path string) ([]byte, error) {
	var doc treeDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": path}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc.Value), nil
}

func (s *MongoStore) Watch(ctx context.Context, path string, onValue func([]byte)) error {
	go s.watchLoop(ctx, path, onValue)
	return nil
}

func (s *MongoStore) watchLoop(ctx context.Context, path string, onValue func([]byte)) {
	backoff := minBackoff
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	for ctx.Err() == nil {
		err := func() error {
			cs, err := s.coll.Watch(ctx, watchPipeline(path), opts)
			if err != nil {
				return err
			}
			defer cs.Close(context.Background())
			log.Printf("✅ MongoDB change stream started (path: %s)", path)

			current, err := s.Get(ctx, path)
			if err != nil {
				return err
			}
			onValue(current)
			backoff = minBackoff

			for cs.Next(ctx) {
				var ev changeEvent
				if err := cs.Decode(&ev); err != nil {
					log.Printf("failed to decode change event for %s: %v", path, err)
					continue
				}
				if v, ok := ev.value(); ok {
					onValue(v)
				}
			}
			return cs.Err()
		}()
		if ctx.Err() != nil {
			return
		}
		log.Printf("MongoDB change stream error on %s: %v", path, err)
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// Close is a no-op; the client is owned by the database package.
func (s *MongoStore) Close() error {
	return nil
}
