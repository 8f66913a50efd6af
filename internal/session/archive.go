package session

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"relay/internal/constants"
)

// Archive persists exported sessions outside the in-memory registry so runs
// survive restarts and can be migrated between deployments.
type Archive interface {
	Save(ctx context.Context, data *ExportedSession) error
	Load(ctx context.Context, sessionID string) (*ExportedSession, error)
	Delete(ctx context.Context, sessionID string) error
}

type archiveDocument struct {
	ID         string           `bson:"_id"`
	Export     *ExportedSession `bson:"export"`
	ArchivedAt time.Time        `bson:"archived_at"`
}

type mongoArchive struct {
	collection *mongo.Collection
}

func NewMongoArchive(db *mongo.Database) Archive {
	return &mongoArchive{
		collection: db.Collection(constants.ArchiveCollectionSessions),
	}
}

func (a *mongoArchive) Save(ctx context.Context, data *ExportedSession) error {
	if data == nil || data.Session == nil {
		return fmt.Errorf("export data missing session")
	}

	doc := archiveDocument{
		ID:         data.Session.ID,
		Export:     data,
		ArchivedAt: time.Now(),
	}

	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := a.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}
	return nil
}

func (a *mongoArchive) Load(ctx context.Context, sessionID string) (*ExportedSession, error) {
	filter := bson.M{"_id": sessionID}

	var doc archiveDocument
	err := a.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil // Not archived
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load archived session: %w", err)
	}

	return doc.Export, nil
}

func (a *mongoArchive) Delete(ctx context.Context, sessionID string) error {
	filter := bson.M{"_id": sessionID}

	if _, err := a.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete archived session: %w", err)
	}
	return nil
}
