package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	guildsCollection     = "discord_servers"
	matchesCollection    = "cached_match_data"
	bucketsCollection    = "cached_match_data_timestamps"
	analyticsCollection  = "command_analytics"
	defaultMongoDatabase = "league_discord_bot"
)

// MongoStore implements Store on MongoDB
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to uri, pings the primary and ensures indexes
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = defaultMongoDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("could not ping MongoDB: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.createIndexes(connectCtx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	slog.Info("Connected to MongoDB", "database", database)
	return s, nil
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		guildsCollection: {
			{Keys: bson.D{{Key: "guild_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		matchesCollection: {
			{
				Keys:    bson.D{{Key: "summoner_puuid", Value: 1}, {Key: "match_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "summoner_puuid", Value: 1}, {Key: "game_start_timestamp", Value: 1}}},
			{Keys: bson.D{{Key: "game_start_timestamp", Value: 1}}},
		},
		bucketsCollection: {
			{Keys: bson.D{{Key: "puuid", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		analyticsCollection: {
			{Keys: bson.D{{Key: "command_name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for collection, models := range indexes {
		if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

// Guild operations

// RegisterGuild upserts the guild document, leaving an existing one untouched
func (s *MongoStore) RegisterGuild(ctx context.Context, guildID, name string) (bool, error) {
	result, err := s.db.Collection(guildsCollection).UpdateOne(ctx,
		bson.M{"guild_id": guildID},
		bson.M{"$setOnInsert": bson.M{
			"guild_id":   guildID,
			"name":       name,
			"summoners":  bson.A{},
			"date_added": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return result.UpsertedCount > 0, nil
}

// GetGuild retrieves a guild document
func (s *MongoStore) GetGuild(ctx context.Context, guildID string) (*Guild, error) {
	var g Guild
	err := s.db.Collection(guildsCollection).FindOne(ctx, bson.M{"guild_id": guildID}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGuilds returns every guild document
func (s *MongoStore) ListGuilds(ctx context.Context) ([]*Guild, error) {
	cursor, err := s.db.Collection(guildsCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "date_added", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var guilds []*Guild
	if err := cursor.All(ctx, &guilds); err != nil {
		return nil, err
	}
	return guilds, nil
}

// Summoner operations

// AddSummoner pushes sm unless an element with the same puuid exists
func (s *MongoStore) AddSummoner(ctx context.Context, guildID string, sm Summoner) (bool, error) {
	if _, err := s.RegisterGuild(ctx, guildID, ""); err != nil {
		return false, err
	}

	result, err := s.db.Collection(guildsCollection).UpdateOne(ctx,
		bson.M{"guild_id": guildID, "summoners.puuid": bson.M{"$ne": sm.PUUID}},
		bson.M{"$push": bson.M{"summoners": sm}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

// RemoveSummoner pulls the summoner with puuid from the guild
func (s *MongoStore) RemoveSummoner(ctx context.Context, guildID, puuid string) (bool, error) {
	result, err := s.db.Collection(guildsCollection).UpdateOne(ctx,
		bson.M{"guild_id": guildID},
		bson.M{"$pull": bson.M{"summoners": bson.M{"puuid": puuid}}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

// UpdateSummonerRegion sets region on the array element matching puuid
func (s *MongoStore) UpdateSummonerRegion(ctx context.Context, guildID, puuid, region string) (bool, error) {
	result, err := s.db.Collection(guildsCollection).UpdateOne(ctx,
		bson.M{"guild_id": guildID, "summoners.puuid": puuid},
		bson.M{"$set": bson.M{"summoners.$.region": region}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// ListSummoners returns the guild's summoners in array order
func (s *MongoStore) ListSummoners(ctx context.Context, guildID string) ([]Summoner, error) {
	g, err := s.GetGuild(ctx, guildID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g.Summoners, nil
}

// Guild settings operations

// SetNotificationChannel sets main_channel_id, creating the guild if needed
func (s *MongoStore) SetNotificationChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	result, err := s.db.Collection(guildsCollection).UpdateOne(ctx,
		bson.M{"guild_id": guildID},
		bson.M{
			"$set":         bson.M{"main_channel_id": channelID},
			"$setOnInsert": bson.M{"summoners": bson.A{}, "date_added": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0 || result.UpsertedCount > 0, nil
}

// GetNotificationChannel returns the guild's main channel or ""
func (s *MongoStore) GetNotificationChannel(ctx context.Context, guildID string) (string, error) {
	g, err := s.GetGuild(ctx, guildID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return g.MainChannelID, nil
}

// Match cache operations

// EnsurePlayerBucket creates the player's bucket document on first sight
func (s *MongoStore) EnsurePlayerBucket(ctx context.Context, puuid, name string) error {
	_, err := s.db.Collection(bucketsCollection).UpdateOne(ctx,
		bson.M{"puuid": puuid},
		bson.M{"$setOnInsert": bson.M{"puuid": puuid, "name": name, "created_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// MarkPlayerCached stamps last_fetched on the player's bucket
func (s *MongoStore) MarkPlayerCached(ctx context.Context, puuid string, at time.Time) error {
	_, err := s.db.Collection(bucketsCollection).UpdateOne(ctx,
		bson.M{"puuid": puuid},
		bson.M{
			"$set":         bson.M{"last_fetched": at.UTC()},
			"$setOnInsert": bson.M{"created_at": at.UTC()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// IsPlayerCached reports whether an ingestion pass has completed for puuid
func (s *MongoStore) IsPlayerCached(ctx context.Context, puuid string) (bool, error) {
	n, err := s.db.Collection(bucketsCollection).CountDocuments(ctx,
		bson.M{"puuid": puuid, "last_fetched": bson.M{"$exists": true}},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AppendMatch inserts rec keyed by (summoner_puuid, match_id)
func (s *MongoStore) AppendMatch(ctx context.Context, rec *MatchRecord) (bool, error) {
	result, err := s.db.Collection(matchesCollection).UpdateOne(ctx,
		bson.M{"summoner_puuid": rec.PlayerID, "match_id": rec.MatchID},
		bson.M{"$setOnInsert": rec},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// Two concurrent upserts of the same key: the loser did not insert
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return result.UpsertedCount > 0, nil
}

// HasMatch reports whether the player's bucket already holds matchID
func (s *MongoStore) HasMatch(ctx context.Context, puuid, matchID string) (bool, error) {
	n, err := s.db.Collection(matchesCollection).CountDocuments(ctx,
		bson.M{"summoner_puuid": puuid, "match_id": matchID},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// QueryMatches returns the player's matches started at or after since
func (s *MongoStore) QueryMatches(ctx context.Context, puuid string, since int64) ([]*MatchRecord, error) {
	cursor, err := s.db.Collection(matchesCollection).Find(ctx, bson.M{
		"summoner_puuid":       puuid,
		"game_start_timestamp": bson.M{"$gte": since},
	})
	if err != nil {
		return nil, err
	}
	var records []*MatchRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// PruneMatches deletes matches that started before the cutoff
func (s *MongoStore) PruneMatches(ctx context.Context, before int64) (int64, error) {
	result, err := s.db.Collection(matchesCollection).DeleteMany(ctx,
		bson.M{"game_start_timestamp": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// RecordCommand increments the usage counter for a slash command
func (s *MongoStore) RecordCommand(ctx context.Context, name string) error {
	_, err := s.db.Collection(analyticsCollection).UpdateOne(ctx,
		bson.M{"command_name": name},
		bson.M{"$inc": bson.M{"times_called": 1}},
		options.Update().SetUpsert(true),
	)
	return err
}
