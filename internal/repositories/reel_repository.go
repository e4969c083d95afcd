package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/subatomicERROR/codenano-sub000/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

// reelTTL is how long a reel stays on the feed before it expires.
const reelTTL = 7 * 24 * time.Hour

// ReelRepository defines the interface for reel operations. Reel documents
// live in MongoDB; view state lives in PostgreSQL.
type ReelRepository interface {
	CreateReel(ctx context.Context, reel *models.Reel) error
	GetReelByID(ctx context.Context, id string) (*models.Reel, error)
	GetReelsByUserIDs(ctx context.Context, userIDs []uint) ([]models.Reel, error)
	GetActiveReels(ctx context.Context) ([]models.Reel, error)
	DeleteReel(ctx context.Context, id string) error
	DeleteExpiredReels(ctx context.Context) error
	MarkViewed(view *models.ReelView) error
	HasViewed(reelID string, userID uint) (bool, error)
	IncrementViewsCount(ctx context.Context, reelID string) error
}

type reelRepository struct {
	mongoCollection *mongo.Collection
	pgDB            *gorm.DB
}

// NewReelRepository creates a repository over both stores
func NewReelRepository(mongoDB *mongo.Database, pgDB *gorm.DB) ReelRepository {
	return &reelRepository{
		mongoCollection: mongoDB.Collection("reels"),
		pgDB:            pgDB,
	}
}

func (r *reelRepository) CreateReel(ctx context.Context, reel *models.Reel) error {
	reel.ID = primitive.NewObjectID()
	reel.CreatedAt = time.Now()
	reel.ExpiresAt = time.Now().Add(reelTTL)
	_, err := r.mongoCollection.InsertOne(ctx, reel)
	return err
}

func (r *reelRepository) GetReelByID(ctx context.Context, id string) (*models.Reel, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid reel ID format")
	}
	var reel models.Reel
	err = r.mongoCollection.FindOne(ctx, bson.M{"_id": objID}).Decode(&reel)
	if err != nil {
		return nil, err
	}
	return &reel, nil
}

func (r *reelRepository) GetReelsByUserIDs(ctx context.Context, userIDs []uint) ([]models.Reel, error) {
	filter := bson.M{
		"user_id":    bson.M{"$in": userIDs},
		"expires_at": bson.M{"$gt": time.Now()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.mongoCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reels []models.Reel
	if err = cursor.All(ctx, &reels); err != nil {
		return nil, err
	}
	return reels, nil
}

func (r *reelRepository) GetActiveReels(ctx context.Context) ([]models.Reel, error) {
	filter := bson.M{"expires_at": bson.M{"$gt": time.Now()}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.mongoCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reels []models.Reel
	if err = cursor.All(ctx, &reels); err != nil {
		return nil, err
	}
	return reels, nil
}

func (r *reelRepository) DeleteReel(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid reel ID format")
	}
	res, err := r.mongoCollection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("reel not found")
	}
	return nil
}

func (r *reelRepository) DeleteExpiredReels(ctx context.Context) error {
	_, err := r.mongoCollection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now()}})
	return err
}

func (r *reelRepository) MarkViewed(view *models.ReelView) error {
	view.CreatedAt = time.Now()
	return r.pgDB.Create(view).Error
}

func (r *reelRepository) HasViewed(reelID string, userID uint) (bool, error) {
	var count int64
	err := r.pgDB.Model(&models.ReelView{}).Where("reel_id = ? AND user_id = ?", reelID, userID).Count(&count).Error
	return count > 0, err
}

func (r *reelRepository) IncrementViewsCount(ctx context.Context, reelID string) error {
	objID, err := primitive.ObjectIDFromHex(reelID)
	if err != nil {
		return fmt.Errorf("invalid reel ID format")
	}
	_, err = r.mongoCollection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$inc": bson.M{"views_count": 1}})
	return err
}
