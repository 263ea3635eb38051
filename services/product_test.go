package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/autostock/autostock-api/models"
)

func newProductService(t *testing.T) (*ProductService, *mongo.Database) {
	t.Helper()
	db := testDB(t)
	return NewProductService(db, NewCounterService(db)), db
}

func TestCreateMintsIdentifiers(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	p1, err := svc.Create(ctx, "u1", CreateProductInput{Stage: models.StagePrompts, Status: models.StatusDraft})
	require.NoError(t, err)
	assert.Equal(t, "p-1", p1.ProductID)
	assert.Equal(t, "b-1", p1.BatchID)
	assert.Equal(t, "u1", p1.UserID)
	assert.False(t, p1.CreatedAt.IsZero())
	assert.Equal(t, p1.CreatedAt, p1.UpdatedAt)

	// An explicit batch id is preserved verbatim and does not consume a
	// batch sequence number.
	p2, err := svc.Create(ctx, "u1", CreateProductInput{BatchID: "b-1", Stage: models.StagePrompts})
	require.NoError(t, err)
	assert.Equal(t, "p-2", p2.ProductID)
	assert.Equal(t, "b-1", p2.BatchID)

	p3, err := svc.Create(ctx, "u1", CreateProductInput{Stage: models.StagePrompts})
	require.NoError(t, err)
	assert.Equal(t, "p-3", p3.ProductID)
	assert.Equal(t, "b-2", p3.BatchID, "fresh batch id distinct from prior mints")
}

func TestCreatePushesUserBackReference(t *testing.T) {
	svc, db := newProductService(t)
	ctx := context.Background()

	userID := primitive.NewObjectID()
	_, err := db.Collection("users").InsertOne(ctx, bson.M{
		"_id": userID, "email": "owner@example.com", "created_at": time.Now(),
	})
	require.NoError(t, err)

	product, err := svc.Create(ctx, userID.Hex(), CreateProductInput{Stage: models.StagePrompts})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user))
	require.Len(t, user.Products, 1)
	assert.Equal(t, product.ID, user.Products[0])
}

func TestFindByIDRoundTrip(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", CreateProductInput{
		Stage:     models.StageGenerate,
		Status:    models.StatusDraft,
		BatchName: "city skylines",
		ImageConfig: &models.ImageConfig{
			OriginalImageURL: "https://example.com/img.jpg",
			Quality:          "high",
		},
		OriginalImages: []models.Asset{{
			URL:      "https://example.com/img.jpg",
			Type:     models.AssetOriginal,
			MimeType: "image/jpeg",
			Size:     1024,
			Width:    800,
			Height:   600,
		}},
	})
	require.NoError(t, err)

	found, err := svc.FindByID(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, created.ProductID, found.ProductID)
	assert.Equal(t, created.BatchID, found.BatchID)
	assert.Equal(t, "city skylines", found.BatchName)
	assert.Equal(t, "high", found.ImageConfig.Quality)
	require.Len(t, found.OriginalImages, 1)
	assert.Equal(t, int64(1024), found.OriginalImages[0].Size)
	assert.False(t, found.OriginalImages[0].CreatedAt.IsZero())
}

func TestFindByIDNotFound(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	_, err := svc.FindByID(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.FindByID(ctx, "not-a-hex-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTouchesOnlyGivenFields(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", CreateProductInput{
		Stage:     models.StagePrompts,
		Status:    models.StatusDraft,
		BatchName: "before",
		Priority:  3,
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID.Hex(), bson.M{"description": "x"})
	require.NoError(t, err)

	assert.Equal(t, "x", updated.Description)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt.Truncate(time.Millisecond)))

	// Everything else is untouched.
	assert.Equal(t, created.ProductID, updated.ProductID)
	assert.Equal(t, created.BatchID, updated.BatchID)
	assert.Equal(t, "before", updated.BatchName)
	assert.Equal(t, models.StagePrompts, updated.Stage)
	assert.Equal(t, models.StatusDraft, updated.Status)
	assert.Equal(t, 3, updated.Priority)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())
}

func TestUpdateNotFound(t *testing.T) {
	svc, _ := newProductService(t)

	_, err := svc.Update(context.Background(), primitive.NewObjectID().Hex(), bson.M{"description": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatusCompletedStampsCompletedAt(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", CreateProductInput{Stage: models.StageMetadata, Status: models.StatusProcessing})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, created.ID.Hex(), models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)
}

func TestAddAssetAllowsDuplicates(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", CreateProductInput{Stage: models.StageGenerate})
	require.NoError(t, err)

	asset := models.Asset{
		URL:      "https://example.com/gen.png",
		MimeType: "image/png",
		Size:     2048,
	}

	_, err = svc.AddAsset(ctx, created.ID.Hex(), asset, models.AssetGenerated)
	require.NoError(t, err)
	updated, err := svc.AddAsset(ctx, created.ID.Hex(), asset, models.AssetGenerated)
	require.NoError(t, err)

	require.Len(t, updated.Assets, 2, "identical payloads produce two entries")
	assert.Equal(t, models.AssetGenerated, updated.Assets[0].Type)
	assert.Equal(t, models.AssetGenerated, updated.Assets[1].Type)
	assert.False(t, updated.Assets[1].CreatedAt.IsZero())
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt.Truncate(time.Millisecond)))
}

func TestAddProcessingErrorMarksFailed(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", CreateProductInput{Stage: models.StagePrompts, Status: models.StatusProcessing})
	require.NoError(t, err)

	updated, err := svc.AddProcessingError(ctx, created.ID.Hex(), models.StagePrompts, "model timed out")
	require.NoError(t, err)

	require.Len(t, updated.ProcessingErrors, 1)
	assert.Equal(t, models.StagePrompts, updated.ProcessingErrors[0].Stage)
	assert.Equal(t, "model timed out", updated.ProcessingErrors[0].Error)
	assert.False(t, updated.ProcessingErrors[0].Timestamp.IsZero())
	assert.Equal(t, models.StatusFailed, updated.Status)
}

func TestDelete(t *testing.T) {
	svc, db := newProductService(t)
	ctx := context.Background()

	userID := primitive.NewObjectID()
	_, err := db.Collection("users").InsertOne(ctx, bson.M{
		"_id": userID, "email": "owner@example.com",
	})
	require.NoError(t, err)

	created, err := svc.Create(ctx, userID.Hex(), CreateProductInput{Stage: models.StagePrompts})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.FindByID(ctx, created.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)

	// Back-reference pulled from the owner.
	var user models.User
	require.NoError(t, db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user))
	assert.Empty(t, user.Products)

	// Deleting again is a false, not an error.
	deleted, err = svc.Delete(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFindByUserPagination(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	// Owner u1: two products in batch b-1, created in order.
	p1, err := svc.Create(ctx, "u1", CreateProductInput{Stage: models.StagePrompts})
	require.NoError(t, err)
	assert.Equal(t, "b-1", p1.BatchID)
	time.Sleep(5 * time.Millisecond) // distinct created_at for a stable sort
	p2, err := svc.Create(ctx, "u1", CreateProductInput{BatchID: "b-1", Stage: models.StagePrompts})
	require.NoError(t, err)

	// Noise from another owner.
	_, err = svc.Create(ctx, "u2", CreateProductInput{Stage: models.StagePrompts})
	require.NoError(t, err)

	result, err := svc.FindByUser(ctx, "u1", ListOptions{BatchID: "b-1", Page: 1, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 10, result.Limit)
	assert.Equal(t, 1, result.TotalPages)
	require.Len(t, result.Items, 2)
	assert.Equal(t, p2.ProductID, result.Items[0].ProductID, "newest first")
	assert.Equal(t, p1.ProductID, result.Items[1].ProductID)
}

func TestFindByUserFiltersAndPages(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, "u1", CreateProductInput{Stage: models.StagePrompts, Status: models.StatusDraft})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "u1", CreateProductInput{Stage: models.StageEnhance, Status: models.StatusProcessing})
	require.NoError(t, err)

	result, err := svc.FindByUser(ctx, "u1", ListOptions{Stage: models.StagePrompts, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, 3, result.TotalPages)
	assert.Len(t, result.Items, 2)

	result, err = svc.FindByUser(ctx, "u1", ListOptions{Status: models.StatusProcessing})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	// Unknown owner: empty page, zero totals.
	result, err = svc.FindByUser(ctx, "nobody", ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Total)
	assert.Equal(t, 0, result.TotalPages)
	assert.NotNil(t, result.Items)
	assert.Len(t, result.Items, 0)
}

func TestFindByIDsOmitsMissing(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	p1, err := svc.Create(ctx, "u1", CreateProductInput{Stage: models.StagePrompts})
	require.NoError(t, err)
	p2, err := svc.Create(ctx, "u1", CreateProductInput{Stage: models.StagePrompts})
	require.NoError(t, err)

	ids := []string{
		p1.ID.Hex(),
		primitive.NewObjectID().Hex(), // absent
		"garbage",                     // malformed
		p2.ID.Hex(),
	}

	products, err := svc.FindByIDs(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	products, err = svc.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, products)
}
