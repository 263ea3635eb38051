package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/autostock/autostock-api/models"
)

// ProductService is the sole mutation/query surface for product documents.
// It mints human-readable ids through the counter service and keeps the
// owning user's back-reference list in step on create and delete.
type ProductService struct {
	products *mongo.Collection
	users    *mongo.Collection
	counters *CounterService
}

func NewProductService(db *mongo.Database, counters *CounterService) *ProductService {
	return &ProductService{
		products: db.Collection("products"),
		users:    db.Collection("users"),
		counters: counters,
	}
}

// CreateProductInput carries the caller-supplied fields for a new product.
// Identifier and timestamp fields are assigned by Create.
type CreateProductInput struct {
	BatchID            string
	BatchName          string
	Stage              string
	Status             string
	Priority           int
	Description        string
	OriginalImages     []models.Asset
	ImageConfig        *models.ImageConfig
	EnhancementOptions *models.EnhancementOptions
	Metadata           *models.StockMetadata
}

// ListOptions filters and paginates FindByUser. Zero values mean "no filter";
// Page defaults to 1 and Limit to 10.
type ListOptions struct {
	Stage   string
	Status  string
	BatchID string
	Page    int
	Limit   int
}

// PaginatedProducts is one page of an owner-scoped listing.
type PaginatedProducts struct {
	Items      []models.Product `json:"items"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

// Create mints the product id (and a batch id when none was supplied),
// inserts the document and pushes its ObjectID onto the owner's products
// array. The insert and the back-reference push are two separate writes with
// no transaction around them: if the push fails the product exists without a
// back-reference on the user.
func (s *ProductService) Create(ctx context.Context, userID string, in CreateProductInput) (*models.Product, error) {
	seq, err := s.counters.NextSequence(ctx, userID, models.CounterProduct)
	if err != nil {
		return nil, err
	}

	batchID := in.BatchID
	if batchID == "" {
		batchSeq, err := s.counters.NextSequence(ctx, userID, models.CounterBatch)
		if err != nil {
			return nil, err
		}
		batchID = fmt.Sprintf("b-%d", batchSeq)
	}

	now := time.Now().UTC()
	for i := range in.OriginalImages {
		if in.OriginalImages[i].CreatedAt.IsZero() {
			in.OriginalImages[i].CreatedAt = now
		}
	}
	product := &models.Product{
		ID:                 primitive.NewObjectID(),
		UserID:             userID,
		ProductID:          fmt.Sprintf("p-%d", seq),
		BatchID:            batchID,
		BatchName:          in.BatchName,
		Description:        in.Description,
		Stage:              in.Stage,
		Status:             in.Status,
		Priority:           in.Priority,
		OriginalImages:     in.OriginalImages,
		ImageConfig:        in.ImageConfig,
		EnhancementOptions: in.EnhancementOptions,
		Metadata:           in.Metadata,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if _, err := s.products.InsertOne(ctx, product); err != nil {
		return nil, storageErr("products.insertOne", err)
	}

	_, err = s.users.UpdateOne(ctx,
		bson.M{"_id": userIDValue(userID)},
		bson.M{
			"$push": bson.M{"products": product.ID},
			"$set":  bson.M{"updated_at": now},
		},
	)
	if err != nil {
		return nil, storageErr("users.updateOne", err)
	}

	return product, nil
}

// FindByID returns the product or ErrNotFound. A malformed id is treated the
// same as an absent document.
func (s *ProductService) FindByID(ctx context.Context, id string) (*models.Product, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var product models.Product
	err = s.products.FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("products.findOne", err)
	}
	return &product, nil
}

// FindByUser lists the owner's products newest-first with optional
// stage/status/batch filters. The total count and the page query run
// concurrently against the store.
func (s *ProductService) FindByUser(ctx context.Context, userID string, opts ListOptions) (*PaginatedProducts, error) {
	filter := bson.M{"user_id": userID}
	if opts.Stage != "" {
		filter["stage"] = opts.Stage
	}
	if opts.Status != "" {
		filter["status"] = opts.Status
	}
	if opts.BatchID != "" {
		filter["batch_id"] = opts.BatchID
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 {
		limit = 10
	}
	skip := (page - 1) * limit

	var (
		items []models.Product
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		findOpts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetSkip(int64(skip)).
			SetLimit(int64(limit))
		cursor, err := s.products.Find(gctx, filter, findOpts)
		if err != nil {
			return storageErr("products.find", err)
		}
		defer cursor.Close(gctx)
		if err := cursor.All(gctx, &items); err != nil {
			return storageErr("products.cursor", err)
		}
		return nil
	})
	g.Go(func() error {
		n, err := s.products.CountDocuments(gctx, filter)
		if err != nil {
			return storageErr("products.countDocuments", err)
		}
		total = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if items == nil {
		items = []models.Product{}
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	return &PaginatedProducts{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Update merges the given fields into the document and stamps updated_at,
// returning the post-update product. No transition or cross-field validation
// happens here; concurrent updates are last-writer-wins per field.
func (s *ProductService) Update(ctx context.Context, id string, fields bson.M) (*models.Product, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var product models.Product
	err = s.products.FindOneAndUpdate(ctx,
		bson.M{"_id": objID},
		bson.M{"$set": set},
		opts,
	).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("products.findOneAndUpdate", err)
	}
	return &product, nil
}

// UpdateStage sets the workflow stage.
func (s *ProductService) UpdateStage(ctx context.Context, id, stage string) (*models.Product, error) {
	return s.Update(ctx, id, bson.M{"stage": stage})
}

// UpdateStatus sets the status, stamping completed_at when the product
// reaches "completed".
func (s *ProductService) UpdateStatus(ctx context.Context, id, status string) (*models.Product, error) {
	fields := bson.M{"status": status}
	if status == models.StatusCompleted {
		fields["completed_at"] = time.Now().UTC()
	}
	return s.Update(ctx, id, fields)
}

// AddAsset appends one asset with the given type and a fresh created_at.
// Assets are never reordered or deduplicated; appending the same payload
// twice yields two entries.
func (s *ProductService) AddAsset(ctx context.Context, id string, asset models.Asset, assetType string) (*models.Product, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	asset.Type = assetType
	asset.CreatedAt = now

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var product models.Product
	err = s.products.FindOneAndUpdate(ctx,
		bson.M{"_id": objID},
		bson.M{
			"$push": bson.M{"assets": asset},
			"$set":  bson.M{"updated_at": now},
		},
		opts,
	).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("products.findOneAndUpdate", err)
	}
	return &product, nil
}

// AddProcessingError appends a write-once error record and marks the product
// failed.
func (s *ProductService) AddProcessingError(ctx context.Context, id, stage, message string) (*models.Product, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	record := models.ProcessingError{
		Stage:     stage,
		Error:     message,
		Timestamp: now,
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var product models.Product
	err = s.products.FindOneAndUpdate(ctx,
		bson.M{"_id": objID},
		bson.M{
			"$push": bson.M{"processing_errors": record},
			"$set":  bson.M{"status": models.StatusFailed, "updated_at": now},
		},
		opts,
	).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("products.findOneAndUpdate", err)
	}
	return &product, nil
}

// Delete removes the product and pulls its id from the owner's products
// array. Returns false (no error) when the product does not exist. The two
// writes are not transactional: the product is already gone if the pull
// fails, leaving a stale reference on the user.
func (s *ProductService) Delete(ctx context.Context, id string) (bool, error) {
	product, err := s.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	result, err := s.products.DeleteOne(ctx, bson.M{"_id": product.ID})
	if err != nil {
		return false, storageErr("products.deleteOne", err)
	}
	if result.DeletedCount != 1 {
		return false, nil
	}

	_, err = s.users.UpdateOne(ctx,
		bson.M{"_id": userIDValue(product.UserID)},
		bson.M{
			"$pull": bson.M{"products": product.ID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return true, storageErr("users.updateOne", err)
	}
	return true, nil
}

// FindByIDs resolves a batch of ids; ids that are malformed or missing are
// silently omitted from the result.
func (s *ProductService) FindByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objIDs = append(objIDs, objID)
	}

	cursor, err := s.products.Find(ctx, bson.M{"_id": bson.M{"$in": objIDs}})
	if err != nil {
		return nil, storageErr("products.find", err)
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, storageErr("products.cursor", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// userIDValue maps an owner id onto the users collection _id. Production
// owner ids are ObjectID hex; any other opaque string addresses a string _id.
func userIDValue(userID string) interface{} {
	if objID, err := primitive.ObjectIDFromHex(userID); err == nil {
		return objID
	}
	return userID
}
