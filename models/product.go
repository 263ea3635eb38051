package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Asset types. "prompt" assets carry the text prompt that produced them.
const (
	AssetOriginal  = "original"
	AssetPrompt    = "prompt"
	AssetGenerated = "generated"
	AssetEnhanced  = "enhanced"
)

// Workflow stages a product moves through. Stored as free strings; there is
// no enforced transition order.
const (
	StagePrompts  = "prompts"
	StageGenerate = "generate"
	StageEnhance  = "enhance"
	StageMetadata = "metadata"
)

const (
	StatusDraft      = "draft"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Asset is one image file attached to a product. Assets live inside their
// parent document and have no independent lifecycle.
type Asset struct {
	URL         string    `bson:"url" json:"url"`
	Type        string    `bson:"type" json:"type"`
	MimeType    string    `bson:"mime_type" json:"mime_type"`
	Size        int64     `bson:"size" json:"size"`
	Width       int       `bson:"width,omitempty" json:"width,omitempty"`
	Height      int       `bson:"height,omitempty" json:"height,omitempty"`
	Prompt      string    `bson:"prompt,omitempty" json:"prompt,omitempty"`
	Base64Image string    `bson:"base64_image,omitempty" json:"base64_image,omitempty"`
	AspectRatio string    `bson:"aspect_ratio,omitempty" json:"aspect_ratio,omitempty"`
	ArtStyle    string    `bson:"art_style,omitempty" json:"art_style,omitempty"`
	Quality     string    `bson:"quality,omitempty" json:"quality,omitempty"`
	Format      string    `bson:"format,omitempty" json:"format,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// ImageConfig is the generation/enhancement configuration bag. Base64Image is
// an in-flight payload for description generation, not a durable image store.
type ImageConfig struct {
	Base64Image       string `bson:"base64_image,omitempty" json:"base64_image,omitempty"`
	OriginalImageURL  string `bson:"original_image_url,omitempty" json:"original_image_url,omitempty"`
	GeneratedImageURL string `bson:"generated_image_url,omitempty" json:"generated_image_url,omitempty"`
	EnhancedImageURL  string `bson:"enhanced_image_url,omitempty" json:"enhanced_image_url,omitempty"`
	FinalImageURL     string `bson:"final_image_url,omitempty" json:"final_image_url,omitempty"`
	AspectRatio       string `bson:"aspect_ratio,omitempty" json:"aspect_ratio,omitempty"`
	ArtStyle          string `bson:"art_style,omitempty" json:"art_style,omitempty"`
	Quality           string `bson:"quality,omitempty" json:"quality,omitempty" validate:"omitempty,oneof=low medium high"`
	Format            string `bson:"format,omitempty" json:"format,omitempty" validate:"omitempty,oneof=jpg png webp"`
}

// EnhancementOptions selects post-processing steps for the enhance stage.
type EnhancementOptions struct {
	RemoveSubject    bool  `bson:"remove_subject,omitempty" json:"remove_subject,omitempty"`
	RemoveBackground bool  `bson:"remove_background,omitempty" json:"remove_background,omitempty"`
	EnhanceQuality   bool  `bson:"enhance_quality,omitempty" json:"enhance_quality,omitempty"`
	Compress         bool  `bson:"compress,omitempty" json:"compress,omitempty"`
	TargetSize       int64 `bson:"target_size,omitempty" json:"target_size,omitempty"`
}

// ReleaseInfo captures the release flags stock platforms ask for.
type ReleaseInfo struct {
	ModelRelease     bool `bson:"model_release,omitempty" json:"model_release,omitempty"`
	PropertyRelease  bool `bson:"property_release,omitempty" json:"property_release,omitempty"`
	EditorialRelease bool `bson:"editorial_release,omitempty" json:"editorial_release,omitempty"`
}

// Price is a stock listing price.
type Price struct {
	Amount   float64 `bson:"amount" json:"amount"`
	Currency string  `bson:"currency" json:"currency"`
}

// StockMetadata is the submission metadata for stock platforms. No cross-field
// consistency is enforced here.
type StockMetadata struct {
	Title          string       `bson:"title,omitempty" json:"title,omitempty"`
	Description    string       `bson:"description,omitempty" json:"description,omitempty"`
	Tags           []string     `bson:"tags,omitempty" json:"tags,omitempty"`
	Category       string       `bson:"category,omitempty" json:"category,omitempty"`
	ContentType    string       `bson:"content_type,omitempty" json:"content_type,omitempty" validate:"omitempty,oneof=photo illustration vector"`
	EditorialUsage bool         `bson:"editorial_usage,omitempty" json:"editorial_usage,omitempty"`
	ReleaseInfo    *ReleaseInfo `bson:"release_info,omitempty" json:"release_info,omitempty"`
	Price          *Price       `bson:"price,omitempty" json:"price,omitempty"`
}

// ProcessingError is one append-only failure record. Entries are written once
// and never edited or removed individually.
type ProcessingError struct {
	Stage     string    `bson:"stage" json:"stage"`
	Error     string    `bson:"error" json:"error"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Product is the per-image workflow entity.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	ProductID   string             `bson:"product_id" json:"product_id"` // "p-<n>", immutable
	BatchID     string             `bson:"batch_id,omitempty" json:"batch_id,omitempty"`
	BatchName   string             `bson:"batch_name,omitempty" json:"batch_name,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	Stage    string `bson:"stage,omitempty" json:"stage,omitempty"`
	Status   string `bson:"status,omitempty" json:"status,omitempty"`
	Priority int    `bson:"priority,omitempty" json:"priority,omitempty"`

	OriginalImages []Asset `bson:"original_images,omitempty" json:"original_images,omitempty"`
	Assets         []Asset `bson:"assets,omitempty" json:"assets,omitempty"`

	ImageConfig        *ImageConfig        `bson:"image_config,omitempty" json:"image_config,omitempty"`
	EnhancementOptions *EnhancementOptions `bson:"enhancement_options,omitempty" json:"enhancement_options,omitempty"`
	Metadata           *StockMetadata      `bson:"metadata,omitempty" json:"metadata,omitempty"`

	ProcessingErrors []ProcessingError `bson:"processing_errors,omitempty" json:"processing_errors,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}
