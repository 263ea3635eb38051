package main

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/autostock/autostock-api/api"
	"github.com/autostock/autostock-api/config"
	"github.com/autostock/autostock-api/services"
	"github.com/autostock/autostock-api/utils"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	ctx := context.Background()

	client, err := utils.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer client.Disconnect(ctx)
	log.Info("connected to MongoDB")

	db := client.Database(cfg.MongoDBName)
	if err := utils.EnsureIndexes(ctx, db); err != nil {
		log.WithError(err).Fatal("failed to create indexes")
	}

	blobs, err := utils.NewBlobStore(ctx, cfg.AWSRegion, cfg.AWSBucketName)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize blob store")
	}

	counters := services.NewCounterService(db)
	products := services.NewProductService(db, counters)
	vision := utils.NewDescriptionClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	mailer := utils.NewMailer(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFromAddr, log)

	h := api.New(cfg, log, client, products, counters, blobs, vision, mailer)

	auth := api.RequireAuth(cfg.JWTSecret)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /auth/signup", h.Signup)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/verify-otp", h.VerifyOTP)
	mux.HandleFunc("GET /auth/verify-email", h.VerifyEmail)
	mux.HandleFunc("POST /auth/forgot-password", h.ForgotPassword)
	mux.HandleFunc("POST /auth/reset-password", h.ResetPassword)
	mux.HandleFunc("GET /auth/google/login", h.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", h.GoogleCallback)

	mux.Handle("GET /products", auth(http.HandlerFunc(h.ListProducts)))
	mux.Handle("POST /products", auth(http.HandlerFunc(h.CreateProduct)))
	mux.Handle("POST /products/upload", auth(http.HandlerFunc(h.UploadProduct)))
	mux.Handle("POST /products/generate-prompts", auth(http.HandlerFunc(h.GeneratePrompts)))

	mux.Handle("GET /products/batch", auth(http.HandlerFunc(h.BatchProducts)))
	mux.Handle("PATCH /products/batch", auth(http.HandlerFunc(h.BatchUpdate)))
	mux.Handle("DELETE /products/batch", auth(http.HandlerFunc(h.BatchDelete)))

	mux.Handle("GET /products/{id}", auth(http.HandlerFunc(h.GetProduct)))
	mux.Handle("PATCH /products/{id}", auth(http.HandlerFunc(h.PatchProduct)))
	mux.Handle("DELETE /products/{id}", auth(http.HandlerFunc(h.DeleteProduct)))
	mux.Handle("POST /products/{id}/assets", auth(http.HandlerFunc(h.AddAsset)))
	mux.Handle("GET /products/{id}/assets", auth(http.HandlerFunc(h.ListAssets)))

	mux.Handle("POST /batches/new", auth(http.HandlerFunc(h.NewBatch)))

	handler := api.CORS(api.RequestLogger(log)(mux))

	log.WithField("port", cfg.Port).Info("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}
