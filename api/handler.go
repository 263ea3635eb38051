package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/autostock/autostock-api/config"
	"github.com/autostock/autostock-api/services"
	"github.com/autostock/autostock-api/utils"
)

// Handlers bundles the injected collaborators behind every route. Nothing in
// here is ambient; main constructs one of these and wires it to the mux.
type Handlers struct {
	cfg      *config.Config
	log      *logrus.Logger
	validate *validator.Validate

	mongo    *mongo.Client
	users    *mongo.Collection
	products *services.ProductService
	counters *services.CounterService

	blobs  *utils.BlobStore
	vision *utils.DescriptionClient
	mailer *utils.Mailer
}

func New(
	cfg *config.Config,
	log *logrus.Logger,
	client *mongo.Client,
	products *services.ProductService,
	counters *services.CounterService,
	blobs *utils.BlobStore,
	vision *utils.DescriptionClient,
	mailer *utils.Mailer,
) *Handlers {
	return &Handlers{
		cfg:      cfg,
		log:      log,
		validate: validator.New(),
		mongo:    client,
		users:    client.Database(cfg.MongoDBName).Collection("users"),
		products: products,
		counters: counters,
		blobs:    blobs,
		vision:   vision,
		mailer:   mailer,
	}
}

// Health reports liveness, including a store ping.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.mongo.Ping(r.Context(), nil); err != nil {
		utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"mongo":  err.Error(),
		})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func (h *Handlers) respondServiceError(w http.ResponseWriter, err error) {
	var upstream *services.UpstreamError
	var storage *services.StorageError

	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "not found")
	case errors.As(err, &upstream):
		h.log.WithError(err).WithField("service", upstream.Service).Error("upstream call failed")
		switch upstream.Kind {
		case services.UpstreamRateLimited:
			utils.RespondError(w, http.StatusTooManyRequests, "upstream rate limit exceeded, try again later")
		case services.UpstreamInvalidInput:
			utils.RespondError(w, http.StatusBadRequest, "upstream rejected the input")
		default:
			utils.RespondError(w, http.StatusBadGateway, "upstream service failed")
		}
	case errors.As(err, &storage):
		h.log.WithError(err).Error("storage call failed")
		utils.RespondError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		h.log.WithError(err).Error("internal error")
		utils.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// checkStruct runs validator tags over a request struct and writes a 400 with
// field detail on failure. Returns false when the request was rejected.
func (h *Handlers) checkStruct(w http.ResponseWriter, req interface{}) bool {
	err := h.validate.Struct(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		utils.RespondValidationError(w, fields)
		return false
	}

	utils.RespondError(w, http.StatusBadRequest, "invalid request")
	return false
}
