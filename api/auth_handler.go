package api

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/autostock/autostock-api/models"
	"github.com/autostock/autostock-api/utils"
)

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func generateOTP() (string, error) {
	const digits = "0123456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = digits[int(buf[i])%len(digits)]
	}
	return string(buf), nil
}

// Signup handles POST /auth/signup: creates a pending user and emails a
// verification OTP.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.checkStruct(w, &req) {
		return
	}

	ctx := r.Context()

	var existing models.User
	err := h.users.FindOne(ctx, bson.M{"email": req.Email}).Decode(&existing)
	if err == nil {
		utils.RespondError(w, http.StatusConflict, "user with this email already exists")
		return
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		h.log.WithError(err).Error("failed to check existing user")
		utils.RespondError(w, http.StatusInternalServerError, "database error")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	otp, err := generateOTP()
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate OTP")
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hashed),
		Status:    "pending",
		OTP:       otp,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := h.users.InsertOne(ctx, user); err != nil {
		h.log.WithError(err).Error("failed to create user")
		utils.RespondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	if err := h.mailer.Send(req.Name, req.Email, "Verify your email",
		fmt.Sprintf("Your verification code is: %s", otp),
		fmt.Sprintf("<p>Your verification code is: <strong>%s</strong></p>", otp),
	); err != nil {
		// User exists; the client can request a fresh code via forgot-password.
		h.log.WithError(err).WithField("email", req.Email).Error("failed to send verification email")
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "user registered, verify your email with the code sent",
		"user":    user,
	})
}

// VerifyOTP handles POST /auth/verify-otp: marks a pending user verified.
func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.checkStruct(w, &req) {
		return
	}

	ctx := r.Context()

	var user models.User
	err := h.users.FindOne(ctx, bson.M{"email": req.Email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to look up user")
		utils.RespondError(w, http.StatusInternalServerError, "database error")
		return
	}

	if user.OTP == "" || user.OTP != req.OTP {
		utils.RespondError(w, http.StatusUnauthorized, "invalid OTP")
		return
	}

	if user.Status == "pending" {
		_, err = h.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
			"$set":   bson.M{"status": "verified", "updated_at": time.Now().UTC()},
			"$unset": bson.M{"otp": ""},
		})
		if err != nil {
			h.log.WithError(err).Error("failed to verify user")
			utils.RespondError(w, http.StatusInternalServerError, "failed to verify user")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"message": "email verified, proceed to login",
		})
		return
	}

	// Verified/active user with a matching OTP is in the password-reset flow;
	// the OTP stays until reset-password consumes it.
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "OTP verified, proceed to reset password",
	})
}

// VerifyEmail handles GET /auth/verify-email?token= for link-based
// verification.
func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.RespondError(w, http.StatusBadRequest, "token is required")
		return
	}

	ctx := r.Context()

	var user models.User
	err := h.users.FindOne(ctx, bson.M{"verification_token": token}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondError(w, http.StatusBadRequest, "invalid or expired verification token")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to look up verification token")
		utils.RespondError(w, http.StatusInternalServerError, "database error")
		return
	}

	_, err = h.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set":   bson.M{"status": "verified", "updated_at": time.Now().UTC()},
		"$unset": bson.M{"verification_token": ""},
	})
	if err != nil {
		h.log.WithError(err).Error("failed to verify user")
		utils.RespondError(w, http.StatusInternalServerError, "failed to verify user")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "email verified, proceed to login",
	})
}

// Login handles POST /auth/login: checks credentials and issues a JWT.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.checkStruct(w, &req) {
		return
	}

	ctx := r.Context()

	var user models.User
	err := h.users.FindOne(ctx, bson.M{"email": req.Email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to look up user")
		utils.RespondError(w, http.StatusInternalServerError, "database error")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		utils.RespondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if user.Status == "pending" {
		utils.RespondError(w, http.StatusForbidden, "please verify your email first")
		return
	}

	if user.Status == "verified" {
		_, err := h.users.UpdateOne(ctx, bson.M{"_id": user.ID},
			bson.M{"$set": bson.M{"status": "active", "updated_at": time.Now().UTC()}})
		if err != nil {
			h.log.WithError(err).Error("failed to activate user")
		} else {
			user.Status = "active"
		}
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID.Hex())
	if err != nil {
		h.log.WithError(err).Error("failed to generate token")
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "login successful",
		"token":   token,
		"user":    user,
	})
}

// ForgotPassword handles POST /auth/forgot-password: emails a reset OTP.
// Always answers 200 so the endpoint cannot be used to probe for accounts.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.checkStruct(w, &req) {
		return
	}

	ctx := r.Context()

	var user models.User
	err := h.users.FindOne(ctx, bson.M{"email": req.Email}).Decode(&user)
	if err == nil {
		otp, otpErr := generateOTP()
		if otpErr == nil {
			_, _ = h.users.UpdateOne(ctx, bson.M{"_id": user.ID},
				bson.M{"$set": bson.M{"otp": otp, "updated_at": time.Now().UTC()}})
			if mailErr := h.mailer.Send(user.Name, user.Email, "Reset your password",
				fmt.Sprintf("Your password reset code is: %s", otp),
				fmt.Sprintf("<p>Your password reset code is: <strong>%s</strong></p>", otp),
			); mailErr != nil {
				h.log.WithError(mailErr).WithField("email", req.Email).Error("failed to send reset email")
			}
		}
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		h.log.WithError(err).Error("failed to look up user")
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "if the account exists, a reset code has been sent",
	})
}

// ResetPassword handles POST /auth/reset-password: consumes the OTP and sets
// the new password.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.checkStruct(w, &req) {
		return
	}

	ctx := r.Context()

	var user models.User
	err := h.users.FindOne(ctx, bson.M{"email": req.Email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to look up user")
		utils.RespondError(w, http.StatusInternalServerError, "database error")
		return
	}

	if user.OTP == "" || user.OTP != req.OTP {
		utils.RespondError(w, http.StatusUnauthorized, "invalid OTP")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	_, err = h.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set":   bson.M{"password": string(hashed), "updated_at": time.Now().UTC()},
		"$unset": bson.M{"otp": ""},
	})
	if err != nil {
		h.log.WithError(err).Error("failed to reset password")
		utils.RespondError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "password reset, proceed to login",
	})
}

func (h *Handlers) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		RedirectURL:  h.cfg.GoogleRedirectURL,
		ClientID:     h.cfg.GoogleClientID,
		ClientSecret: h.cfg.GoogleClientSecret,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// GoogleLogin handles GET /auth/google/login by redirecting to Google.
func (h *Handlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	// TODO: randomize and persist the state parameter per session.
	url := h.oauthConfig().AuthCodeURL("state")
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleCallback handles GET /auth/google/callback: exchanges the code,
// upserts the user and issues the same JWT as credentials login.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("state") != "state" {
		utils.RespondError(w, http.StatusBadRequest, "invalid state")
		return
	}

	code := r.FormValue("code")
	if code == "" {
		utils.RespondError(w, http.StatusBadRequest, "code not found")
		return
	}

	ctx := r.Context()

	token, err := h.oauthConfig().Exchange(ctx, code)
	if err != nil {
		h.log.WithError(err).Error("failed to exchange oauth code")
		utils.RespondError(w, http.StatusInternalServerError, "failed to exchange token")
		return
	}

	resp, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken)
	if err != nil {
		h.log.WithError(err).Error("failed to fetch google user info")
		utils.RespondError(w, http.StatusInternalServerError, "failed to get user info")
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to read user info")
		return
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil || info.Email == "" {
		utils.RespondError(w, http.StatusInternalServerError, "unexpected user info response")
		return
	}

	now := time.Now().UTC()
	var user models.User
	err = h.users.FindOne(ctx, bson.M{"email": info.Email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		user = models.User{
			ID:        primitive.NewObjectID(),
			Name:      info.Name,
			Email:     info.Email,
			Image:     info.Picture,
			GoogleID:  info.ID,
			Status:    "active",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := h.users.InsertOne(ctx, user); err != nil {
			h.log.WithError(err).Error("failed to create google user")
			utils.RespondError(w, http.StatusInternalServerError, "failed to create user")
			return
		}
	} else if err != nil {
		h.log.WithError(err).Error("failed to look up user")
		utils.RespondError(w, http.StatusInternalServerError, "database error")
		return
	} else if user.GoogleID == "" {
		_, _ = h.users.UpdateOne(ctx, bson.M{"_id": user.ID},
			bson.M{"$set": bson.M{"google_id": info.ID, "updated_at": now}})
	}

	jwtToken, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID.Hex())
	if err != nil {
		h.log.WithError(err).Error("failed to generate token")
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "login successful",
		"token":   jwtToken,
		"user":    user,
	})
}
