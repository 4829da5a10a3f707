package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"jewelry-ecommerce/middleware"
	"jewelry-ecommerce/models"
	"jewelry-ecommerce/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// UserController handles user-related requests
type UserController struct {
	Collection   *mongo.Collection
	EmailService *utils.EmailService
}

// NewUserController creates a new UserController with EmailService
func NewUserController(client *mongo.Client, emailService *utils.EmailService) *UserController {
	return &UserController{
		Collection:   client.Database("jewelry").Collection("users"),
		EmailService: emailService,
	}
}

// Register handles user registration
func (uc *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if user.Email == "" || user.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	count, err := uc.Collection.CountDocuments(ctx, bson.M{"email": user.Email})
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if count > 0 {
		http.Error(w, "User already exists", http.StatusBadRequest)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}
	user.ID = primitive.NewObjectID()
	user.Password = string(hashedPassword)
	user.Role = "user"
	user.IsVerified = false

	verificationToken, err := utils.GenerateJWT(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		http.Error(w, "Error generating verification token", http.StatusInternalServerError)
		return
	}
	user.VerificationToken = verificationToken

	if _, err := uc.Collection.InsertOne(ctx, user); err != nil {
		http.Error(w, "Error creating user", http.StatusInternalServerError)
		return
	}

	if err := uc.EmailService.SendVerificationEmail(user.Email, verificationToken); err != nil {
		http.Error(w, "Error sending verification email", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode("User registered successfully. Please check your email to verify your account.")
}

// VerifyEmail handles email verification
func (uc *UserController) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Verification token missing", http.StatusBadRequest)
		return
	}

	if _, err := utils.ParseToken(token); err != nil {
		http.Error(w, "Invalid token", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var user models.User
	err := uc.Collection.FindOne(ctx, bson.M{"verification_token": token}).Decode(&user)
	if err != nil {
		http.Error(w, "User not found or already verified", http.StatusBadRequest)
		return
	}

	_, err = uc.Collection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set": bson.M{
			"is_verified":        true,
			"verification_token": "",
		},
	})
	if err != nil {
		http.Error(w, "Error updating user verification status", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode("Email verified successfully. You can now log in.")
}

// Login handles user authentication
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var user models.User
	if err := uc.Collection.FindOne(ctx, bson.M{"email": creds.Email}).Decode(&user); err != nil {
		http.Error(w, "User not found", http.StatusUnauthorized)
		return
	}

	if !user.IsVerified {
		http.Error(w, "Email not verified", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		http.Error(w, "Invalid password", http.StatusUnauthorized)
		return
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		http.Error(w, "Error generating token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// GetProfile retrieves the authenticated user's profile
func (uc *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserClaims(r)
	if !ok {
		http.Error(w, "Could not parse user from context", http.StatusUnauthorized)
		return
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var user models.User
	if err := uc.Collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	user.Password = ""
	user.VerificationToken = ""
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// UpdateShippingAddress saves the authenticated user's default
// shipping address, typically the carrier-standardized one accepted at
// checkout.
func (uc *UserController) UpdateShippingAddress(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserClaims(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var addr models.ShippingAddress
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := uc.Collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"shipping_address": addr},
	})
	if err != nil {
		http.Error(w, "Error updating address", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(addr)
}
