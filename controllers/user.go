package controllers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"go-storefront/models"
	"go-storefront/repository"
	"go-storefront/utils"
)

const (
	maxLoginAttempts = 5
	lockDuration     = 30 * time.Minute
	resetTokenTTL    = time.Hour
)

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`\d`)
	specialRe = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// UserController handles authentication and profile requests
type UserController struct {
	Collection *mongo.Collection
	Mailer     utils.Mailer
	ClientURL  string
	Now        func() time.Time
}

// NewUserController creates a new UserController
func NewUserController(db *mongo.Database, mailer utils.Mailer, clientURL string) *UserController {
	return &UserController{
		Collection: db.Collection(repository.UsersCollection),
		Mailer:     mailer,
		ClientURL:  strings.TrimRight(clientURL, "/"),
		Now:        time.Now,
	}
}

// EnsureIndexes makes email unique.
func (uc *UserController) EnsureIndexes(ctx context.Context) error {
	_, err := uc.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type authResponse struct {
	ID           primitive.ObjectID `json:"_id"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Role         string             `json:"role"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken,omitempty"`
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return utils.NewValidationError("Password must be at least 8 characters long")
	}
	if !upperRe.MatchString(password) || !lowerRe.MatchString(password) ||
		!digitRe.MatchString(password) || !specialRe.MatchString(password) {
		return utils.NewValidationError("Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character")
	}
	return nil
}

// issueTokens mints both tokens and stores the refresh token on the user.
func (uc *UserController) issueTokens(r *http.Request, user *models.User, extra bson.M) (*authResponse, error) {
	accessToken, err := utils.GenerateAccessToken(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := utils.GenerateRefreshToken(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, err
	}

	set := bson.M{"refreshToken": refreshToken}
	for k, v := range extra {
		set[k] = v
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	update := bson.M{"$set": set, "$unset": bson.M{"lockUntil": ""}}
	if _, err := uc.Collection.UpdateOne(ctx, bson.M{"_id": user.ID}, update); err != nil {
		return nil, err
	}
	return &authResponse{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Register handles user registration
func (uc *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		utils.WriteError(w, utils.NewValidationError("Name, email and password are required"))
		return
	}
	if len([]rune(req.Name)) < 2 {
		utils.WriteError(w, utils.NewValidationError("Name must be at least 2 characters long"))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		utils.WriteError(w, utils.NewValidationError("Please provide a valid email address"))
		return
	}
	if err := validatePassword(req.Password); err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	count, err := uc.Collection.CountDocuments(ctx, bson.M{"email": req.Email})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if count > 0 {
		utils.WriteError(w, utils.NewValidationError("User already exists"))
		return
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hashedPassword),
		Role:      models.RoleUser,
		CreatedAt: uc.Now().UTC(),
	}
	if _, err := uc.Collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.WriteError(w, utils.NewValidationError("User already exists"))
			return
		}
		utils.WriteError(w, err)
		return
	}

	resp, err := uc.issueTokens(r, &user, nil)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	log.Ctx(r.Context()).Info().Str("user_id", user.ID.Hex()).Msg("user registered")
	utils.WriteJSON(w, http.StatusCreated, resp)
}

// Login handles user authentication. Repeated failures lock the account.
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &creds); err != nil {
		utils.WriteError(w, err)
		return
	}
	if creds.Email == "" || creds.Password == "" {
		utils.WriteError(w, utils.NewValidationError("Email and password are required"))
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var user models.User
	err := uc.Collection.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(creds.Email))}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.WriteError(w, utils.NewAuthError("Invalid email or password"))
		return
	}
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	now := uc.Now()
	if user.IsLocked(now) {
		utils.WriteError(w, utils.NewForbiddenError("Account is locked. Please try again later."))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		attempts := user.FailedLoginAttempts + 1
		if user.LockUntil != nil {
			// a previous lock has expired, start counting again
			attempts = 1
		}
		update := bson.M{"$set": bson.M{"failedLoginAttempts": attempts}, "$unset": bson.M{"lockUntil": ""}}
		if attempts >= maxLoginAttempts {
			update = bson.M{"$set": bson.M{"failedLoginAttempts": attempts, "lockUntil": now.Add(lockDuration).UTC()}}
			log.Ctx(ctx).Warn().Str("user_id", user.ID.Hex()).Msg("account locked after failed logins")
		}
		if _, err := uc.Collection.UpdateOne(ctx, bson.M{"_id": user.ID}, update); err != nil {
			utils.WriteError(w, err)
			return
		}
		utils.WriteError(w, utils.NewAuthError("Invalid email or password"))
		return
	}

	resp, err := uc.issueTokens(r, &user, bson.M{"failedLoginAttempts": 0, "isEmailVerified": true})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

// RefreshToken exchanges a stored refresh token for a new access token
func (uc *UserController) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if req.RefreshToken == "" {
		utils.WriteError(w, utils.NewAuthError("Refresh token required"))
		return
	}
	claims, err := utils.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		utils.WriteError(w, utils.NewAuthError("Invalid refresh token"))
		return
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		utils.WriteError(w, utils.NewAuthError("Invalid refresh token"))
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var user models.User
	err = uc.Collection.FindOne(ctx, bson.M{"_id": userID, "refreshToken": req.RefreshToken}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = utils.NewAuthError("Invalid refresh token")
		}
		utils.WriteError(w, err)
		return
	}

	accessToken, err := utils.GenerateAccessToken(user.ID.Hex(), user.Role)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, authResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		AccessToken: accessToken,
	})
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ForgotPassword emails a one hour password reset link
func (uc *UserController) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	result, err := uc.Collection.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{
		"passwordResetToken":   hashResetToken(token),
		"passwordResetExpires": uc.Now().Add(resetTokenTTL).UTC(),
	}})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if result.MatchedCount == 0 {
		utils.WriteError(w, utils.NewNotFoundError("User not found"))
		return
	}

	subject, body := utils.PasswordResetEmail(uc.ClientURL + "/reset-password?oobCode=" + token)
	if err := uc.Mailer.SendEmail(email, subject, body); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to send password reset email")
		utils.WriteError(w, utils.NewUnknownError(err, "Could not send password reset email"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, messageResponse{Message: "Password reset email sent"})
}

// ResetPassword consumes a reset token and sets a new password
func (uc *UserController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"oobCode"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if req.Token == "" {
		utils.WriteError(w, utils.NewValidationError("Invalid or expired reset token"))
		return
	}
	if err := validatePassword(req.NewPassword); err != nil {
		utils.WriteError(w, err)
		return
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	filter := bson.M{
		"passwordResetToken":   hashResetToken(req.Token),
		"passwordResetExpires": bson.M{"$gt": uc.Now().UTC()},
	}
	update := bson.M{
		"$set":   bson.M{"password": string(hashedPassword), "failedLoginAttempts": 0},
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": "", "lockUntil": "", "refreshToken": ""},
	}
	result, err := uc.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if result.MatchedCount == 0 {
		utils.WriteError(w, utils.NewValidationError("Invalid or expired reset token"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, messageResponse{Message: "Password reset successfully"})
}

// GetProfile retrieves the authenticated user's profile
func (uc *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var user models.User
	if err := uc.Collection.FindOne(ctx, bson.M{"_id": caller.UserID}).Decode(&user); err != nil {
		utils.WriteError(w, notFound(err, "User not found"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}

// Logout forgets the caller's refresh token
func (uc *UserController) Logout(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if _, err := uc.Collection.UpdateOne(ctx, bson.M{"_id": caller.UserID}, bson.M{"$unset": bson.M{"refreshToken": ""}}); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}
