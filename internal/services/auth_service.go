package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/librahub/backend/internal/models"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

type AuthService struct {
	db        *sqlx.DB
	redis     *redis.Client
	validator *validator.Validate
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"jdoe"`                  // Member username
	Password string `json:"password" validate:"required,min=6" example:"password123"` // Member password
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=64,alphanum" example:"jdoe"` // Member username
	Password  string `json:"password" validate:"required,min=6" example:"password123"`       // Member password
	FirstName string `json:"first_name" validate:"required,min=2" example:"John"`            // Member first name
	LastName  string `json:"last_name" validate:"required,min=2" example:"Doe"`              // Member last name
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token  string        `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	Member models.Member `json:"member"`                                                  // Member information
}

// Claims carried by every access token.
type Claims struct {
	MemberID int64    `json:"member_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

func NewAuthService(db *sqlx.DB, redisClient *redis.Client) *AuthService {
	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: validator.New(),
	}
}

// CreateMember stores a new member with the given roles.
func (s *AuthService) CreateMember(ctx context.Context, req RegisterRequest, roles []string) (*models.Member, error) {
	if err := s.validator.Struct(&req); err != nil {
		return nil, &Error{Kind: KindBadRequest, Message: "validation failed", Err: err}
	}
	if len(roles) == 0 {
		roles = []string{models.RoleMember}
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	member := &models.Member{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     strings.ToLower(req.Username),
		PasswordHash: hashedPassword,
		Roles:        pq.StringArray(roles),
	}
	err = s.db.QueryRowxContext(ctx, `
		INSERT INTO members (first_name, last_name, username, password_hash, roles, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		RETURNING id`,
		member.FirstName, member.LastName, member.Username, member.PasswordHash, member.Roles, now, now).Scan(&member.ID)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return nil, newError(KindAlreadyExists, "username %s already exists", member.Username)
		}
		return nil, dbError(err, "insert member")
	}
	member.CreatedAt, member.UpdatedAt = now, now

	log.Printf("[AUTH] Member created - ID: %d, Username: %s, Roles: %v", member.ID, member.Username, roles)
	return member, nil
}

// Authenticate checks a username/password pair and returns the member.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.Member, error) {
	var member models.Member
	err := s.db.GetContext(ctx, &member, `
		SELECT id, first_name, last_name, username, password_hash, roles, created_at, updated_at, version
		FROM members WHERE username = $1 AND deleted = false`, strings.ToLower(username))
	if err != nil {
		if isNoRows(err) {
			return nil, newError(KindAccessDenied, "invalid credentials")
		}
		return nil, dbError(err, "load member")
	}
	if !verifyPassword(password, member.PasswordHash) {
		return nil, newError(KindAccessDenied, "invalid credentials")
	}
	return &member, nil
}

// Register handles member registration
// @Summary Register a new member
// @Description Register a library member with username, password, and name
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} AuthResponse "Registration successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 409 {object} ErrorResponse "Username already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	var req RegisterRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		log.Printf("[AUTH] Registration failed - %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Registration validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	member, err := s.CreateMember(r.Context(), req, nil)
	if err != nil {
		log.Printf("[AUTH] Registration failed for %s: %v", req.Username, err)
		SendServiceError(w, err)
		return
	}

	s.respondWithToken(w, member)
}

// Login handles member authentication
// @Summary Login member
// @Description Authenticate a member with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req LoginRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		log.Printf("[AUTH] Login failed - %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	member, err := s.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		log.Printf("[AUTH] Login rejected for %s: %v", req.Username, err)
		if KindOf(err) == KindAccessDenied {
			SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
			return
		}
		SendServiceError(w, err)
		return
	}

	log.Printf("[AUTH] Password verified for member ID: %d", member.ID)
	s.respondWithToken(w, member)
}

func (s *AuthService) respondWithToken(w http.ResponseWriter, member *models.Member) {
	token, err := GenerateJWT(member)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for member %d: %v", member.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, Member: *member})
}

// Logout handles member logout
// @Summary Logout member
// @Description Logout member and blacklist token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token != "" && s.redis != nil {
		key := fmt.Sprintf("blacklist:%s", token)
		expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
		if err := s.redis.Set(r.Context(), key, "1", expiry).Err(); err != nil {
			log.Printf("[AUTH] Failed to blacklist token: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// GenerateJWT issues an access token for member.
func GenerateJWT(member *models.Member) (string, error) {
	now := time.Now()
	claims := Claims{
		MemberID: member.ID,
		Username: member.Username,
		Roles:    member.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", member.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

// ParseJWT validates a token and returns its claims.
func ParseJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(viper.GetString("jwt.secret_key")), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func argon2Key(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2Key(password, salt)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(hash, argon2Key(password, salt)) == 1
}
