package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"

	"homeapi-backend/dal"
	"homeapi-backend/models"
	"homeapi-backend/repository"
	"homeapi-backend/utils"
	"homeapi-backend/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMethodGoogle and AuthMethodApiKey name how a principal authenticated.
const (
	AuthMethodGoogle = "google"
	AuthMethodApiKey = "apikey"
)

// AuthUser is the authenticated principal attached to each request.
type AuthUser struct {
	Email   string
	Method  string
	KeyHash string // set for API-key principals
}

type contextKey struct{}

// WithAuthUser attaches the principal to a context.
func WithAuthUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// AuthUserFromContext retrieves the principal attached by the middleware.
func AuthUserFromContext(ctx context.Context) (*AuthUser, bool) {
	user, ok := ctx.Value(contextKey{}).(*AuthUser)
	return user, ok
}

// Claims are the ID-token claims this service cares about.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

var errKeyNotFound = errors.New("signing key not found")

// googleKeySet caches Google's rotating public keys. Many readers may
// consult it concurrently; one writer refreshes it. Initialization is lazy
// and happens once.
type googleKeySet struct {
	certsURL string

	mu   sync.RWMutex
	once sync.Once
	keys map[string]*rsa.PublicKey
}

func (s *googleKeySet) lookup(kid string) (*rsa.PublicKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[kid]
	return key, ok
}

// ensure performs the lazy first fetch. A failed first fetch leaves the
// cache empty; verification then falls through to the refresh path.
func (s *googleKeySet) ensure() {
	s.once.Do(func() {
		keys, err := fetchGoogleKeys(s.certsURL)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.keys = keys
		s.mu.Unlock()
	})
}

func (s *googleKeySet) refresh() error {
	keys, err := fetchGoogleKeys(s.certsURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()
	return nil
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// fetchGoogleKeys downloads the current JWK set and converts the RSA keys.
func fetchGoogleKeys(certsURL string) (map[string]*rsa.PublicKey, error) {
	resp, err := http.Get(certsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signing keys: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch signing keys: status %d", resp.StatusCode)
	}

	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to parse JWK set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := rsaKeyFromJWK(k)
		if err != nil {
			return nil, fmt.Errorf("failed to build key %s: %w", k.Kid, err)
		}
		keys[k.Kid] = pub
	}
	return keys, nil
}

func rsaKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}

// AuthMiddleware authenticates requests: a bearer token is verified first as
// a Google ID token, then as an API key. Either path also requires the user
// to be registered in the table.
type AuthMiddleware struct {
	config   *models.Config
	logger   logger.Logger
	db       *dal.DynamoDBClient
	apiKeys  *repository.ApiKeyRepository
	keyCache *googleKeySet
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(cfg *models.Config, log logger.Logger, db *dal.DynamoDBClient, apiKeys *repository.ApiKeyRepository) *AuthMiddleware {
	return &AuthMiddleware{
		config:   cfg,
		logger:   log,
		db:       db,
		apiKeys:  apiKeys,
		keyCache: &googleKeySet{certsURL: cfg.GoogleCertsURL},
	}
}

// Authenticate returns a gin.HandlerFunc enforcing bearer authentication.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.Request)
		if !ok {
			m.reject(c, "missing bearer token")
			return
		}

		user, err := m.VerifyToken(c.Request.Context(), token)
		if err != nil {
			m.logger.Debugf("Authentication failed: %v", err)
			m.reject(c, "invalid credentials")
			return
		}

		c.Request = c.Request.WithContext(WithAuthUser(c.Request.Context(), user))
		c.Next()
	}
}

// VerifyToken resolves a bearer token to a registered principal.
func (m *AuthMiddleware) VerifyToken(ctx context.Context, token string) (*AuthUser, error) {
	if claims, err := m.verifyGoogleToken(token); err == nil {
		if err := m.requireUser(ctx, claims.Email); err != nil {
			return nil, err
		}
		return &AuthUser{Email: claims.Email, Method: AuthMethodGoogle}, nil
	} else {
		m.logger.Debugf("ID token verification failed: %v", err)
	}

	user, err := m.verifyApiKey(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := m.requireUser(ctx, user.Email); err != nil {
		return nil, err
	}
	return user, nil
}

// verifyGoogleToken checks an RS256 ID token against the cached keys. A
// verification miss triggers exactly one refetch-and-retry, never a loop.
func (m *AuthMiddleware) verifyGoogleToken(token string) (*Claims, error) {
	m.keyCache.ensure()

	claims, err := m.parseIDToken(token)
	if err == nil {
		return claims, nil
	}
	if !errors.Is(err, errKeyNotFound) {
		return nil, err
	}

	if err := m.keyCache.refresh(); err != nil {
		return nil, err
	}
	return m.parseIDToken(token)
}

func (m *AuthMiddleware) parseIDToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing key id in token header")
		}
		key, ok := m.keyCache.lookup(kid)
		if !ok {
			return nil, errKeyNotFound
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(m.config.GoogleClientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	issuer, err := claims.GetIssuer()
	if err != nil || (issuer != "https://accounts.google.com" && issuer != "accounts.google.com") {
		return nil, fmt.Errorf("unexpected issuer %q", issuer)
	}
	if claims.Email == "" {
		return nil, errors.New("token carries no email")
	}
	return claims, nil
}

// verifyApiKey checks the token's format, hashes it and looks the digest up.
// A successful use is recorded off the request's critical path.
func (m *AuthMiddleware) verifyApiKey(ctx context.Context, token string) (*AuthUser, error) {
	if !utils.ValidAPIKeyFormat(token) {
		return nil, errors.New("invalid API key format")
	}

	keyHash := utils.HashAPIKey(token)
	key, err := m.apiKeys.GetByHash(ctx, keyHash)
	if err != nil {
		return nil, fmt.Errorf("invalid API key: %w", err)
	}
	if key.IsExpired() {
		return nil, errors.New("API key has expired")
	}

	m.apiKeys.MarkUsed(key)

	return &AuthUser{Email: key.UserEmail, Method: AuthMethodApiKey, KeyHash: key.KeyHash}, nil
}

// requireUser checks that the email is registered.
func (m *AuthMiddleware) requireUser(ctx context.Context, email string) error {
	if _, err := m.db.GetItem(ctx, "USER", email); err != nil {
		return fmt.Errorf("user %s not registered: %w", email, err)
	}
	return nil
}

func (m *AuthMiddleware) reject(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.APIResponse{
		Status:  "error",
		Code:    http.StatusUnauthorized,
		Message: "Unauthorized",
		Error:   &models.APIError{Type: "Unauthorized", Details: details},
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
