package apitest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const userIDKey contextKey = "userID"

// tokenTTL is how long issued tokens stay valid.
const tokenTTL = 24 * time.Hour

type claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// IssueToken signs a token for userID that expires after ttl. A negative ttl
// yields a token that is already expired.
func (s *Server) IssueToken(userID string, ttl time.Duration) string {
	now := time.Now()
	c := &claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("apitest: signing token: %v", err))
	}
	return signed
}

// userFromRequest validates the bearer token and returns the user id it names.
func (s *Server) userFromRequest(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "No token, authorization denied"
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", "Authorization header format must be Bearer {token}"
	}

	c := &claims{}
	token, err := jwt.ParseWithClaims(parts[1], c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", "Token is not valid"
	}

	s.mu.Lock()
	_, exists := s.users[c.UserID]
	s.mu.Unlock()
	if !exists {
		return "", "User not found"
	}
	return c.UserID, ""
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, problem := s.userFromRequest(r)
		if problem != "" {
			writeError(w, http.StatusUnauthorized, problem)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}

// optionalAuth attaches the user when a valid token is present and otherwise
// serves the request anonymously.
func (s *Server) optionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID, problem := s.userFromRequest(r); problem == "" {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
		}
		next(w, r)
	}
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func (s *Server) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
			writeError(w, http.StatusBadRequest, "Please provide name, email and a password of at least 6 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Server error during registration")
			return
		}

		s.mu.Lock()
		if _, taken := s.byEmail[strings.ToLower(req.Email)]; taken {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "User already exists with this email")
			return
		}
		id := s.addUserLocked(req.Name, strings.ToLower(req.Email), req.Bio, hash)
		u := *s.users[id]
		s.mu.Unlock()

		writeJSON(w, http.StatusCreated, envelope{
			Success: true,
			Message: "User registered successfully",
			Data:    map[string]any{"user": u, "token": s.IssueToken(id, tokenTTL)},
		})
	}
}

func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}

		s.mu.Lock()
		var u user
		id, ok := s.byEmail[strings.ToLower(req.Email)]
		if ok {
			u = *s.users[id]
		}
		s.mu.Unlock()

		if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeOK(w, "Login successful", map[string]any{"user": u, "token": s.IssueToken(id, tokenTTL)})
	}
}
