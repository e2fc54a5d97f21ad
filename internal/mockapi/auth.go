package mockapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/ashureev/soil-advisor/internal/identity"
	"github.com/google/uuid"
)

type userJSON struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	User        userJSON `json:"user"`
}

func hashPassword(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(sum[:])
}

func (s *Server) lookupToken(token string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	return id, ok
}

// issueToken must be called with s.mu held.
func (s *Server) issueToken(u *user) tokenResponse {
	token := uuid.NewString()
	s.tokens[token] = u.ID
	return tokenResponse{
		AccessToken: token,
		User:        userJSON{ID: u.ID, Name: u.Name, Email: u.Email},
	}
}

// RevokeAll invalidates every issued token, as a server-side key rotation would.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]int64)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !decodeBody(w, r, &req) || req.Email == "" || req.Password == "" || req.Name == "" {
		Error(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		Error(w, http.StatusBadRequest, "Email already registered")
		return
	}
	s.nextUser++
	u := &user{
		ID:           s.nextUser,
		Name:         req.Name,
		Email:        email,
		PasswordHash: hashPassword(req.Password),
		CreatedAt:    s.now(),
	}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID

	s.logger.Info("user registered", "user_id", u.ID)
	JSON(w, http.StatusCreated, s.issueToken(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) || req.Email == "" || req.Password == "" {
		Error(w, http.StatusBadRequest, "Email and password required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(req.Email))]
	if !ok {
		Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	u := s.users[id]
	if subtle.ConstantTimeCompare([]byte(u.PasswordHash), []byte(hashPassword(req.Password))) != 1 {
		Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	JSON(w, http.StatusOK, s.issueToken(u))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := identity.TokenFromContext(r.Context())
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	JSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.UserIDFromContext(r.Context())
	s.mu.Lock()
	u, ok := s.users[id]
	s.mu.Unlock()
	if !ok {
		Error(w, http.StatusNotFound, "User not found")
		return
	}
	JSON(w, http.StatusOK, map[string]userJSON{
		"user": {ID: u.ID, Name: u.Name, Email: u.Email},
	})
}
