// Package auth implements the login and registration flows against the API.
// Both are side-effect-free with respect to the session manager: Login hands
// back the decoded identity and tokens, and the caller decides whether to
// establish a session with them.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"blogclient/internal/api"
	"blogclient/internal/session"
	"blogclient/internal/tokenstore"
)

var (
	ErrRegistration = errors.New("registration failed")
	ErrLogin        = errors.New("login failed")
)

var validate = validator.New()

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Result is a successful login: the identity decoded from the access token
// plus the token pair to establish a session with.
type Result struct {
	User   tokenstore.StoredUser
	Tokens tokenstore.TokenPair
}

type Service struct {
	api *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{api: client}
}

// Register creates an account and returns the server's confirmation message.
// The API uses the email as the username. Registration never establishes a
// session; the caller must log in afterwards.
func (s *Service) Register(ctx context.Context, email, password string) (string, error) {
	if err := validate.Struct(credentials{Email: email, Password: password}); err != nil {
		return "", fmt.Errorf("%w: a valid email and password are required", ErrRegistration)
	}

	var resp struct {
		Message string `json:"message"`
	}
	body := map[string]string{
		"username": email,
		"email":    email,
		"password": password,
	}
	if err := s.api.Post(ctx, "/auth/register/", body, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRegistration, err)
	}
	return resp.Message, nil
}

// Login exchanges credentials for a token pair and derives the user identity
// by decoding the returned access token. The token is the sole source of
// truth for the identity; nothing is fabricated client-side.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	if err := validate.Struct(credentials{Email: email, Password: password}); err != nil {
		return Result{}, fmt.Errorf("%w: a valid email and password are required", ErrLogin)
	}

	var resp struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	body := map[string]string{
		"username": email,
		"password": password,
	}
	if err := s.api.Post(ctx, "/token/", body, &resp); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrLogin, err)
	}

	claims, err := session.DecodeAccessToken(resp.Access)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrLogin, err)
	}

	return Result{
		User: tokenstore.StoredUser{
			ID:    claims.UserID,
			Email: claims.Identity(),
		},
		Tokens: tokenstore.TokenPair{
			AccessToken:  resp.Access,
			RefreshToken: resp.Refresh,
		},
	}, nil
}
