package gateway

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"time"
)

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// BaseResponse is returned by operations without a richer payload.
type BaseResponse struct {
	Message string `json:"message"`
}

// Parameter is one configuration entry managed by the backend.
type Parameter struct {
	ID          string    `json:"id"`
	Group       string    `json:"group"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ParameterCreationFields is the payload for creating a parameter.
type ParameterCreationFields struct {
	Group       string `json:"group"`
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// ParameterUpdateFields is the payload for updating a parameter. The key is immutable.
type ParameterUpdateFields struct {
	Group       string `json:"group"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// Login signs in and stores the returned token.
func (g *Gateway) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	env, err := PostAs[Envelope[LoginResponse]](ctx, g, "/auth/login", req)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("auth.login: %w", err)
	}
	if env.Success.Token == "" {
		return env.Success, fmt.Errorf("auth.login: no token in response")
	}
	if err := g.SetCredential(env.Success.Token); err != nil {
		return env.Success, err
	}
	return env.Success, nil
}

// Logout signs out locally by dropping the stored token.
func (g *Gateway) Logout() error {
	return g.ClearCredential()
}

// ListParameters returns all parameters, or only those of group when non-empty.
func (g *Gateway) ListParameters(ctx context.Context, group string) ([]Parameter, error) {
	var params url.Values
	if group != "" {
		params = url.Values{"group": {group}}
	}
	env, err := GetAs[Envelope[[]Parameter]](ctx, g, "/parameters", params)
	if err != nil {
		return nil, fmt.Errorf("parameters.list: %w", err)
	}
	return env.Success, nil
}

// GetParameter returns a single parameter.
func (g *Gateway) GetParameter(ctx context.Context, id string) (Parameter, error) {
	env, err := GetAs[Envelope[Parameter]](ctx, g, parameterPath(id), nil)
	if err != nil {
		return Parameter{}, fmt.Errorf("parameters.get: %w", err)
	}
	return env.Success, nil
}

// CreateParameter creates a parameter and returns it as stored.
func (g *Gateway) CreateParameter(ctx context.Context, fields ParameterCreationFields) (Parameter, error) {
	env, err := PostAs[Envelope[Parameter]](ctx, g, "/parameters", fields)
	if err != nil {
		return Parameter{}, fmt.Errorf("parameters.create: %w", err)
	}
	return env.Success, nil
}

// UpdateParameter replaces the mutable fields of a parameter.
func (g *Gateway) UpdateParameter(ctx context.Context, id string, fields ParameterUpdateFields) (Parameter, error) {
	env, err := PutAs[Envelope[Parameter]](ctx, g, parameterPath(id), fields)
	if err != nil {
		return Parameter{}, fmt.Errorf("parameters.update: %w", err)
	}
	return env.Success, nil
}

// DeleteParameter removes a parameter.
func (g *Gateway) DeleteParameter(ctx context.Context, id string) (BaseResponse, error) {
	env, err := DeleteAs[Envelope[BaseResponse]](ctx, g, parameterPath(id))
	if err != nil {
		return BaseResponse{}, fmt.Errorf("parameters.delete: %w", err)
	}
	return env.Success, nil
}

// Groups returns the distinct, sorted groups of params.
func Groups(params []Parameter) []string {
	groups := make([]string, 0, len(params))
	for _, p := range params {
		if p.Group != "" {
			groups = append(groups, p.Group)
		}
	}
	slices.Sort(groups)
	return slices.Compact(groups)
}

func parameterPath(id string) string {
	return "/parameters/" + url.PathEscape(id)
}
