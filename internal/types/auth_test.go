//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRequest_Validation(t *testing.T) {
	validate := validator.New()

	valid := RegisterRequest{
		FullName:        "Jane Doe",
		Email:           "jane@example.com",
		Password:        "Secret123",
		ConfirmPassword: "Secret123",
	}

	tests := []struct {
		name    string
		mutate  func(r *RegisterRequest)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid request",
			mutate:  func(_ *RegisterRequest) {},
			wantErr: false,
		},
		{
			name:    "name too short",
			mutate:  func(r *RegisterRequest) { r.FullName = "J" },
			wantErr: true,
			errMsg:  "min",
		},
		{
			name:    "invalid email",
			mutate:  func(r *RegisterRequest) { r.Email = "not-an-email" },
			wantErr: true,
			errMsg:  "email",
		},
		{
			name: "password without uppercase",
			mutate: func(r *RegisterRequest) {
				r.Password = "secret123"
				r.ConfirmPassword = "secret123"
			},
			wantErr: true,
			errMsg:  "containsany",
		},
		{
			name: "password without digit",
			mutate: func(r *RegisterRequest) {
				r.Password = "SecretPass"
				r.ConfirmPassword = "SecretPass"
			},
			wantErr: true,
			errMsg:  "containsany",
		},
		{
			name:    "confirmation mismatch",
			mutate:  func(r *RegisterRequest) { r.ConfirmPassword = "Secret124" },
			wantErr: true,
			errMsg:  "eqfield",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := validate.Struct(req)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoginRequest_Validation(t *testing.T) {
	validate := validator.New()
	assert.NoError(t, validate.Struct(LoginRequest{Email: "john@example.com", Password: "x"}))
	assert.Error(t, validate.Struct(LoginRequest{Email: "john@example.com"}))
}

func TestLoginResponse_Tokens(t *testing.T) {
	t.Run("flat body", func(t *testing.T) {
		var resp LoginResponse
		require.NoError(t, json.Unmarshal([]byte(`{"access_token":"a1","refresh_token":"r1"}`), &resp))
		assert.Equal(t, "a1", resp.Tokens().AccessToken)
		assert.Equal(t, "r1", resp.Tokens().RefreshToken)
	})

	t.Run("data envelope", func(t *testing.T) {
		var resp LoginResponse
		require.NoError(t, json.Unmarshal([]byte(`{"data":{"access_token":"a2","refresh_token":"r2"}}`), &resp))
		assert.Equal(t, "a2", resp.Tokens().AccessToken)
		assert.Equal(t, "r2", resp.Tokens().RefreshToken)
	})
}
