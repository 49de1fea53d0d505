package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService("test-secret")
	restaurantID := uuid.New()

	token, err := svc.GenerateAccessToken(restaurantID, RoleOwner)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, restaurantID, claims.RestaurantID)
	assert.Equal(t, RoleOwner, claims.Role)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := NewJWTService("test-secret")
	token, err := svc.GenerateAccessToken(uuid.New(), RoleOwner)
	assert.NoError(t, err)

	other := NewJWTService("other-secret")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewJWTService("test-secret")
	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
