package services

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/taskboard/internal/domain/entities"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// rawToken builds a token around an arbitrary payload segment.
func rawToken(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return header + "." + body + ".c2lnbmF0dXJl"
}

func TestClaimsDecoder_Decode(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)

	tests := []struct {
		name        string
		token       string
		strict      bool
		want        Identity
		wantMalf    bool
		wantMissing string
	}{
		{
			name:  "manager round trip",
			token: signedToken(t, jwt.MapClaims{"role": "manager", "user_id": 7}),
			want:  Identity{Role: entities.RoleManager, UserID: 7},
		},
		{
			name:  "numeric string user id",
			token: signedToken(t, jwt.MapClaims{"role": "executor", "user_id": "12"}),
			want:  Identity{Role: entities.RoleExecutor, UserID: 12},
		},
		{
			name:  "integral float user id",
			token: rawToken(`{"role":"admin","user_id":3.0}`),
			want:  Identity{Role: entities.RoleAdmin, UserID: 3},
		},
		{
			name:  "legacy role label",
			token: signedToken(t, jwt.MapClaims{"role": "Менеджер", "user_id": 5}),
			want:  Identity{Role: entities.RoleManager, UserID: 5},
		},
		{
			name:  "subject and expiry",
			token: signedToken(t, jwt.MapClaims{"role": "admin", "user_id": 1, "sub": "root", "exp": expiry.Unix()}),
			want:  Identity{Role: entities.RoleAdmin, UserID: 1, Username: "root", ExpiresAt: &expiry},
		},
		{
			name:        "non numeric user id counts as absent",
			token:       signedToken(t, jwt.MapClaims{"role": "manager", "user_id": "seven"}),
			wantMissing: "user_id",
		},
		{
			name:        "fractional user id counts as absent",
			token:       rawToken(`{"role":"manager","user_id":7.5}`),
			wantMissing: "user_id",
		},
		{
			name:        "user id beyond int64 counts as absent",
			token:       rawToken(`{"role":"manager","user_id":1e20}`),
			wantMissing: "user_id",
		},
		{
			name:        "negative user id beyond int64 counts as absent",
			token:       rawToken(`{"role":"manager","user_id":-1e19}`),
			wantMissing: "user_id",
		},
		{
			name:        "integer literal beyond int64 counts as absent",
			token:       rawToken(`{"role":"manager","user_id":99999999999999999999}`),
			wantMissing: "user_id",
		},
		{
			name:        "missing user id",
			token:       signedToken(t, jwt.MapClaims{"role": "manager"}),
			wantMissing: "user_id",
		},
		{
			name:        "missing role",
			token:       signedToken(t, jwt.MapClaims{"user_id": 7}),
			wantMissing: "role",
		},
		{
			name:        "blank role",
			token:       signedToken(t, jwt.MapClaims{"role": " ", "user_id": 7}),
			wantMissing: "role",
		},
		{
			name:     "unknown role",
			token:    signedToken(t, jwt.MapClaims{"role": "owner", "user_id": 7}),
			wantMalf: true,
		},
		{
			name:     "role of wrong type",
			token:    signedToken(t, jwt.MapClaims{"role": 2, "user_id": 7}),
			wantMalf: true,
		},
		{
			name:     "strict rejects string user id",
			token:    signedToken(t, jwt.MapClaims{"role": "manager", "user_id": "7"}),
			strict:   true,
			wantMalf: true,
		},
		{name: "empty token", token: "", wantMalf: true},
		{name: "not a jwt", token: "not-a-token", wantMalf: true},
		{name: "payload is not json", token: rawToken(`role=manager`), wantMalf: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewClaimsDecoder(tt.strict).Decode(tt.token)

			switch {
			case tt.wantMalf:
				require.Error(t, err)
				var malformed *entities.MalformedTokenError
				assert.ErrorAs(t, err, &malformed)
				assert.True(t, IsTokenError(err))
			case tt.wantMissing != "":
				require.Error(t, err)
				var missing *entities.MissingClaimError
				require.ErrorAs(t, err, &missing)
				assert.Equal(t, tt.wantMissing, missing.Claim)
				assert.True(t, IsTokenError(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want.Role, got.Role)
				assert.Equal(t, tt.want.UserID, got.UserID)
				assert.Equal(t, tt.want.Username, got.Username)
				if tt.want.ExpiresAt == nil {
					assert.Nil(t, got.ExpiresAt)
				} else {
					require.NotNil(t, got.ExpiresAt)
					assert.True(t, tt.want.ExpiresAt.Equal(*got.ExpiresAt))
				}
			}
		})
	}
}

func TestClaimsDecoder_IgnoresSignatureAndExpiry(t *testing.T) {
	// an expired token signed with an unknown key still yields its claims
	payload, err := json.Marshal(map[string]any{
		"role":    "executor",
		"user_id": 9,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	require.NoError(t, err)

	id, err := NewClaimsDecoder(false).Decode(rawToken(string(payload)))
	require.NoError(t, err)
	assert.Equal(t, entities.RoleExecutor, id.Role)
	assert.Equal(t, 9, id.UserID)
	require.NotNil(t, id.ExpiresAt)
	assert.True(t, id.ExpiresAt.Before(time.Now()))
}

func TestIsAuthorized(t *testing.T) {
	assert.True(t, IsAuthorized(entities.RoleAdmin, entities.RoleAdmin, entities.RoleManager))
	assert.True(t, IsAuthorized(entities.RoleManager, entities.RoleAdmin, entities.RoleManager))
	assert.False(t, IsAuthorized(entities.RoleExecutor, entities.RoleAdmin, entities.RoleManager))
	assert.False(t, IsAuthorized(entities.RoleAdmin))
	assert.False(t, IsAuthorized("", entities.RoleExecutor))
}

func TestIsTokenError(t *testing.T) {
	assert.False(t, IsTokenError(nil))
	assert.False(t, IsTokenError(entities.ErrForbidden))
	assert.True(t, IsTokenError(&entities.MissingClaimError{Claim: "role"}))
}
