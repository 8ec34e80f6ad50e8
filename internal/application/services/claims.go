package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskmaster/taskboard/internal/domain/entities"
)

const (
	claimRole   = "role"
	claimUserID = "user_id"
	claimExpiry = "exp"
)

// Identity is what a bearer token says about its holder.
type Identity struct {
	Role      entities.Role
	UserID    int
	Username  string
	ExpiresAt *time.Time
}

// ClaimsDecoder reads identity claims out of a bearer token without checking
// its signature. Verification belongs to the API; the client only needs the
// claims to decide what to offer.
type ClaimsDecoder struct {
	parser *jwt.Parser
	// strictUserID rejects the numeric-string form of user_id.
	strictUserID bool
}

// NewClaimsDecoder creates a decoder. With strictUserID set, user_id must be a
// JSON number.
func NewClaimsDecoder(strictUserID bool) *ClaimsDecoder {
	return &ClaimsDecoder{
		parser:       jwt.NewParser(jwt.WithJSONNumber()),
		strictUserID: strictUserID,
	}
}

// Decode parses token into an Identity. It fails with a
// *entities.MalformedTokenError when the payload is not a readable claim set
// and with a *entities.MissingClaimError when role or user_id is absent.
func (d *ClaimsDecoder) Decode(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, &entities.MalformedTokenError{Reason: "empty token"}
	}

	claims := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(token, claims); err != nil {
		return Identity{}, &entities.MalformedTokenError{Reason: "unreadable payload", Err: err}
	}

	role, err := roleClaim(claims)
	if err != nil {
		return Identity{}, err
	}

	userID, err := d.userIDClaim(claims)
	if err != nil {
		return Identity{}, err
	}

	id := Identity{Role: role, UserID: userID}
	if sub, ok := claims["sub"].(string); ok {
		id.Username = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		id.ExpiresAt = &t
	}

	return id, nil
}

func roleClaim(claims jwt.MapClaims) (entities.Role, error) {
	raw, ok := claims[claimRole]
	if !ok || raw == nil {
		return "", &entities.MissingClaimError{Claim: claimRole}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &entities.MalformedTokenError{Reason: fmt.Sprintf("role claim has type %T", raw)}
	}
	if strings.TrimSpace(s) == "" {
		return "", &entities.MissingClaimError{Claim: claimRole}
	}
	role, err := entities.ParseRole(s)
	if err != nil {
		return "", &entities.MalformedTokenError{Reason: "role claim", Err: err}
	}
	return role, nil
}

// userIDClaim accepts an integral JSON number or, unless strict, a numeric
// string. A value that does not coerce to an integer counts as absent.
func (d *ClaimsDecoder) userIDClaim(claims jwt.MapClaims) (int, error) {
	missing := &entities.MissingClaimError{Claim: claimUserID}

	switch v := claims[claimUserID].(type) {
	case json.Number:
		if id, ok := integral(v); ok {
			return id, nil
		}
		return 0, missing
	case string:
		if d.strictUserID {
			return 0, &entities.MalformedTokenError{Reason: "user_id must be a number"}
		}
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 0)
		if err != nil {
			return 0, missing
		}
		return int(id), nil
	default:
		return 0, missing
	}
}

func integral(n json.Number) (int, bool) {
	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		// int64(f) is only defined for f in [-2^63, 2^63)
		if ferr != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		i = int64(f)
	}
	if int64(int(i)) != i {
		return 0, false
	}
	return int(i), true
}

// IsAuthorized reports whether role is one of allowed.
func IsAuthorized(role entities.Role, allowed ...entities.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// IsTokenError reports whether err came from decoding a token.
func IsTokenError(err error) bool {
	return errors.Is(err, entities.ErrMalformedToken) || errors.Is(err, entities.ErrMissingClaim)
}
