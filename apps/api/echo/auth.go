package echoapi

import (
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

const (
	contextTokenKey = "userToken"
	tokenAudience   = "Academia"
)

// newJWTConfig verifies the HS256 tokens issued by the auth service.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username   string   `json:"username,omitempty"`
	Email      string   `json:"email,omitempty"`
	IsStudent  bool     `json:"is_student,omitempty"`  // -> STUDENT PORTAL
	IsGuardian bool     `json:"is_guardian,omitempty"` // -> PARENT PORTAL
	IsTeacher  bool     `json:"is_teacher,omitempty"`  // -> TEACHER PORTAL
	IsAdmin    bool     `json:"is_admin,omitempty"`    // -> ADMIN PORTAL
	Roles      []string `json:"roles,omitempty"`
	StudentIDs []string `json:"student_ids,omitempty"` // children of a guardian
}

func (c Claims) person() core.Person {
	return core.Person{ID: c.Subject, Username: c.Username, Email: c.Email}
}

// canAccessStudent reports whether the bearer may read the records of student id.
func (c Claims) canAccessStudent(id string, allowTeachers bool) bool {
	switch {
	case c.IsAdmin:
		return true
	case allowTeachers && c.IsTeacher:
		return true
	case c.IsStudent && c.Subject == id:
		return true
	case c.IsGuardian:
		for _, sid := range c.StudentIDs {
			if sid == id {
				return true
			}
		}
	}
	return false
}

// NewClaims returns claims valid for ttl; the auth service builds the same ones.
func NewClaims(conf *core.Config, subject string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   subject,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	jwtConf := newJWTConfig(conf)
	method := jwt.GetSigningMethod(jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		owned := append([]string(nil), claims.Roles...)
		sort.Strings(owned)
		for _, role := range roles {
			if i := sort.SearchStrings(owned, role); i < len(owned) {
				if match := owned[i]; role == match {
					return true
				}
			}
		}
	}
	return false
}
