package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/teacher"
)

const jwtContextKey = "accountToken"

// Claims represents the authorization claims transmitted via a JWT.
// Teacher tokens carry their own ID as Subject; student tokens carry the
// student ID as Subject plus the owning teacher's ID for linkage.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	TeacherID    string `json:"teacher_id,omitempty"`
	IsTeacher    bool   `json:"is_teacher,omitempty"`
	IsStudent    bool   `json:"is_student,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

func GetTeacherClaims(conf *core.Config, t teacher.Teacher, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   t.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         t.Name,
		Email:        t.Email,
		IsTeacher:    true,
	}
}

func GetStudentClaims(conf *core.Config, s teacher.Student) *Claims {
	now := time.Now()

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   s.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		TeacherID: s.TeacherID,
		IsStudent: true,
	}
}

func authenticate(ctx echo.Context, email, pwd string, svc *teacher.Service, conf *core.Config) (*Claims, error) {
	t, err := svc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		if err == teacher.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding teacher by email")
	}
	if err = t.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	t, err = svc.SetLastLogin(ctx.Request().Context(), t)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetTeacherClaims(conf, t), nil
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(conf.SecretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func refreshToken(ctx echo.Context, conf *core.Config, svc *teacher.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	if !claims.IsTeacher {
		return "", errHTTPForbidden
	}

	t, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return "", errors.Wrap(err, "finding teacher by ID")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetTeacherClaims(conf, t, claims.OrigIssuedAt)
	token, err := GenerateToken(conf, newClaims)
	return token, err
}
