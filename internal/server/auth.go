package server

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"accessdesk/internal/cache"
	"accessdesk/internal/middleware"
	"accessdesk/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenClaims are carried by every access token. The subject is the user ID.
type tokenClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// generateToken signs a token for user with a fresh JWT ID.
func (s *Server) generateToken(user *models.User) (string, error) {
	if s.config.JWTSecret == "" {
		return "", errors.New("JWT secret not configured")
	}

	now := time.Now()
	claims := tokenClaims{
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    s.config.JWTIssuer,
			Audience:  jwt.ClaimStrings{s.config.JWTAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.JWTTTL())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *Server) parseToken(raw string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.JWTIssuer),
		jwt.WithAudience(s.config.JWTAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// resolveActor loads the caller's summary, cached per user. Roles are fixed
// at creation, so the cached role cannot go stale.
func (s *Server) resolveActor(ctx context.Context, userID uint) (models.UserSummary, error) {
	var summary models.UserSummary
	err := cache.Aside(ctx, cache.UserKey(userID), &summary, cache.UserTTL, func() error {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		summary = user.Summary()
		return nil
	})
	return summary, err
}

// AuthRequired returns the authentication middleware. It verifies the bearer
// token, rejects revoked token IDs and stores the actor in locals and context.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || raw == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.parseToken(raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		userID, err := strconv.ParseUint(claims.Subject, 10, 32)
		if err != nil || userID == 0 {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid user ID in token"))
		}
		if claims.ID == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has no ID"))
		}

		revoked, err := cache.IsTokenRevoked(c.UserContext(), claims.ID)
		if err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "revocation check failed", slog.String("error", err.Error()))
		}
		if revoked {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		summary, err := s.resolveActor(c.UserContext(), uint(userID))
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("User no longer exists"))
			}
			return respondError(c, err)
		}

		c.Locals(middleware.LocalUserID, summary.ID)
		c.Locals(middleware.LocalUserRole, string(summary.Role))
		c.Locals(middleware.LocalTokenJTI, claims.ID)
		c.Locals(middleware.LocalTokenExpiry, claims.ExpiresAt.Time)

		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, summary.ID)
		ctx = context.WithValue(ctx, middleware.UserRoleKey, string(summary.Role))
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// revokeCurrent revokes the caller's token until its natural expiry. It fails
// with Unavailable when the revocation list cannot be written.
func (s *Server) revokeCurrent(c *fiber.Ctx) error {
	jti, _ := c.Locals(middleware.LocalTokenJTI).(string)
	exp, _ := c.Locals(middleware.LocalTokenExpiry).(time.Time)
	if err := cache.RevokeToken(c.UserContext(), jti, time.Until(exp)); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "token revocation failed", slog.String("error", err.Error()))
		return models.NewUnavailableError("token revocation is unavailable, try again later", err)
	}
	return nil
}

// Signup handles POST /api/auth/signup. New accounts are always Employees.
func (s *Server) Signup(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Signup(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.Status(fiber.StatusCreated).JSON(tokenResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(tokenResponse{Token: token, User: user})
}

// Refresh handles POST /api/auth/refresh. The replacement is only returned
// once the presented token is revoked.
func (s *Server) Refresh(c *fiber.Ctx) error {
	user, err := s.userService.Profile(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	token, err := s.generateToken(user)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	if err := s.revokeCurrent(c); err != nil {
		return respondError(c, err)
	}
	return c.JSON(tokenResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.revokeCurrent(c); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Profile handles GET /api/auth/profile
func (s *Server) Profile(c *fiber.Ctx) error {
	user, err := s.userService.Profile(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// ChangePassword handles POST /api/auth/change-password
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return nil
	}
	if err := s.userService.ChangePassword(c.UserContext(), actor(c), req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}
