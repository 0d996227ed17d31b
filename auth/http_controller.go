package auth

import (
	"fmt"
	"math"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// RegisterAuthRoutes mounts the auth endpoints on the given router.
// Registration and login sit behind the rate limiter; refresh does not,
// routine multi-tab refreshes must never eat into the credential budget.
// /auth/me and /auth/logout require a verified access token.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	group := app.Group(controller.Routes.Base)

	limit := controller.Limiter.Middleware()
	group.Post(controller.Routes.Register, limit, controller.RegisterPost).Name("auth.register")
	group.Post(controller.Routes.Login, limit, controller.LoginPost).Name("auth.login")

	group.Post(controller.Routes.Refresh, controller.RefreshPost).Name("auth.refresh")
	group.Post(controller.Routes.Logout, controller.Protected, controller.LogoutPost).Name("auth.logout")
	group.Get(controller.Routes.Me, controller.Protected, controller.MeGet).Name("auth.me")

	return controller
}

type AuthControllerRoutes struct {
	Base     string
	Login    string
	Logout   string
	Register string
	Refresh  string
	Me       string
}

type AuthController struct {
	Debug      bool
	Logger     Logger
	Routes     *AuthControllerRoutes
	Auther     Authenticator
	Validator  TokenValidator
	Limiter    *RateLimiter
	Protected  fiber.Handler
	ContextKey string
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Base:     "/auth",
			Login:    "/login",
			Logout:   "/logout",
			Register: "/register",
			Refresh:  "/refresh",
			Me:       "/me",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Validator == nil {
		panic("Missing TokenValidator in auth controller...")
	}

	if c.Limiter == nil {
		c.Limiter = NewRateLimiter(5, 0)
	}

	if c.ContextKey == "" {
		c.ContextKey = "auth_claims"
	}

	if c.Protected == nil {
		c.Protected = c.requireAccessToken
	}

	return c
}

func WithControllerAuther(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerValidator(validator TokenValidator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Validator = validator
		return c
	}
}

func WithControllerLimiter(limiter *RateLimiter) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Limiter = limiter
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// WithControllerContextKey sets the locals key claims are read from,
// matching whatever the token middleware writes.
func WithControllerContextKey(key string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

// WithControllerProtected overrides the middleware guarding /me and
// /logout, normally the shared token middleware configured at app level.
func WithControllerProtected(handler fiber.Handler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Protected = handler
		return c
	}
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return a.respondValidationError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidationError(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	identity, pair, err := a.Auther.Login(ctx.Context(), payload.Identifier, payload.Password, sessionMetadata(ctx))
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(authResponse(identity, pair))
}

// RegisterRequest payload
type RegisterRequest struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Username, validation.Length(3, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
	)
}

func (a *AuthController) RegisterPost(ctx *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload: %v", err)
		return a.respondValidationError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidationError(ctx, err)
	}

	msg := RegisterUserMessage{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
	}

	identity, pair, err := a.Auther.Register(ctx.Context(), msg, sessionMetadata(ctx))
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(authResponse(identity, pair))
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *AuthController) RefreshPost(ctx *fiber.Ctx) error {
	payload := new(RefreshRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("refresh parse payload: %v", err)
		return a.respondValidationError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidationError(ctx, err)
	}

	access, err := a.Auther.Refresh(ctx.Context(), payload.RefreshToken)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"access_token": access,
	})
}

// LogoutRequest payload. The refresh token is optional: without it every
// session for the authenticated user is invalidated.
type LogoutRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

func (a *AuthController) LogoutPost(ctx *fiber.Ctx) error {
	claims, err := a.contextClaims(ctx)
	if err != nil {
		return a.respondError(ctx, err)
	}

	payload := new(LogoutRequest)
	if err := ctx.BodyParser(payload); err != nil && len(ctx.Body()) > 0 {
		a.Logger.Debug("logout parse payload: %v", err)
	}

	if err := a.Auther.Logout(ctx.Context(), claims.UserID(), payload.RefreshToken); err != nil {
		a.Logger.Error("logout error: %v", err)
	}

	return ctx.JSON(fiber.Map{
		"success": true,
	})
}

func (a *AuthController) MeGet(ctx *fiber.Ctx) error {
	claims, err := a.contextClaims(ctx)
	if err != nil {
		return a.respondError(ctx, err)
	}

	identity, err := a.Auther.IdentityByID(ctx.Context(), claims.UserID())
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"user": identityPayload(identity),
	})
}

// requireAccessToken is the default guard for /me and /logout when no
// shared middleware is wired in.
func (a *AuthController) requireAccessToken(ctx *fiber.Ctx) error {
	raw := extractBearer(ctx.Get(fiber.HeaderAuthorization))
	if raw == "" {
		return a.respondError(ctx, ErrTokenInvalid)
	}

	claims, err := a.Validator.Validate(raw)
	if err != nil {
		return a.respondError(ctx, err)
	}

	ctx.Locals(a.ContextKey, claims)

	return ctx.Next()
}

func (a *AuthController) contextClaims(ctx *fiber.Ctx) (AuthClaims, error) {
	claims, ok := ctx.Locals(a.ContextKey).(AuthClaims)
	if !ok || claims == nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func extractBearer(header string) string {
	const scheme = "Bearer "
	if len(header) > len(scheme) && header[:len(scheme)] == scheme {
		return header[len(scheme):]
	}
	return ""
}

func sessionMetadata(ctx *fiber.Ctx) SessionMetadata {
	return SessionMetadata{
		RemoteAddr: ctx.IP(),
		UserAgent:  ctx.Get(fiber.HeaderUserAgent),
	}
}

func authResponse(identity Identity, pair TokenPair) fiber.Map {
	return fiber.Map{
		"user":          identityPayload(identity),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	}
}

func identityPayload(identity Identity) fiber.Map {
	return fiber.Map{
		"id":       identity.ID(),
		"username": identity.Username(),
		"email":    identity.Email(),
		"verified": identity.Verified(),
	}
}

// respondError maps a classified error to its HTTP status and serializes
// the kind so clients can recover the taxonomy without parsing messages.
func (a *AuthController) respondError(ctx *fiber.Ctx, err error) error {
	status := StatusForError(err)

	if status >= 500 {
		a.Logger.Error("auth endpoint error: %v", err)
	}

	body := fiber.Map{
		"error": publicMessage(err, status),
		"kind":  KindOf(err),
	}

	if status == fiber.StatusTooManyRequests {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			if retry, ok := richErr.Metadata["retry_after"].(float64); ok {
				seconds := int(math.Ceil(retry))
				ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
				body["retry_after"] = seconds
			}
		}
	}

	return ctx.Status(status).JSON(body)
}

func (a *AuthController) respondValidationError(ctx *fiber.Ctx, err error) error {
	return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  KindValidationError,
	})
}

// publicMessage keeps internal failure detail out of 5xx responses.
func publicMessage(err error, status int) string {
	if status >= 500 {
		return "internal server error"
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Message
	}

	return err.Error()
}
