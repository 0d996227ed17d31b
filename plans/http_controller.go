package plans

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/planora/planora/auth"
	"github.com/planora/planora/middleware/tokenauth"
)

// RegisterPlanRoutes mounts the plan endpoints. Every route requires a
// verified access token; the claims middleware must already be mounted on
// the passed router group.
func RegisterPlanRoutes(app fiber.Router, opts ...PlanControllerOption) *PlanController {
	controller := NewPlanController(opts...)

	group := app.Group("/plans")
	group.Get("/", controller.List).Name("plans.list")
	group.Post("/", controller.CreatePost).Name("plans.create")
	group.Post("/generate", controller.GeneratePost).Name("plans.generate")
	group.Get("/:id", controller.Get).Name("plans.get")

	return controller
}

type PlanController struct {
	Logger     auth.Logger
	Repo       Plans
	ContextKey string
}

type PlanControllerOption func(*PlanController) *PlanController

func NewPlanController(opts ...PlanControllerOption) *PlanController {
	c := &PlanController{
		ContextKey: "auth_claims",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing Plans repository in plan controller...")
	}

	return c
}

func WithPlansRepo(repo Plans) PlanControllerOption {
	return func(c *PlanController) *PlanController {
		c.Repo = repo
		return c
	}
}

func WithPlansLogger(logger auth.Logger) PlanControllerOption {
	return func(c *PlanController) *PlanController {
		c.Logger = logger
		return c
	}
}

func WithPlansContextKey(key string) PlanControllerOption {
	return func(c *PlanController) *PlanController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func (p *PlanController) List(ctx *fiber.Ctx) error {
	userID, err := p.userID(ctx)
	if err != nil {
		return unauthorized(ctx)
	}

	records, err := p.Repo.ListByUser(ctx.Context(), userID)
	if err != nil {
		return serverError(ctx, p.Logger, err)
	}

	return ctx.JSON(fiber.Map{
		"plans": records,
	})
}

func (p *PlanController) Get(ctx *fiber.Ctx) error {
	userID, err := p.userID(ctx)
	if err != nil {
		return unauthorized(ctx)
	}

	planID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return notFound(ctx)
	}

	record, err := p.Repo.GetOwned(ctx.Context(), userID, planID)
	if err != nil {
		return notFound(ctx)
	}

	return ctx.JSON(fiber.Map{
		"plan": record,
	})
}

// CreateRequest payload for a hand-authored plan.
type CreateRequest struct {
	Topic string `form:"topic" json:"topic"`
	Title string `form:"title" json:"title"`
	Steps []Step `json:"steps"`
}

// Validate will run validation rules
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Topic, validation.Required, validation.Length(2, 200)),
		validation.Field(&r.Title, validation.Required, validation.Length(2, 200)),
		validation.Field(&r.Steps, validation.Required),
	)
}

func (p *PlanController) CreatePost(ctx *fiber.Ctx) error {
	userID, err := p.userID(ctx)
	if err != nil {
		return unauthorized(ctx)
	}

	payload := new(CreateRequest)
	if err := ctx.BodyParser(payload); err != nil {
		return validationError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return validationError(ctx, err)
	}

	plan := &Plan{
		ID:     uuid.New(),
		UserID: userID,
		Topic:  payload.Topic,
		Title:  payload.Title,
		Steps:  payload.Steps,
	}

	record, err := p.Repo.Create(ctx.Context(), plan)
	if err != nil {
		return serverError(ctx, p.Logger, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"plan": record,
	})
}

// GenerateRequest payload
type GenerateRequest struct {
	Topic string `form:"topic" json:"topic"`
}

// Validate will run validation rules
func (r GenerateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Topic, validation.Required, validation.Length(2, 200)),
	)
}

func (p *PlanController) GeneratePost(ctx *fiber.Ctx) error {
	userID, err := p.userID(ctx)
	if err != nil {
		return unauthorized(ctx)
	}

	payload := new(GenerateRequest)
	if err := ctx.BodyParser(payload); err != nil {
		return validationError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return validationError(ctx, err)
	}

	plan := Generate(payload.Topic)
	plan.ID = uuid.New()
	plan.UserID = userID

	record, err := p.Repo.Create(ctx.Context(), &plan)
	if err != nil {
		return serverError(ctx, p.Logger, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"plan": record,
	})
}

func (p *PlanController) userID(ctx *fiber.Ctx) (uuid.UUID, error) {
	claims, ok := ctx.Locals(p.ContextKey).(tokenauth.AuthClaims)
	if !ok || claims == nil {
		return uuid.Nil, auth.ErrTokenInvalid
	}

	return uuid.Parse(claims.UserID())
}

func unauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "invalid or expired token",
		"kind":  auth.KindTokenInvalid,
	})
}

func notFound(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "plan not found",
	})
}

func validationError(ctx *fiber.Ctx, err error) error {
	return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  auth.KindValidationError,
	})
}

func serverError(ctx *fiber.Ctx, logger auth.Logger, err error) error {
	if logger != nil {
		logger.Error("plans endpoint error: %v", err)
	}
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
		"kind":  auth.KindServerError,
	})
}
