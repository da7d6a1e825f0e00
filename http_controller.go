package auth

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-classroom-auth/middleware/jwtware"
)

// RegisterAuthRoutes mounts the local account routes on app.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegistrationCreate)
	app.Post(controller.Routes.Login, controller.LoginPost)
	app.Post(controller.Routes.Logout, controller.Auther.Protect(jwtware.ModeOptional, controller.LogOut))
	app.Get(controller.Routes.Profile, controller.Auther.Protect(jwtware.ModeMandatory, controller.ProfileShow))
	app.Post(controller.Routes.SelectRole, controller.Auther.Protect(jwtware.ModeMandatory, controller.SelectRole))

	return controller
}

type AuthControllerRoutes struct {
	Login      string
	Logout     string
	Register   string
	Profile    string
	SelectRole string
}

type AuthController struct {
	Logger       Logger
	Routes       *AuthControllerRoutes
	Auther       *RouteAuthenticator
	Accounts     AccountService
	ErrorHandler func(c *fiber.Ctx, err error) error
}

type AuthControllerOption func(*AuthController) *AuthController

// WithRouteAuthenticator sets the HTTP authenticator and the account
// service behind it.
func WithRouteAuthenticator(ra *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = ra
		c.Accounts = ra.auth
		c.ErrorHandler = ra.ErrorHandler
		return c
	}
}

// WithControllerLogger sets the controller logger
func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(l)
		return c
	}
}

// WithRoutes overrides the default route paths
func WithRoutes(routes AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Routes = &routes
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:      "/login",
			Logout:     "/logout",
			Register:   "/register",
			Profile:    "/profile",
			SelectRole: "/role",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.Auther.defaultErrHandler
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports whether the user asked to be remembered
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
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
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, ErrValidation.Wrap(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	token, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "Bearer",
	})
}

// LogOut is best effort: the cookie is cleared and 200 returned whatever
// state the caller's credential was in.
func (a *AuthController) LogOut(ctx *fiber.Ctx, claims AuthClaims) error {
	a.Auther.Logout(ctx, claims)
	return ctx.JSON(fiber.Map{"message": "Logged out"})
}

// RegistrationCreatePayload is the registration payload
type RegistrationCreatePayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return a.ErrorHandler(ctx, ErrValidation.Wrap(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	user, err := a.Accounts.Register(ctx.UserContext(), payload.Email, payload.Name, payload.Password)
	if err != nil {
		a.Logger.Error("register user", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if _, err := a.Auther.IssueSession(ctx, NewIdentityFromUser(user)); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(user)
}

// ProfileShow returns the caller's user record. Blocked accounts get a 403
// whose message clients match on.
func (a *AuthController) ProfileShow(ctx *fiber.Ctx, claims AuthClaims) error {
	user, err := a.Accounts.IdentityFromClaims(ctx.UserContext(), claims)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return a.ErrorHandler(ctx, ErrUnauthenticated)
		}
		return a.ErrorHandler(ctx, err)
	}

	if user.IsBlocked() {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": ErrBlockedAccount.Message,
			"code":    ErrBlockedAccount.TextCode,
		})
	}

	return ctx.JSON(user)
}

// SelectRolePayload is the role selection payload
type SelectRolePayload struct {
	Role string `form:"role" json:"role"`
}

// Validate only accepts self-selectable roles
func (r SelectRolePayload) Validate() error {
	selectable := make([]any, 0, 2)
	for _, role := range SelectableRoles() {
		selectable = append(selectable, string(role))
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.In(selectable...)),
	)
}

func (a *AuthController) SelectRole(ctx *fiber.Ctx, claims AuthClaims) error {
	payload := new(SelectRolePayload)

	if err := ctx.BodyParser(payload); err != nil {
		return a.ErrorHandler(ctx, ErrValidation.Wrap(err))
	}

	payload.Role = strings.ToLower(strings.TrimSpace(payload.Role))
	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	role, _ := ParseRole(payload.Role)
	user, token, err := a.Accounts.SelectRole(ctx.UserContext(), claims, role)
	if err != nil {
		a.Logger.Error("select role", "error", err, "role", payload.Role)
		return a.ErrorHandler(ctx, err)
	}

	a.Auther.transport.Issue(ctx, token, a.Auther.cookieDuration)

	return ctx.JSON(user)
}

// ValidateStringEquals returns a rule that requires the value to equal str
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors per field.
func FormatValidationErrorToMap(err error) map[string]any {
	out := map[string]any{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}
	if err != nil {
		out["payload"] = err.Error()
	}
	return out
}

func validationError(err error) error {
	return ErrValidation.WithMetadata(FormatValidationErrorToMap(err)).Wrap(err)
}
