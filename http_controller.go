package authclient

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// SessionFlows is the slice of the SessionManager the controller drives.
type SessionFlows interface {
	Session() Session
	PasswordPolicy() *PasswordPolicy
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, username, password, confirmPassword string) (string, error)
	ChangePassword(ctx context.Context, currentPassword, newPassword, confirmPassword string) (*Redirect, error)
	Logout(ctx context.Context) *Redirect
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.ChangePassword, controller.ChangePasswordShow).
		SetName("pwd-change.get")
	app.Post(controller.Routes.ChangePassword, controller.ChangePasswordPost).
		SetName("pwd-change.post")
}

type AuthControllerRoutes struct {
	Login          string
	Logout         string
	Register       string
	ChangePassword string
}

type AuthControllerViews struct {
	Login          string
	Register       string
	ChangePassword string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Session      SessionFlows
	Config       Config
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerSession(session SessionFlows) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Session = session
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Config:       SimpleConfig{},
		Routes: &AuthControllerRoutes{
			Login:          "/login",
			Logout:         "/logout",
			Register:       "/register",
			ChangePassword: "/change-password",
		},
		Views: &AuthControllerViews{
			Login:          "login",
			Register:       "register",
			ChangePassword: "change_password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Session == nil {
		panic("Missing SessionFlows in auth controller...")
	}

	return c
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Username,
			validation.Required,
			validation.Length(1, 80),
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	if err := a.Session.Login(ctx.Context(), payload.Username, payload.Password); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": UserMessage(err),
		}).Render(a.Views.Login, router.ViewContext{
			"errors": map[string]string{"authentication": UserMessage(err)},
			"record": payload,
		})
	}

	redirect := ConsumeRejectedRoute(ctx, a.Config.GetRejectedRouteKey(), a.Config.GetDefaultRoute())

	return ctx.Redirect(redirect, fiber.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	return ExecuteRedirect(ctx, a.Session.Logout(ctx.Context()))
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegistrationCreatePayload{},
		"policy": PolicyViewContext(a.Session.PasswordPolicy()),
	})
}

// RegistrationCreatePayload is the form paylaod
type RegistrationCreatePayload struct {
	Username        string `form:"username" json:"username"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload. Password strength stays with the
// server; only presence and the confirmation match are checked here.
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 80), is.PrintableASCII),
		validation.Field(&r.Password, validation.Required),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
			"policy": PolicyViewContext(a.Session.PasswordPolicy()),
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": err.Error(),
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
			"policy":     PolicyViewContext(a.Session.PasswordPolicy()),
		})
	}

	if _, err := a.Session.Register(ctx.Context(), payload.Username, payload.Password, payload.ConfirmPassword); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": UserMessage(err),
		}).Render(a.Views.Register, router.ViewContext{
			"errors": map[string]string{"registration": UserMessage(err)},
			"record": payload,
			"policy": PolicyViewContext(a.Session.PasswordPolicy()),
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": MsgRegistered,
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *AuthController) ChangePasswordShow(ctx router.Context) error {
	return ctx.Render(a.Views.ChangePassword, router.ViewContext{
		"errors": map[string]string{},
		"record": ChangePasswordPayload{},
		"policy": PolicyViewContext(a.Session.PasswordPolicy()),
	})
}

// ChangePasswordPayload holds values for a password rotation
type ChangePasswordPayload struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.NewPassword)),
		),
	)
}

func (a *AuthController) ChangePasswordPost(ctx router.Context) error {
	payload := new(ChangePasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("change password parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ChangePassword, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
			"policy": PolicyViewContext(a.Session.PasswordPolicy()),
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("change password validate payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": err.Error(),
		}).Render(a.Views.ChangePassword, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
			"policy":     PolicyViewContext(a.Session.PasswordPolicy()),
		})
	}

	redirect, err := a.Session.ChangePassword(
		ctx.Context(),
		payload.CurrentPassword,
		payload.NewPassword,
		payload.ConfirmPassword,
	)

	// a session-ending outcome wins over the error: the banner explains it
	if redirect != nil {
		return ExecuteRedirect(ctx, redirect)
	}

	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": UserMessage(err),
		}).Render(a.Views.ChangePassword, router.ViewContext{
			"errors": map[string]string{"change_password": UserMessage(err)},
			"record": payload,
			"policy": PolicyViewContext(a.Session.PasswordPolicy()),
		})
	}

	return ExecuteRedirect(ctx, &Redirect{
		Path:    a.Routes.Login,
		Message: MsgPasswordChanged,
		Replace: true,
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return fmt.Errorf("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map for templates.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if errs, ok := err.(validation.Errors); ok {
		for field, fieldErr := range errs {
			if fieldErr != nil {
				out[field] = fieldErr.Error()
			}
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
