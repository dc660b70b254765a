// Package forward exposes commands over HTTP with fiber.
package forward

import (
	"errors"
	"net/http"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"

	"github.com/rise-and-shine/cmdbus/bus"
	"github.com/rise-and-shine/cmdbus/meta"
	"github.com/rise-and-shine/cmdbus/val"
)

const codeRouterError = "ROUTER_ERROR"

// ToCommand decodes a C from the request body, query and path parameters, validates it
// and dispatches it through d. C must be a struct type. A non-nil result is written as
// JSON; a nil result yields 204 No Content. Errors are returned for ErrorHandler to render.
func ToCommand[C any](d bus.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cmd := new(C)

		if err := decode(c, cmd); err != nil {
			return err
		}
		if err := val.Validate(cmd); err != nil {
			return err
		}

		ctx := meta.InjectMetaToContext(c.UserContext(), map[meta.ContextKey]string{
			meta.IPAddress: c.IP(),
			meta.UserAgent: c.Get(fiber.HeaderUserAgent),
		})

		result, err := d.Dispatch(ctx, *cmd)
		if err != nil {
			return err
		}

		if result == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return errx.Wrap(c.JSON(result))
	}
}

// ErrorHandler renders errors as {"trace_id": ..., "error": {...}} with a status derived
// from the errx type. Trace and details are omitted when hideDetails is set.
func ErrorHandler(hideDetails bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		e := toErrorX(err)

		c.Status(statusFor(e.Type()))
		return c.JSON(map[string]any{
			"trace_id": meta.Find(c.UserContext(), meta.TraceID),
			"error":    buildErrorSchema(e, hideDetails),
		})
	}
}

type errorSchema struct {
	Code    string            `json:"code"`
	Cause   string            `json:"cause"`
	Trace   string            `json:"trace,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
}

func buildErrorSchema(e errx.ErrorX, hideDetails bool) errorSchema {
	s := errorSchema{
		Code:   e.Code(),
		Cause:  e.Error(),
		Fields: e.Fields(),
	}
	if !hideDetails {
		s.Trace = e.Trace()
		s.Details = e.Details()
	}
	return s
}

func statusFor(t errx.Type) int {
	switch t {
	case errx.T_Authentication:
		return fiber.StatusUnauthorized
	case errx.T_Forbidden:
		return fiber.StatusForbidden
	case errx.T_NotFound:
		return fiber.StatusNotFound
	case errx.T_Validation:
		return fiber.StatusBadRequest
	case errx.T_Conflict:
		return fiber.StatusConflict
	case errx.T_Throttling:
		return fiber.StatusTooManyRequests
	case errx.T_Internal:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

// toErrorX maps fiber router errors onto errx types and passes everything else through.
func toErrorX(err error) errx.ErrorX {
	var fiberErr *fiber.Error
	if !errors.As(err, &fiberErr) {
		return errx.AsErrorX(err)
	}

	var t errx.Type
	switch {
	case fiberErr.Code == fiber.StatusNotFound:
		t = errx.T_NotFound
	case fiberErr.Code == fiber.StatusMethodNotAllowed, fiberErr.Code < http.StatusInternalServerError:
		t = errx.T_Validation
	default:
		t = errx.T_Internal
	}

	return errx.AsErrorX(errx.New(
		fiberErr.Message,
		errx.WithCode(codeRouterError),
		errx.WithType(t),
		errx.WithDetails(errx.D{"fiber_code": fiberErr.Code}),
	))
}
