package forward

import (
	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
)

const (
	codeInvalidContentType = "INVALID_CONTENT_TYPE"
	codeInvalidJSONBody    = "INVALID_JSON_BODY"
	codeInvalidQueryParams = "INVALID_QUERY_PARAMS"
	codeInvalidPathParams  = "INVALID_PATH_PARAMS"
)

// source fills a command from one part of the request. present reports whether the part
// carries anything worth parsing.
type source struct {
	code    string
	present func(c *fiber.Ctx) bool
	parse   func(c *fiber.Ctx, out any) error
}

// sources run in order, so path params win over query params, which win over the body.
//
//nolint:gochecknoglobals // fixed decoding order
var sources = []source{
	{
		code:    codeInvalidJSONBody,
		present: hasBody,
		parse:   parseJSONBody,
	},
	{
		code:    codeInvalidQueryParams,
		present: func(c *fiber.Ctx) bool { return len(c.Queries()) > 0 },
		parse:   func(c *fiber.Ctx, out any) error { return c.QueryParser(out) },
	},
	{
		code:    codeInvalidPathParams,
		present: func(c *fiber.Ctx) bool { return len(c.Route().Params) > 0 },
		parse:   func(c *fiber.Ctx, out any) error { return c.ParamsParser(out) },
	},
}

func decode(c *fiber.Ctx, out any) error {
	for _, s := range sources {
		if !s.present(c) {
			continue
		}

		err := s.parse(c, out)
		if err == nil {
			continue
		}
		if errx.IsCodeIn(err, codeInvalidContentType) {
			return err
		}
		return errx.Wrap(err, errx.WithType(errx.T_Validation), errx.WithCode(s.code))
	}
	return nil
}

// hasBody limits body decoding to methods that carry a command payload.
func hasBody(c *fiber.Ctx) bool {
	switch c.Method() {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
		return len(c.Body()) > 0
	default:
		return false
	}
}

func parseJSONBody(c *fiber.Ctx, out any) error {
	if !c.Is("json") {
		return errx.New(
			"[forward]: command body must be application/json",
			errx.WithType(errx.T_Validation),
			errx.WithCode(codeInvalidContentType),
			errx.WithDetails(errx.D{"content_type": c.Get(fiber.HeaderContentType)}),
		)
	}
	return c.BodyParser(out)
}
