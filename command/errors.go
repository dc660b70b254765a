package command

import "github.com/code19m/errx"

// Error codes reported by the bus. Use errx.IsCodeIn to branch on them.
const (
	// CodeInvalidConfiguration is returned at build time when a collaborator does not
	// satisfy its contract.
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"

	// CodeInvalidMiddleware is returned at build time when a middleware reference
	// resolves to nothing usable.
	CodeInvalidMiddleware = "INVALID_MIDDLEWARE"

	// CodeHandlerNotFound is returned at dispatch time when no handler is registered
	// for the command key.
	CodeHandlerNotFound = "HANDLER_NOT_FOUND"

	// CodeOperationNotFound is returned at dispatch time when the handler has no
	// operation matching the inflected name.
	CodeOperationNotFound = "OPERATION_NOT_FOUND"

	// CodeUnresolvableCommand is returned when no key can be derived from the command.
	CodeUnresolvableCommand = "UNRESOLVABLE_COMMAND"

	// CodeDuplicateHandler is returned when a key is registered twice.
	CodeDuplicateHandler = "DUPLICATE_HANDLER"

	// CodeLocatorSealed is returned when a handler is registered after the first dispatch.
	CodeLocatorSealed = "LOCATOR_SEALED"

	// CodeBusAlreadyBuilt is returned when a builder is asked to build twice.
	CodeBusAlreadyBuilt = "BUS_ALREADY_BUILT"

	// CodeUnexpectedResult is returned by typed dispatch helpers when the handler result
	// has a different type than the caller asked for.
	CodeUnexpectedResult = "UNEXPECTED_RESULT"
)

var errChainExhausted = errx.New(
	"[command]: terminal middleware called next",
	errx.WithCode(CodeInvalidConfiguration),
	errx.WithType(errx.T_Internal),
)

// InvalidConfiguration reports a collaborator that does not satisfy its contract.
func InvalidConfiguration(collaborator, contract string) error {
	return errx.New(
		"[command]: "+collaborator+" must implement "+contract,
		errx.WithCode(CodeInvalidConfiguration),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(errx.D{
			"collaborator": collaborator,
			"contract":     contract,
		}),
	)
}
