package handler

import "strings"

// MethodNameInflector chooses the name of the handler method that receives a command.
//
// Strategy covers the built-in naming rules. Any other implementation is a custom inflector.
type MethodNameInflector interface {
	Inflect(key string, cmd any) string
}

// Strategy is a built-in method naming rule.
type Strategy int

const (
	// ClassName calls Handle<ShortName>, e.g. HandleRegisterUserCommand.
	ClassName Strategy = iota
	// ClassNameWithoutSuffix calls Handle<ShortName> with a trailing "Command" removed,
	// e.g. HandleRegisterUser.
	ClassNameWithoutSuffix
	// Handle always calls Handle.
	Handle
	// Invoke calls Invoke, or the handler itself when it is a function.
	Invoke
)

// Configuration names accepted by ParseStrategy.
const (
	StrategyClassName              = "class_name"
	StrategyClassNameWithoutSuffix = "class_name_without_suffix"
	StrategyHandle                 = "handle"
	StrategyInvoke                 = "invoke"
)

const (
	handlePrefix  = "Handle"
	commandSuffix = "Command"

	// InvokeMethod is the method name the Invoke strategy targets.
	InvokeMethod = "Invoke"
)

// ParseStrategy maps a configuration name to a Strategy.
//
// Unknown and empty names fall back to ClassName; parsing never fails.
func ParseStrategy(name string) Strategy {
	switch name {
	case StrategyClassName:
		return ClassName
	case StrategyClassNameWithoutSuffix:
		return ClassNameWithoutSuffix
	case StrategyHandle:
		return Handle
	case StrategyInvoke:
		return Invoke
	default:
		return ClassName
	}
}

// String returns the configuration name of s.
func (s Strategy) String() string {
	switch s {
	case ClassNameWithoutSuffix:
		return StrategyClassNameWithoutSuffix
	case Handle:
		return StrategyHandle
	case Invoke:
		return StrategyInvoke
	case ClassName:
		return StrategyClassName
	default:
		return StrategyClassName
	}
}

// Inflect implements MethodNameInflector.
func (s Strategy) Inflect(key string, _ any) string {
	switch s {
	case ClassNameWithoutSuffix:
		return handlePrefix + strings.TrimSuffix(ShortName(key), commandSuffix)
	case Handle:
		return handlePrefix
	case Invoke:
		return InvokeMethod
	case ClassName:
		return handlePrefix + ShortName(key)
	default:
		return handlePrefix + ShortName(key)
	}
}

// InflectorFunc adapts a function to MethodNameInflector.
type InflectorFunc func(key string, cmd any) string

func (f InflectorFunc) Inflect(key string, cmd any) string {
	return f(key, cmd)
}
