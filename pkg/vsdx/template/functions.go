package template

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Function represents a callable function in templates
type Function interface {
	// Call executes the function with the given arguments
	Call(args ...interface{}) (interface{}, error)

	// Name returns the function name
	Name() string

	// MinArgs returns the minimum number of arguments required
	MinArgs() int

	// MaxArgs returns the maximum number of arguments allowed (-1 for unlimited)
	MaxArgs() int
}

// FunctionRegistry manages available functions
type FunctionRegistry interface {
	RegisterFunction(fn Function) error
	GetFunction(name string) (Function, bool)
	ListFunctions() []string
}

// DefaultFunctionRegistry is the default implementation of FunctionRegistry
type DefaultFunctionRegistry struct {
	functions map[string]Function
	mutex     sync.RWMutex
}

// NewFunctionRegistry creates an empty function registry
func NewFunctionRegistry() *DefaultFunctionRegistry {
	return &DefaultFunctionRegistry{
		functions: make(map[string]Function),
	}
}

// NewRegistryWithBuiltins creates a registry preloaded with the builtin
// functions, ready for custom additions or overrides.
func NewRegistryWithBuiltins() *DefaultFunctionRegistry {
	r := NewFunctionRegistry()
	registerBuiltinFunctions(r)
	return r
}

func (r *DefaultFunctionRegistry) RegisterFunction(fn Function) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := fn.Name()
	if name == "" {
		return fmt.Errorf("function name cannot be empty")
	}

	r.functions[name] = fn
	return nil
}

func (r *DefaultFunctionRegistry) GetFunction(name string) (Function, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	fn, exists := r.functions[name]
	return fn, exists
}

func (r *DefaultFunctionRegistry) ListFunctions() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	globalRegistry *DefaultFunctionRegistry
	registryOnce   sync.Once
)

// GetDefaultFunctionRegistry returns the shared registry of builtin functions
func GetDefaultFunctionRegistry() FunctionRegistry {
	registryOnce.Do(func() {
		globalRegistry = NewRegistryWithBuiltins()
	})
	return globalRegistry
}

// SimpleFunctionImpl provides a basic implementation of Function
type SimpleFunctionImpl struct {
	name    string
	minArgs int
	maxArgs int
	handler func(args ...interface{}) (interface{}, error)
}

func NewSimpleFunction(name string, minArgs, maxArgs int, handler func(args ...interface{}) (interface{}, error)) Function {
	return &SimpleFunctionImpl{
		name:    name,
		minArgs: minArgs,
		maxArgs: maxArgs,
		handler: handler,
	}
}

func (f *SimpleFunctionImpl) Call(args ...interface{}) (interface{}, error) {
	argCount := len(args)
	if argCount < f.minArgs {
		return nil, NewFunctionError(f.name, args, fmt.Sprintf("requires at least %d arguments, got %d", f.minArgs, argCount))
	}
	if f.maxArgs >= 0 && argCount > f.maxArgs {
		return nil, NewFunctionError(f.name, args, fmt.Sprintf("accepts at most %d arguments, got %d", f.maxArgs, argCount))
	}

	return f.handler(args...)
}

func (f *SimpleFunctionImpl) Name() string {
	return f.name
}

func (f *SimpleFunctionImpl) MinArgs() int {
	return f.minArgs
}

func (f *SimpleFunctionImpl) MaxArgs() int {
	return f.maxArgs
}

func registerBuiltinFunctions(registry *DefaultFunctionRegistry) {
	lengthFn := func(args ...interface{}) (interface{}, error) {
		return lengthOf(args[0])
	}
	registry.RegisterFunction(NewSimpleFunction("len", 1, 1, lengthFn))
	registry.RegisterFunction(NewSimpleFunction("length", 1, 1, lengthFn))

	registry.RegisterFunction(NewSimpleFunction("upper", 1, 1, func(args ...interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		return strings.ToUpper(FormatValue(args[0])), nil
	}))

	registry.RegisterFunction(NewSimpleFunction("lower", 1, 1, func(args ...interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		return strings.ToLower(FormatValue(args[0])), nil
	}))

	// join(collection, separator?)
	registry.RegisterFunction(NewSimpleFunction("join", 1, 2, func(args ...interface{}) (interface{}, error) {
		items, err := toSlice(args[0])
		if err != nil {
			return nil, NewFunctionError("join", args, err.Error())
		}
		separator := ""
		if len(args) == 2 {
			separator = FormatValue(args[1])
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if item == nil {
				continue
			}
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, separator), nil
	}))

	// default(value, fallback) returns fallback when value is empty
	registry.RegisterFunction(NewSimpleFunction("default", 2, 2, func(args ...interface{}) (interface{}, error) {
		if isEmpty(args[0]) {
			return args[1], nil
		}
		return args[0], nil
	}))

	registry.RegisterFunction(NewSimpleFunction("coalesce", 1, -1, func(args ...interface{}) (interface{}, error) {
		for _, arg := range args {
			if !isEmpty(arg) {
				return arg, nil
			}
		}
		return nil, nil
	}))

	registry.RegisterFunction(NewSimpleFunction("empty", 1, 1, func(args ...interface{}) (interface{}, error) {
		return isEmpty(args[0]), nil
	}))

	registry.RegisterFunction(NewSimpleFunction("range", 1, 3, createRange))

	registry.RegisterFunction(NewSimpleFunction("str", 1, 1, func(args ...interface{}) (interface{}, error) {
		return FormatValue(args[0]), nil
	}))

	registry.RegisterFunction(NewSimpleFunction("round", 1, 2, mathRound))

	registry.RegisterFunction(NewSimpleFunction("sum", 1, 1, func(args ...interface{}) (interface{}, error) {
		return sumList(args[0])
	}))

	// contains(needle, haystack) works on strings and collections
	registry.RegisterFunction(NewSimpleFunction("contains", 2, 2, func(args ...interface{}) (interface{}, error) {
		return containsValue(args[0], args[1])
	}))

	// format(pattern, args...) uses fmt verbs
	registry.RegisterFunction(NewSimpleFunction("format", 1, -1, func(args ...interface{}) (interface{}, error) {
		pattern, ok := args[0].(string)
		if !ok {
			return nil, NewFunctionError("format", args, "first argument must be a format string")
		}
		return fmt.Sprintf(pattern, args[1:]...), nil
	}))

	// replace(s, old, new)
	registry.RegisterFunction(NewSimpleFunction("replace", 3, 3, func(args ...interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		return strings.ReplaceAll(FormatValue(args[0]), FormatValue(args[1]), FormatValue(args[2])), nil
	}))
}

func isEmpty(val interface{}) bool {
	if val == nil {
		return true
	}

	switch v := val.(type) {
	case bool:
		return !v
	case string:
		return v == ""
	}

	if f, ok := toFloat64(val); ok {
		return f == 0
	}
	return !IsTruthy(val)
}

func lengthOf(val interface{}) (interface{}, error) {
	if val == nil {
		return 0, nil
	}
	if s, ok := val.(string); ok {
		return len([]rune(s)), nil
	}
	switch v := val.(type) {
	case []interface{}:
		return len(v), nil
	case Data:
		return len(v), nil
	case map[string]interface{}:
		return len(v), nil
	}
	items, err := toSlice(val)
	if err != nil || isInteger(val) {
		return nil, NewFunctionError("length", []interface{}{val}, fmt.Sprintf("type %T has no length", val))
	}
	return len(items), nil
}

func mathRound(args ...interface{}) (interface{}, error) {
	f, ok := toFloat64(args[0])
	if !ok {
		return nil, NewFunctionError("round", args, fmt.Sprintf("cannot round %T", args[0]))
	}
	if len(args) == 1 {
		return int(math.Round(f)), nil
	}
	places, ok := toInt(args[1])
	if !ok || places < 0 {
		return nil, NewFunctionError("round", args, "decimal places must be a non-negative integer")
	}
	scale := math.Pow(10, float64(places))
	return math.Round(f*scale) / scale, nil
}

func sumList(val interface{}) (interface{}, error) {
	items, err := toSlice(val)
	if err != nil {
		return nil, NewFunctionError("sum", []interface{}{val}, err.Error())
	}

	var total float64
	allInts := true
	for _, item := range items {
		if item == nil {
			continue
		}
		f, ok := toFloat64(item)
		if !ok {
			return nil, NewFunctionError("sum", []interface{}{val}, fmt.Sprintf("cannot sum %T", item))
		}
		if !isInteger(item) {
			allInts = false
		}
		total += f
	}
	if allInts {
		return int(total), nil
	}
	return total, nil
}

func containsValue(needle, haystack interface{}) (interface{}, error) {
	if haystack == nil {
		return false, nil
	}
	if s, ok := haystack.(string); ok {
		return strings.Contains(s, FormatValue(needle)), nil
	}
	items, err := toSlice(haystack)
	if err != nil {
		return nil, NewFunctionError("contains", []interface{}{needle, haystack}, err.Error())
	}
	for _, item := range items {
		if evaluateEquals(needle, item) {
			return true, nil
		}
	}
	return false, nil
}

// createRange implements range(end), range(start, end) and
// range(start, end, step).
func createRange(args ...interface{}) (interface{}, error) {
	ints := make([]int, len(args))
	for i, arg := range args {
		n, ok := toInt(arg)
		if !ok {
			return nil, NewFunctionError("range", args, fmt.Sprintf("argument %d must be an integer", i+1))
		}
		ints[i] = n
	}

	start, end, step := 0, 0, 1
	switch len(ints) {
	case 1:
		end = ints[0]
	case 2:
		start, end = ints[0], ints[1]
	case 3:
		start, end, step = ints[0], ints[1], ints[2]
	}
	if step == 0 {
		return nil, NewFunctionError("range", args, "step cannot be zero")
	}

	result := []interface{}{}
	if step > 0 {
		for i := start; i < end; i += step {
			result = append(result, i)
		}
	} else {
		for i := start; i > end; i += step {
			result = append(result, i)
		}
	}
	return result, nil
}
