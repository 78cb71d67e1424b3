package registry

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// validateAgainstSchema checks required-key presence and primitive
// types in a single pass. Both checks run unconditionally and errors
// accumulate; the validator never stops at the first violation.
func validateAgainstSchema(schema *Schema, args map[string]any) []string {
	if schema == nil {
		return nil
	}
	var errs []string

	for _, key := range schema.Required {
		if _, present := args[key]; !present {
			errs = append(errs, fmt.Sprintf("missing required parameter '%s'", key))
		}
	}

	// Deterministic error ordering for stable messages.
	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		prop, declared := schema.Properties[key]
		if !declared {
			continue
		}
		value := args[key]
		if value == nil {
			continue
		}
		if !matchesType(prop.Type, value) {
			errs = append(errs, fmt.Sprintf("parameter '%s' must be a %s, got %s", key, prop.Type, typeName(value)))
			continue
		}
		if len(prop.Enum) > 0 {
			if s, ok := value.(string); ok && !contains(prop.Enum, s) {
				errs = append(errs, fmt.Sprintf("parameter '%s' must be one of [%s], got '%s'", key, strings.Join(prop.Enum, ", "), s))
			}
		}
	}
	return errs
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

// applyDefaults fills in declared defaults for absent optional keys.
func applyDefaults(schema *Schema, args map[string]any) {
	if schema == nil {
		return
	}
	for key, prop := range schema.Properties {
		if prop.Default == nil {
			continue
		}
		if _, present := args[key]; !present {
			args[key] = prop.Default
		}
	}
}

func matchesType(t Type, value any) bool {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeNumber:
		switch value.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeArray:
		return reflect.ValueOf(value).Kind() == reflect.Slice
	case TypeObject:
		return reflect.ValueOf(value).Kind() == reflect.Map
	default:
		// Undeclared or custom types are not the validator's concern.
		return true
	}
}

func typeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64:
		return "number"
	default:
		switch reflect.ValueOf(value).Kind() {
		case reflect.Slice:
			return "array"
		case reflect.Map:
			return "object"
		default:
			return reflect.TypeOf(value).String()
		}
	}
}
