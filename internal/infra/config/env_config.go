package config

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidConfig is returned when the provided config is not a pointer to a struct
	// that embeds EnvConfig.
	ErrInvalidConfig = errors.New("config must be a pointer to a struct embedding EnvConfig")

	// ErrVarNotSet is returned when a required environment variable is not set and has no default.
	ErrVarNotSet = errors.New("env var not set")

	// ErrUnsupportedVarType is returned when trying to parse an environment variable
	// into an unsupported Go type.
	ErrUnsupportedVarType = errors.New("unsupported env var type")

	// ErrInvalidValue is returned when a variable cannot be converted to the field type.
	ErrInvalidValue = errors.New("invalid env var value")
)

// LookupFunc resolves a variable name. It has the signature of os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// EnvConfig is a base type that must be embedded in configuration structs
// to enable environment variable parsing.
type EnvConfig struct {
	namespace string
}

// Namespace returns the namespace the config was parsed with.
func (c EnvConfig) Namespace() string {
	return c.namespace
}

var (
	envConfigType       = reflect.TypeOf(EnvConfig{}) //nolint:exhaustruct
	durationType        = reflect.TypeOf(time.Duration(0))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

//nolint:varnamelen
func getEnvConfig(cfg any) (*EnvConfig, error) {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, ErrInvalidConfig
	}

	v = v.Elem()

	for i := range v.NumField() {
		field := v.Type().Field(i)
		if field.Anonymous && field.Type == envConfigType {
			ec, _ := v.Field(i).Addr().Interface().(*EnvConfig)

			return ec, nil
		}
	}

	return nil, ErrInvalidConfig
}

// Parse loads configuration values from environment variables into the provided struct.
// The struct must embed EnvConfig and use `env` tags to specify variable names.
// Nested structs contribute their `envPrefix` tag to the names of their fields.
//
// Variables are looked up under the namespace first and then under each shorter
// namespace prefix, ending with the bare name. With namespace "GALLERY_API" the
// field tagged `env:"PORT"` in a struct prefixed `HTTP_` is resolved from
// GALLERY_API_HTTP_PORT, GALLERY_HTTP_PORT and finally HTTP_PORT.
//
// Supported field types are strings, signed and unsigned integers, floats, bools,
// time.Duration and anything implementing encoding.TextUnmarshaler.
func Parse(ctx context.Context, cfg any, namespace string) error {
	return ParseLookup(ctx, cfg, namespace, os.LookupEnv)
}

// ParseLookup is Parse with a custom variable source.
func ParseLookup(_ context.Context, cfg any, namespace string, lookup LookupFunc) error {
	envConfig, err := getEnvConfig(cfg)
	if err != nil {
		return fmt.Errorf("get env config: %w", err)
	}

	envConfig.namespace = namespace

	p := parser{lookup: lookup, candidates: namespaces(namespace)}

	return p.parseStruct("", reflect.ValueOf(cfg).Elem())
}

// namespaces lists the name prefixes to try, longest first.
func namespaces(namespace string) []string {
	if namespace == "" {
		return []string{""}
	}

	parts := strings.Split(namespace, "_")
	out := make([]string, 0, len(parts)+1)

	for i := len(parts); i > 0; i-- {
		out = append(out, strings.Join(parts[:i], "_")+"_")
	}

	return append(out, "")
}

type parser struct {
	lookup     LookupFunc
	candidates []string
}

func (p parser) parseStruct(prefix string, v reflect.Value) error {
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		value := v.Field(i)

		if !field.IsExported() || field.Type == envConfigType {
			continue
		}

		if field.Type.Kind() == reflect.Struct && !reflect.PointerTo(field.Type).Implements(textUnmarshalerType) {
			if err := p.parseStruct(prefix+field.Tag.Get("envPrefix"), value); err != nil {
				return err
			}

			continue
		}

		if err := p.parseField(prefix, field, value); err != nil {
			return fmt.Errorf("parse field %s: %w", field.Name, err)
		}
	}

	return nil
}

func (p parser) parseField(prefix string, field reflect.StructField, value reflect.Value) error {
	envTag := field.Tag.Get("env")
	if envTag == "" {
		return nil
	}

	raw, found := p.resolve(prefix + envTag)
	if !found {
		defaultValue, hasDefault := field.Tag.Lookup("default")
		if !hasDefault {
			return fmt.Errorf("%w: %s", ErrVarNotSet, prefix+envTag)
		}

		raw = defaultValue
	}

	if err := setValue(value, raw); err != nil {
		return fmt.Errorf("%s=%q: %w", prefix+envTag, raw, err)
	}

	return nil
}

func (p parser) resolve(name string) (string, bool) {
	for _, ns := range p.candidates {
		if raw, ok := p.lookup(ns + name); ok {
			return raw, true
		}
	}

	return "", false
}

//nolint:cyclop
func setValue(value reflect.Value, raw string) error {
	if value.CanAddr() {
		if u, ok := value.Addr().Interface().(encoding.TextUnmarshaler); ok {
			if err := u.UnmarshalText([]byte(raw)); err != nil {
				return errors.Join(ErrInvalidValue, err)
			}

			return nil
		}
	}

	if value.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return errors.Join(ErrInvalidValue, err)
		}

		value.SetInt(int64(d))

		return nil
	}

	//nolint:exhaustive
	switch value.Kind() {
	case reflect.String:
		value.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, value.Type().Bits())
		if err != nil {
			return errors.Join(ErrInvalidValue, err)
		}

		value.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, value.Type().Bits())
		if err != nil {
			return errors.Join(ErrInvalidValue, err)
		}

		value.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, value.Type().Bits())
		if err != nil {
			return errors.Join(ErrInvalidValue, err)
		}

		value.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.Join(ErrInvalidValue, err)
		}

		value.SetBool(b)
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedVarType, value.Type())
	}

	return nil
}
