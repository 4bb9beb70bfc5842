package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"

	"sigs.k8s.io/yaml"
)

// setDefaults sets default values for a struct using 'default' tags, the
// same reflect-driven pattern the rest of this config layer has always
// used. Bool fields are intentionally excluded: a reflect-only check
// cannot distinguish "absent from the file" from "explicitly false", and
// the one bool default in this config (runtime.dry_run) gates the only
// write boundary in the system — silently flipping an explicit `false`
// back to `true` would make dry-run impossible to disable. DryRun's
// default is therefore applied separately in ReadConfigFromBytes using a
// raw-key presence check.
func setDefaults(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return
	}

	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			field.Set(reflect.ValueOf(fieldDefault(field.Interface())))
			continue
		}

		tag := rt.Field(i).Tag.Get("default")
		if tag == "" {
			continue
		}
		if tag == "{}" {
			if field.Kind() == reflect.Ptr && field.IsNil() && field.Type().Elem().Kind() == reflect.Struct {
				field.Set(reflect.New(field.Type().Elem()))
				setDefaults(field.Interface())
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if field.String() == "" {
				field.SetString(tag)
			}
		case reflect.Int, reflect.Int32, reflect.Int64:
			if field.Int() == 0 {
				if n, err := strconv.ParseInt(tag, 10, 64); err == nil {
					field.SetInt(n)
				}
			}
		}
	}
}

// fieldDefault recurses into nested struct fields (Calendar, Paths, etc.)
// applying their own default tags.
func fieldDefault(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	ptr := reflect.New(rv.Type())
	ptr.Elem().Set(rv)
	setDefaults(ptr.Interface())
	return ptr.Elem().Interface()
}

// dryRunKeyPresent reports whether the raw YAML document explicitly set
// runtime.dry_run, so its absence (not its falsity) can drive the default.
func dryRunKeyPresent(raw map[string]interface{}) bool {
	runtime, ok := raw["runtime"].(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = runtime["dry_run"]
	return ok
}

// ReadConfigFromBytes parses config from raw bytes and applies defaults.
// Values are not validated beyond what decoding itself rejects.
func ReadConfigFromBytes(data []byte) (Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %v", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %v", err)
	}

	setDefaults(&cfg)
	if !dryRunKeyPresent(raw) {
		cfg.Runtime.DryRun = true
	}

	return cfg, nil
}

// ReadConfig reads config from a file path. Relative paths are resolved
// against the working directory so the default ./config.yaml works.
func ReadConfig(path string) (Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve config path: %v", err)
	}
	data, err := os.ReadFile(filepath.Clean(abs))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %v", err)
	}
	return ReadConfigFromBytes(data)
}

// WriteConfig persists cfg back to path, preserving the file's existing
// permissions when present. Used to record sync status after a run.
func WriteConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %v", err)
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode()
	}
	return os.WriteFile(path, data, mode)
}
