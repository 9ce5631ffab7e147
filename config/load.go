/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package config

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	liberr "github.com/featherhq/feather/errors"
	"github.com/featherhq/feather/duration"
)

var durationType = reflect.TypeOf(duration.Duration(0))

// durationDecodeHook lets viper populate duration.Duration fields from
// either a duration string ("75s") or a plain integer number of
// nanoseconds, the two shapes a TOML/YAML file or an env var can supply.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType {
			return data, nil
		}

		switch from.Kind() {
		case reflect.String:
			return duration.Parse(data.(string))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return duration.ParseDuration(time.Duration(reflect.ValueOf(data).Int())), nil
		default:
			return data, nil
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", "0.0.0.0:8000")
	v.SetDefault("worker_count", 1)
	v.SetDefault("max_conns", 1024)
	v.SetDefault("keepalive_timeout", "75s")
	v.SetDefault("worker_timeout", "2s")
	v.SetDefault("traceback_body", false)
	v.SetDefault("access_log_path", "")
	v.SetDefault("error_log_path", "")
	v.SetDefault("control_dir", "")
}

// Load resolves a Config for the given cluster name: command-line flags (if
// flags is non-nil) take precedence over FEATHER_-prefixed environment
// variables, which take precedence over configFile (a TOML or YAML path;
// pass "" to skip reading a file), which take precedence over the defaults
// set above. The resolved Config is validated before it is returned, so a
// malformed setting fails Load rather than surfacing later as a runtime
// panic.
func Load(cluster string, flags *pflag.FlagSet, configFile string) (*Config, liberr.Error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FEATHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, ErrorFileRead.Error(err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, ErrorFileRead.Error(err)
			}
		}
	}

	cfg := &Config{Cluster: cluster}

	dec := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		durationDecodeHook(),
	))
	if err := v.Unmarshal(cfg, dec); err != nil {
		return nil, ErrorFileRead.Error(err)
	}

	if e := cfg.Validate(); e != nil {
		return nil, e
	}

	return cfg, nil
}
