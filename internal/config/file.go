package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

const DefaultFilePath = "duckask.hcl"

// File is the optional HCL configuration file. It never carries secrets;
// those come from the environment or the OS keychain.
type File struct {
	Profile     string            `hcl:"profile,optional"`
	DataDir     string            `hcl:"data_dir,optional"`
	DataSource  string            `hcl:"data_source,optional"`
	PromptPath  string            `hcl:"prompt_path,optional"`
	LogLevel    string            `hcl:"log_level,optional"`
	LogJSON     *bool             `hcl:"log_json,optional"`
	MetricsAddr string            `hcl:"metrics_addr,optional"`
	AI          *AIBlock          `hcl:"ai,block"`
	ObjectStore *ObjectStoreBlock `hcl:"object_store,block"`
}

type AIBlock struct {
	BaseURL     string   `hcl:"base_url,optional"`
	Model       string   `hcl:"model,optional"`
	Temperature *float64 `hcl:"temperature,optional"`
	Timeout     string   `hcl:"timeout,optional"`
}

type ObjectStoreBlock struct {
	Endpoint string `hcl:"endpoint,optional"`
	Region   string `hcl:"region,optional"`
	Bucket   string `hcl:"bucket,optional"`
	UseSSL   *bool  `hcl:"use_ssl,optional"`
	Prefix   string `hcl:"prefix,optional"`
}

// LoadFile parses an HCL config file. A missing file at the default path is
// not an error and yields an empty lookup.
func LoadFile(path string) (LookupFunc, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFilePath
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return mapLookup(nil), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	parser := hclparse.NewParser()
	parsed, diags := parser.ParseHCL(content, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse config file: %s", diags.Error())
	}

	var file File
	if diags := gohcl.DecodeBody(parsed.Body, evalContext(os.Environ()), &file); diags.HasErrors() {
		return nil, fmt.Errorf("decode config file: %s", diags.Error())
	}
	return mapLookup(file.values()), nil
}

// evalContext exposes the process environment as env.NAME and the user's
// home directory as home, so paths like "${home}/data" resolve.
func evalContext(environ []string) *hcl.EvalContext {
	env := make(map[string]cty.Value, len(environ))
	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !hclsyntax.ValidIdentifier(name) {
			continue
		}
		env[name] = cty.StringVal(value)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":  cty.ObjectVal(env),
			"home": cty.StringVal(home),
		},
	}
}

func (f File) values() map[string]string {
	values := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			values[key] = value
		}
	}

	set("DUCKASK_PROFILE", f.Profile)
	set("DUCKASK_DATA_DIR", f.DataDir)
	set("DUCKASK_DATA_SOURCE", f.DataSource)
	set("DUCKASK_PROMPT_PATH", f.PromptPath)
	set("DUCKASK_LOG_LEVEL", f.LogLevel)
	set("DUCKASK_METRICS_ADDR", f.MetricsAddr)
	if f.LogJSON != nil {
		values["DUCKASK_LOG_JSON"] = strconv.FormatBool(*f.LogJSON)
	}
	if f.AI != nil {
		set("DUCKASK_AI_BASE_URL", f.AI.BaseURL)
		set("DUCKASK_AI_MODEL", f.AI.Model)
		set("DUCKASK_AI_TIMEOUT", f.AI.Timeout)
		if f.AI.Temperature != nil {
			values["DUCKASK_AI_TEMPERATURE"] = strconv.FormatFloat(*f.AI.Temperature, 'f', -1, 64)
		}
	}
	if f.ObjectStore != nil {
		set("DUCKASK_OBJECTSTORE_ENDPOINT", f.ObjectStore.Endpoint)
		set("DUCKASK_OBJECTSTORE_REGION", f.ObjectStore.Region)
		set("DUCKASK_OBJECTSTORE_BUCKET", f.ObjectStore.Bucket)
		set("DUCKASK_OBJECTSTORE_PREFIX", f.ObjectStore.Prefix)
		if f.ObjectStore.UseSSL != nil {
			values["DUCKASK_OBJECTSTORE_USE_SSL"] = strconv.FormatBool(*f.ObjectStore.UseSSL)
		}
	}
	return values
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
