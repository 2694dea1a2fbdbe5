package cli

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	httpc "github.com/frankli0324/go-http-client"
)

// fileConfig is the YAML config file. options takes the same keys as
// httpc.OptionsFromMap:
//
//	options:
//	  maxredirects: 3
//	  timeout: 2.5
//	  hosts:
//	    api.local: 127.0.0.1
//	headers:
//	  Accept: application/json
type fileConfig struct {
	Options map[string]interface{} `yaml:"options"`
	Headers map[string]string      `yaml:"headers"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(httpc.ErrInvalidArgument, "config %s: %v", path, err)
	}
	return cfg, nil
}

// options layers the command line over the file.
func (c *fileConfig) options(flags map[string]interface{}) (httpc.Options, error) {
	o := httpc.DefaultOptions()
	var err error
	if len(c.Options) > 0 {
		if o, err = o.Merge(c.Options); err != nil {
			return o, err
		}
	}
	return o.Merge(flags)
}
