package notify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// routesFile is the YAML shape of an operator-provided route file:
//
//	channels:
//	  commands:
//	    url: https://discord.com/api/webhooks/...
//	    headers:
//	      X-Extra: value
type routesFile struct {
	Channels map[string]Route `yaml:"channels"`
}

// LoadRoutes reads channel routes from a YAML file. A missing file is not
// an error; it returns nil routes so env-configured URLs still apply.
func LoadRoutes(path string) (map[Channel]Route, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("notify: read routes: %w", err)
	}

	var f routesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("notify: parse routes: %w", err)
	}

	routes := make(map[Channel]Route, len(f.Channels))
	for name, route := range f.Channels {
		if route.URL == "" {
			return nil, fmt.Errorf("notify: channel %q: url is required", name)
		}
		routes[Channel(name)] = route
	}
	return routes, nil
}
