package sources

import "fmt"

// Source retrieves raw proxy links from somewhere (a subscription URL, a
// scraped channel, ...). Implementations register themselves by type name.
type Source interface {
	Fetch(params map[string]interface{}) ([]string, error)
}

type Factory func() Source

var registry = make(map[string]Factory)

func Register(name string, factory Factory) {
	registry[name] = factory
}

func Get(name string) (Source, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("source plugin '%s' not found", name)
	}
	return factory(), nil
}
