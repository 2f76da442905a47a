package namespace

import (
	"errors"
	"strings"

	"github.com/magiconair/properties"

	"github.com/zjrosen/nsresolve/internal/log"
)

// MergeResources reads every resource loc finds at path and merges them into
// one table. Resources are parsed as properties files and merged in discovery
// order, so a key declared by several resources takes the value from the last
// one. Finding no resource at all yields an empty table.
func MergeResources(path string, loc Locator) (map[string]string, error) {
	resources, err := loc.Locate(path)
	if err != nil {
		var rle *ResourceLoadError
		if errors.As(err, &rle) {
			return nil, err
		}
		return nil, &ResourceLoadError{Path: path, Err: err}
	}

	merged := properties.NewProperties()
	merged.DisableExpansion = true
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}

	for _, res := range resources {
		buf, err := res.ReadAll()
		if err != nil {
			return nil, &ResourceLoadError{Path: path, Origin: res.Origin, Err: err}
		}
		p, err := loader.LoadBytes(buf)
		if err != nil {
			return nil, &ResourceLoadError{Path: path, Origin: res.Origin, Err: err}
		}
		log.Debug(log.CatRegistry, "Read mapping resource", "path", path, "origin", res.Origin, "entries", p.Len())
		merged.Merge(p)
	}

	table := merged.Map()
	for k, v := range table {
		table[k] = strings.TrimSpace(v)
	}
	return table, nil
}
