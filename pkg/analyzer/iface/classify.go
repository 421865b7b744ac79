package iface

import (
	"sort"

	"github.com/panbanda/mcuscope/pkg/models"
)

// headerScore is the library score contributed by each matched header.
const headerScore = 10

// Classify turns merged evidence into one usage record per catalog
// interface. An interface is enabled when it has at least one counted call.
func Classify(c *Catalog, ev *Evidence) map[string]*models.InterfaceUsage {
	out := make(map[string]*models.InterfaceUsage, len(c.Interfaces))
	for _, def := range c.Interfaces {
		u := models.NewInterfaceUsage(def.Name, def.Description, def.Vendor)
		if e, ok := ev.Interfaces[def.Name]; ok {
			u.Functions.Union(e.Functions)
			u.Files.Union(e.Files)
			u.CallCount = e.CallCount
		}
		u.Enabled = u.CallCount > 0
		out[def.Name] = u
	}
	return out
}

// DetectLibraries scores every library with at least one matched header:
// ten points per header plus the call count of each enabled interface the
// library provides. Results are ordered by score, then name.
func DetectLibraries(c *Catalog, ev *Evidence, usage map[string]*models.InterfaceUsage) []models.LibraryInfo {
	out := make([]models.LibraryInfo, 0)
	for _, lib := range c.Libraries {
		headers := ev.LibraryHeaders[lib.ID]
		if headers.Len() == 0 {
			continue
		}
		info := models.LibraryInfo{
			ID:          lib.ID,
			Name:        lib.Name,
			Vendor:      lib.Vendor,
			HeaderFiles: headers.Clone(),
			Interfaces:  models.NewSet(lib.Interfaces...),
			Score:       headerScore * headers.Len(),
		}
		for _, name := range lib.Interfaces {
			if u, ok := usage[name]; ok && u.Enabled {
				info.Score += u.CallCount
			}
		}
		if info.Score > 0 {
			out = append(out, info)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}
