package crud

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
)

// Catalog maps CLI entity names to their backend endpoints.
var Catalog = map[string]Endpoint{
	"payers":        {Path: "/api/Payers", Module: "Payers"},
	"plans":         {Path: "/api/Plans", Module: "Plans"},
	"fee-schedules": {Path: "/api/FeeSchedules", Module: "Fee Schedules"},
	"entities":      {Path: "/api/Entities", Module: "Entities"},
	"providers":     {Path: "/api/Providers", Module: "Providers"},
	"zip-geo":       {Path: "/api/ZipGeoMappings", Module: "Zip Geo Mappings"},
	"roles":         {Path: "/api/Roles", Module: "Roles"},
	"users":         {Path: "/api/Users", Module: "Users"},
}

func SupportedEntities() []string {
	names := maps.Keys(Catalog)
	sort.Strings(names)
	return names
}

func Lookup(entity string) (Endpoint, error) {
	ep, ok := Catalog[entity]
	if !ok {
		return Endpoint{}, fmt.Errorf("unknown entity %q, supported: %v", entity, SupportedEntities())
	}
	return ep, nil
}
