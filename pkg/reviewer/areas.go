package reviewer

import (
	"path/filepath"
	"strings"

	"github.com/kyisaiah47/springforge-sub000/pkg/classify"
)

// Expertise areas a reviewer can be credited with.
const (
	AreaBackend  = "backend"
	AreaFrontend = "frontend"
	AreaDatabase = "database"
	AreaSecurity = "security"
	AreaTesting  = "testing"
	AreaDocs     = "docs"
	AreaConfig   = "config"
	AreaInfra    = "infra"
)

var backendExtensions = map[string]bool{
	".go": true, ".py": true, ".rb": true, ".java": true, ".rs": true,
	".kt": true, ".scala": true, ".php": true, ".ex": true, ".cs": true,
}

var frontendExtensions = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".vue": true,
	".svelte": true, ".css": true, ".scss": true, ".html": true,
}

// areasForPath maps a file path's categories onto expertise areas. A single
// path can credit several areas (a Go migration is backend and database).
func areasForPath(path string) []string {
	set := classify.Categories(path)
	ext := strings.ToLower(filepath.Ext(path))

	var areas []string
	add := func(area string, ok bool) {
		if ok {
			areas = append(areas, area)
		}
	}
	add(AreaTesting, set.Has(classify.Test))
	add(AreaDatabase, set.Has(classify.Migration) || ext == ".sql")
	add(AreaSecurity, set.Has(classify.Auth) || set.Has(classify.Security))
	add(AreaInfra, set.Has(classify.Infrastructure))
	add(AreaConfig, set.Has(classify.Config) || set.Has(classify.Manifest))
	add(AreaDocs, set.Has(classify.Docs))
	add(AreaBackend, backendExtensions[ext])
	add(AreaFrontend, frontendExtensions[ext])
	return areas
}
