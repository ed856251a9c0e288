// Package classify provides pure pattern-based classification of file paths
// into semantic categories. Every other engine package depends on the same
// path producing the same categories on every call, so nothing here may hold
// state or touch the environment.
package classify

import (
	"path/filepath"
	"strings"
)

// Category is a semantic label for a file path. A path may carry several
// categories at once; unmatched paths carry none.
type Category string

// Categories recognized by the classifier.
const (
	Test           Category = "test"
	Migration      Category = "migration"
	Manifest       Category = "manifest" // dependency manifests and lockfiles
	EnvSecrets     Category = "env-secrets"
	Config         Category = "config"
	Auth           Category = "auth"
	Security       Category = "security"
	Infrastructure Category = "infrastructure"
	Docs           Category = "docs"
)

// Set is an unordered collection of categories.
type Set map[Category]bool

// Has reports whether the set contains the given category.
func (s Set) Has(c Category) bool { return s[c] }

// rule pairs a predicate with the category it assigns. Rules live in one
// ordered table so classification stays auditable in a single place.
type rule struct {
	match    func(path string) bool
	category Category
}

var rules = []rule{
	{isTestPath, Test},
	{isMigrationPath, Migration},
	{isManifestPath, Manifest},
	{isEnvSecretsPath, EnvSecrets},
	{isConfigPath, Config},
	{keywordMatcher("auth", "oauth", "login", "session", "password"), Auth},
	{keywordMatcher("security", "crypto", "secret", "payment", "billing"), Security},
	{isInfrastructurePath, Infrastructure},
	{isDocsPath, Docs},
}

// Categories classifies a file path. The function is total: it never fails,
// and unmatched paths yield an empty set.
func Categories(path string) Set {
	set := make(Set)
	for _, r := range rules {
		if r.match(path) {
			set[r.category] = true
		}
	}
	return set
}

// IsCriticalPath reports whether the path falls into any category that makes
// a change risky to merge without extra review: dependency manifests,
// environment/secrets files, database migrations, or auth/security code.
func IsCriticalPath(path string) bool {
	set := Categories(path)
	return set.Has(Manifest) || set.Has(EnvSecrets) || set.Has(Migration) ||
		set.Has(Auth) || set.Has(Security)
}

// complexExtensions covers languages whose diffs tend to carry more review
// burden per line than scripting or markup changes.
var complexExtensions = map[string]bool{
	".go": true, ".rs": true, ".c": true, ".cc": true, ".cpp": true,
	".java": true, ".scala": true, ".kt": true, ".sql": true,
}

// IsComplexLanguage reports whether the file's extension belongs to a
// language the scorer treats as complexity-heavy.
func IsComplexLanguage(path string) bool {
	return complexExtensions[strings.ToLower(filepath.Ext(path))]
}

func isTestPath(path string) bool {
	lower := strings.ToLower(path)
	base := filepath.Base(lower)
	switch {
	case strings.HasSuffix(base, "_test.go"):
		return true
	case strings.Contains(base, ".test.") || strings.Contains(base, ".spec."):
		return true
	case strings.Contains(lower, "__tests__/") || strings.Contains(lower, "__mocks__/"):
		return true
	case hasDirComponent(lower, "test") || hasDirComponent(lower, "tests") || hasDirComponent(lower, "testdata") || hasDirComponent(lower, "spec"):
		return true
	case strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py"):
		return true
	}
	return false
}

func isMigrationPath(path string) bool {
	lower := strings.ToLower(path)
	return hasDirComponent(lower, "migrations") || hasDirComponent(lower, "migration") ||
		strings.Contains(filepath.Base(lower), "migration")
}

var manifestNames = map[string]bool{
	"package.json": true, "package-lock.json": true, "yarn.lock": true,
	"pnpm-lock.yaml": true, "go.mod": true, "go.sum": true,
	"requirements.txt": true, "pipfile": true, "pipfile.lock": true,
	"pyproject.toml": true, "gemfile": true, "gemfile.lock": true,
	"pom.xml": true, "build.gradle": true, "cargo.toml": true, "cargo.lock": true,
	"composer.json": true, "composer.lock": true,
}

func isManifestPath(path string) bool {
	return manifestNames[strings.ToLower(filepath.Base(path))]
}

func isEnvSecretsPath(path string) bool {
	lower := strings.ToLower(path)
	base := filepath.Base(lower)
	switch {
	case base == ".env" || strings.HasPrefix(base, ".env."):
		return true
	case strings.HasSuffix(base, ".pem") || strings.HasSuffix(base, ".key"):
		return true
	case strings.Contains(base, "credentials") || strings.Contains(base, "secrets"):
		return true
	}
	return false
}

func isConfigPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml", ".toml", ".ini", ".conf", ".cfg":
		return true
	case ".json":
		// Dependency manifests are classified separately.
		return !isManifestPath(path)
	}
	return false
}

func isInfrastructurePath(path string) bool {
	lower := strings.ToLower(path)
	base := filepath.Base(lower)
	switch {
	case base == "dockerfile" || strings.HasPrefix(base, "dockerfile."):
		return true
	case strings.HasPrefix(base, "docker-compose"):
		return true
	case strings.HasSuffix(base, ".tf") || strings.HasSuffix(base, ".tfvars"):
		return true
	case strings.Contains(lower, ".github/workflows/"):
		return true
	case base == "jenkinsfile" || base == "makefile":
		return true
	case hasDirComponent(lower, "terraform") || hasDirComponent(lower, "k8s") || hasDirComponent(lower, "kubernetes") || hasDirComponent(lower, "ansible") || hasDirComponent(lower, "helm"):
		return true
	}
	return false
}

func isDocsPath(path string) bool {
	lower := strings.ToLower(path)
	base := filepath.Base(lower)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".rst", ".adoc", ".txt":
		return true
	}
	return hasDirComponent(lower, "docs") || hasDirComponent(lower, "doc") ||
		base == "license" || base == "readme"
}

// keywordMatcher returns a case-insensitive substring predicate over any of
// the given keywords, matched against the whole path.
func keywordMatcher(keywords ...string) func(string) bool {
	return func(path string) bool {
		lower := strings.ToLower(path)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}
}

// hasDirComponent reports whether any directory component of the (already
// lowercased) path equals name. Matching whole components avoids "contest/"
// counting as a test directory.
func hasDirComponent(lower, name string) bool {
	dir := filepath.ToSlash(filepath.Dir(lower))
	for _, part := range strings.Split(dir, "/") {
		if part == name {
			return true
		}
	}
	return false
}
