// Package discovery finds competitor sources in hosted repositories.
package discovery

import (
	"context"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
)

// Repository is one candidate repository on the source host.
type Repository struct {
	Name     string
	PushedAt time.Time
	HTMLURL  string
}

// Manifest is the robot.json / robot.yaml file that opts a repository in.
type Manifest struct {
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
}

// Source supplies repositories, their manifests and competitor sources.
type Source interface {
	ListRepositories(ctx context.Context) ([]Repository, error)
	// FetchManifest returns nil when the repository carries no manifest.
	FetchManifest(ctx context.Context, repo Repository) (*Manifest, error)
	LatestRevision(ctx context.Context, repo Repository) (string, error)
	// FindCompetitorSource returns nil when no file in the tree is a robot.
	FindCompetitorSource(ctx context.Context, repo Repository, revision string) (*model.CompetitorSpec, error)
}

var (
	javaPackage    = regexp.MustCompile(`package (\S*);`)
	clojureExtends = regexp.MustCompile(`:gen-class :extends \S*Robot`)
)

// Detect inspects one source file and returns the competitor it declares.
// Only ClassName, Package, Source and Language are filled in.
func Detect(fileName, content string) (model.CompetitorSpec, bool) {
	lang, ok := model.LanguageForFile(fileName)
	if !ok {
		return model.CompetitorSpec{}, false
	}
	base := path.Base(fileName)
	className, _, _ := strings.Cut(base, ".")
	if className == "" {
		return model.CompetitorSpec{}, false
	}

	spec := model.CompetitorSpec{
		ClassName: className,
		Source:    content,
		Language:  lang,
	}
	quoted := regexp.QuoteMeta(className)

	switch lang {
	case model.LanguageJava:
		extends := regexp.MustCompile(quoted + ` extends \S*Robot`)
		if !extends.MatchString(content) {
			return model.CompetitorSpec{}, false
		}
		if m := javaPackage.FindStringSubmatch(content); m != nil {
			spec.Package = m[1]
		}
	case model.LanguageClojure:
		if !clojureExtends.MatchString(content) {
			return model.CompetitorSpec{}, false
		}
		ns := regexp.MustCompile(`\(ns (\S*)\.` + quoted)
		if m := ns.FindStringSubmatch(content); m != nil {
			// Clojure namespaces use dashes where file paths use underscores.
			spec.Package = strings.ReplaceAll(m[1], "-", "_")
		}
	}
	return spec, true
}
