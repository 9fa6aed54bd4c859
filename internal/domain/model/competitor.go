// Package model contains domain models passed between layers.
package model

import (
	"path"
	"strings"
	"time"
)

// Language identifies the source language of a competitor.
type Language string

// Supported languages.
const (
	LanguageJava    Language = "java"
	LanguageClojure Language = "clojure"
)

// Extension returns the source file extension, including the dot.
func (l Language) Extension() string {
	switch l {
	case LanguageJava:
		return ".java"
	case LanguageClojure:
		return ".clj"
	default:
		return ""
	}
}

// LanguageForFile maps a file name to its language. ok is false for
// anything that is not a competitor source file.
func LanguageForFile(name string) (Language, bool) {
	switch strings.ToLower(path.Ext(name)) {
	case ".java":
		return LanguageJava, true
	case ".clj":
		return LanguageClojure, true
	default:
		return "", false
	}
}

// CompetitorSpec describes one competitor as discovered from its repository.
// Specs are values: the registry replaces them whole.
type CompetitorSpec struct {
	RepositoryKey string    // registry key
	Name          string    // display name
	Owner         string    // author, from the repository manifest
	URL           string    // human-facing source location
	LastModified  time.Time // as reported by the source host
	ClassName     string    // entry-point class, without package
	Package       string    // dotted package or namespace, may be empty
	Source        string    // raw source text
	Language      Language
	Version       string // compiler-visible version token (commit SHA)
}

// QualifiedClassName returns package.Class, or Class for the default package.
func (s CompetitorSpec) QualifiedClassName() string {
	if s.Package == "" {
		return s.ClassName
	}
	return s.Package + "." + s.ClassName
}

// SourcePath returns the slash-separated path of the source file relative
// to the competitors root, e.g. "sample/Walls.java".
func (s CompetitorSpec) SourcePath() string {
	return path.Join(s.packageDir(), s.ClassName+s.Language.Extension())
}

// PropertiesPath returns the relative path of the metadata sidecar.
func (s CompetitorSpec) PropertiesPath() string {
	return path.Join(s.packageDir(), s.ClassName+".properties")
}

func (s CompetitorSpec) packageDir() string {
	if s.Package == "" {
		return ""
	}
	return strings.ReplaceAll(s.Package, ".", "/")
}
