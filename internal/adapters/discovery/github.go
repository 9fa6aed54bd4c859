package discovery

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
)

const (
	defaultAPIURL  = "https://api.github.com"
	defaultRawURL  = "https://raw.githubusercontent.com"
	defaultBranch  = "master"
	defaultTimeout = 30 * time.Second
	reposPerPage   = 100
	maxBodyBytes   = 8 << 20
)

var manifestFiles = []string{"robot.json", "robot.yaml"}

// GitHubOption configures a GitHub source.
type GitHubOption func(*GitHub)

// WithAPIURL overrides the REST API base URL.
func WithAPIURL(u string) GitHubOption {
	return func(g *GitHub) {
		if u != "" {
			g.apiURL = strings.TrimRight(u, "/")
		}
	}
}

// WithRawURL overrides the raw content base URL.
func WithRawURL(u string) GitHubOption {
	return func(g *GitHub) {
		if u != "" {
			g.rawURL = strings.TrimRight(u, "/")
		}
	}
}

// WithBranch sets the branch manifests are read from.
func WithBranch(b string) GitHubOption {
	return func(g *GitHub) {
		if b != "" {
			g.branch = b
		}
	}
}

// WithToken authenticates every request with a static bearer token.
func WithToken(token string) GitHubOption {
	return func(g *GitHub) {
		g.token = token
	}
}

// WithHTTPClient sets the base HTTP client. The token, if any, is layered on top.
func WithHTTPClient(c *http.Client) GitHubOption {
	return func(g *GitHub) {
		if c != nil {
			g.client = c
		}
	}
}

// WithLogger sets the discovery logger.
func WithLogger(l logger.Logger) GitHubOption {
	return func(g *GitHub) {
		if l != nil {
			g.log = l
		}
	}
}

// GitHub is a Source backed by the GitHub REST API for one organisation.
type GitHub struct {
	org    string
	apiURL string
	rawURL string
	branch string
	token  string
	client *http.Client
	log    logger.Logger
}

// NewGitHub creates a Source for every repository of org.
func NewGitHub(org string, opts ...GitHubOption) *GitHub {
	g := &GitHub{
		org:    org,
		apiURL: defaultAPIURL,
		rawURL: defaultRawURL,
		branch: defaultBranch,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Get().Named("discovery")
	}
	if g.token != "" {
		base := context.WithValue(context.Background(), oauth2.HTTPClient, g.client)
		timeout := g.client.Timeout
		g.client = oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: g.token}))
		g.client.Timeout = timeout
	}
	return g
}

type repoJSON struct {
	Name     string    `json:"name"`
	PushedAt time.Time `json:"pushed_at"`
	HTMLURL  string    `json:"html_url"`
}

// ListRepositories implements Source.
func (g *GitHub) ListRepositories(ctx context.Context) ([]Repository, error) {
	var out []Repository
	for page := 1; ; page++ {
		u := fmt.Sprintf("%s/orgs/%s/repos?per_page=%d&page=%d",
			g.apiURL, url.PathEscape(g.org), reposPerPage, page)
		var batch []repoJSON
		if err := g.getJSON(ctx, u, &batch); err != nil {
			return nil, fmt.Errorf("%w: list repositories: %w", ErrDiscovery, err)
		}
		for _, r := range batch {
			out = append(out, Repository{Name: r.Name, PushedAt: r.PushedAt.UTC(), HTMLURL: r.HTMLURL})
		}
		if len(batch) < reposPerPage {
			return out, nil
		}
	}
}

// FetchManifest implements Source.
func (g *GitHub) FetchManifest(ctx context.Context, repo Repository) (*Manifest, error) {
	for _, name := range manifestFiles {
		u := fmt.Sprintf("%s/%s/%s/%s/%s", g.rawURL,
			url.PathEscape(g.org), url.PathEscape(repo.Name), url.PathEscape(g.branch), name)
		body, err := g.get(ctx, u)
		if errors.Is(err, errNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: manifest %s/%s: %w", ErrDiscovery, repo.Name, name, err)
		}
		var m Manifest
		if err := yaml.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("%w: manifest %s/%s: %w", ErrDiscovery, repo.Name, name, err)
		}
		return &m, nil
	}
	return nil, nil
}

// LatestRevision implements Source.
func (g *GitHub) LatestRevision(ctx context.Context, repo Repository) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/commits?per_page=1", g.apiURL, url.PathEscape(g.org), url.PathEscape(repo.Name))
	var commits []struct {
		SHA string `json:"sha"`
	}
	if err := g.getJSON(ctx, u, &commits); err != nil {
		return "", fmt.Errorf("%w: commits %s: %w", ErrDiscovery, repo.Name, err)
	}
	if len(commits) == 0 || commits[0].SHA == "" {
		return "", fmt.Errorf("%w: %s has no commits", ErrDiscovery, repo.Name)
	}
	return commits[0].SHA, nil
}

type treeJSON struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

type blobJSON struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// FindCompetitorSource implements Source. Files are examined in tree order
// and the first robot wins.
func (g *GitHub) FindCompetitorSource(ctx context.Context, repo Repository, revision string) (*model.CompetitorSpec, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		g.apiURL, url.PathEscape(g.org), url.PathEscape(repo.Name), url.PathEscape(revision))
	var tree treeJSON
	if err := g.getJSON(ctx, u, &tree); err != nil {
		return nil, fmt.Errorf("%w: tree %s@%s: %w", ErrDiscovery, repo.Name, revision, err)
	}
	if tree.Truncated {
		g.log.Warn(ctx, "repository tree truncated", logger.String("repository", repo.Name))
	}

	for _, entry := range tree.Tree {
		if entry.Type != "blob" {
			continue
		}
		if _, ok := model.LanguageForFile(entry.Path); !ok {
			continue
		}
		var blob blobJSON
		if err := g.getJSON(ctx, entry.URL, &blob); err != nil {
			return nil, fmt.Errorf("%w: blob %s/%s: %w", ErrDiscovery, repo.Name, entry.Path, err)
		}
		content, err := decodeBlob(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: blob %s/%s: %w", ErrDiscovery, repo.Name, entry.Path, err)
		}
		if spec, ok := Detect(entry.Path, content); ok {
			g.log.Debug(ctx, "competitor source found",
				logger.String("repository", repo.Name), logger.String("path", entry.Path))
			return &spec, nil
		}
	}
	return nil, nil
}

func decodeBlob(b blobJSON) (string, error) {
	if b.Encoding != "" && b.Encoding != "base64" {
		return b.Content, nil
	}
	// The API wraps base64 content at 60 columns.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(b.Content, "\n", ""))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (g *GitHub) getJSON(ctx context.Context, u string, dst any) error {
	body, err := g.get(ctx, u)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

func (g *GitHub) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return body, nil
}
