package toolchain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cockroachdb/errors"
)

const (

	// Default GitHub REST API base.
	DefaultGitHubAPI = "https://api.github.com"

	// Default base for tag archive downloads.
	DefaultGitHubArchive = "https://github.com"

	// Tags requested per listing page; the API maximum.
	tagsPerPage = 100

	// Upper bound on listing pages, so a misbehaving server cannot loop us.
	maxTagPages = 50
)

// Serves toolchain archives from a GitHub repository's tags.
type GitHubSource struct {
	Owner       string       // Repository owner (e.g., "ScratchEverywhere").
	Repo        string       // Repository name.
	APIBase     string       // REST API base URL. Empty uses [DefaultGitHubAPI].
	ArchiveBase string       // Archive download base URL. Empty uses [DefaultGitHubArchive].
	Format      Format       // Archive format to download, zip or tar.gz. Empty uses zip.
	Token       string       // Optional API token, raises rate limits.
	UserAgent   string       // User-Agent header value.
	Client      *http.Client // HTTP client. Nil uses a client with download timeouts.
}

// Creates a source for owner/repo with default endpoints.
func NewGitHubSource(owner, repo string) *GitHubSource {
	return &GitHubSource{Owner: owner, Repo: repo}
}

// A tag entry of the GitHub tags listing. Only the name is used.
type githubTag struct {
	Name string `json:"name"`
}

// Lists every tag name of the repository, following pagination.
func (g *GitHubSource) Tags(ctx context.Context) ([]string, error) {
	var names []string

	for page := 1; ; page++ {
		tags, err := g.tagsPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if page > maxTagPages {
			if len(tags) == 0 {
				break
			}
			return nil, errors.Newf("tag listing exceeds %d pages", maxTagPages)
		}
		for _, tag := range tags {
			names = append(names, tag.Name)
		}
		if len(tags) < tagsPerPage {
			break
		}
	}

	slog.Debug("listed remote tags", "repo", g.Owner+"/"+g.Repo, "count", len(names))
	return names, nil
}

// Fetches one page of the tags listing.
func (g *GitHubSource) tagsPage(ctx context.Context, page int) ([]githubTag, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/tags?per_page=%d&page=%d",
		orDefault(g.APIBase, DefaultGitHubAPI),
		url.PathEscape(g.Owner), url.PathEscape(g.Repo),
		tagsPerPage, page,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	g.decorate(req)

	resp, err := g.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var tags []githubTag
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, errors.Wrap(err, "decode tags")
	}
	return tags, nil
}

// Opens the tag archive for v.
//
// The archive is addressed by the canonical version string, so the
// repository's tags must be named "major.minor".
func (g *GitHubSource) Open(ctx context.Context, v Version) (io.ReadCloser, Format, error) {
	format := g.Format
	if format == "" {
		format = FormatZip
	}
	if format != FormatZip && format != FormatTarGz {
		return nil, "", errors.Wrapf(ErrUnsupportedFormat, "github serves zip and tar.gz, not %q", format)
	}

	u := fmt.Sprintf("%s/%s/%s/archive/refs/tags/%s%s",
		orDefault(g.ArchiveBase, DefaultGitHubArchive),
		url.PathEscape(g.Owner), url.PathEscape(g.Repo),
		v.String(), format.Ext(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	g.decorate(req)

	slog.Debug("downloading toolchain", "url", u)

	resp, err := g.client().Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, "", statusError(resp)
	}

	return resp.Body, format, nil
}

// Sets the headers shared by every request.
func (g *GitHubSource) decorate(req *http.Request) {
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}
}

// Returns the configured client or a default one.
func (g *GitHubSource) client() *http.Client {
	if g.Client != nil {
		return g.Client
	}
	return newHTTPClient()
}

// Describes an unexpected HTTP status, including a short body excerpt.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := resp.Request.URL.String() + ": " + resp.Status
	if len(body) > 0 {
		msg += ": " + strconv.Quote(string(body))
	}
	return errors.New(msg)
}

// Returns s, or def if s is empty.
func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
