package blobstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"github.com/svpecas/catalogd/internal/domain"
)

const defaultGithubAPI = "https://api.github.com"

// GithubStore persists blobs as files in a GitHub repository through the
// Contents API. The content sha returned by the API is the revision tag, so
// conditional puts map directly onto the API's sha parameter.
type GithubStore struct {
	apiBase string
	repo    string // owner/name
	branch  string
	token   string
	timeout time.Duration
}

type GithubConfig struct {
	APIBase string `yaml:"api_base" json:"api_base"`
	Repo    string `yaml:"repo" json:"repo"`
	Branch  string `yaml:"branch" json:"branch"`
	Token   string `yaml:"token" json:"token"`
}

func NewGithubStore(cfg GithubConfig) (*GithubStore, error) {
	if cfg.Repo == "" || !strings.Contains(cfg.Repo, "/") {
		return nil, errors.Errorf("github store: repo must be owner/name, got %q", cfg.Repo)
	}
	if cfg.Token == "" {
		return nil, errors.New("github store: token is required")
	}
	base := cfg.APIBase
	if base == "" {
		base = defaultGithubAPI
	}
	return &GithubStore{
		apiBase: strings.TrimRight(base, "/"),
		repo:    cfg.Repo,
		branch:  cfg.Branch,
		token:   cfg.Token,
		timeout: 15 * time.Second,
	}, nil
}

func (s *GithubStore) contentURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/contents/%s", s.apiBase, s.repo, path)
}

func (s *GithubStore) headers() gout.H {
	return gout.H{
		"Authorization": "Bearer " + s.token,
		"Accept":        "application/vnd.github+json",
	}
}

type githubContent struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Message  string `json:"message"` // error payloads
}

func (s *GithubStore) Get(ctx context.Context, path string) ([]byte, string, error) {
	var (
		code int
		body githubContent
	)
	req := gout.GET(s.contentURL(path)).
		SetHeader(s.headers()).
		SetTimeout(s.timeout).
		Code(&code).
		BindJSON(&body)
	if s.branch != "" {
		req = req.SetQuery(gout.H{"ref": s.branch})
	}
	if err := req.Do(); err != nil {
		return nil, "", errors.Wrapf(err, "github get %s", path)
	}
	switch code {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, "", domain.ErrNotFound
	default:
		return nil, "", errors.Errorf("github get %s: status %d: %s", path, code, body.Message)
	}
	raw := strings.ReplaceAll(body.Content, "\n", "")
	content, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", errors.Wrapf(err, "github get %s: decode content", path)
	}
	return content, body.SHA, nil
}

func (s *GithubStore) Put(ctx context.Context, path string, content []byte, message, expectedRevision string) (string, error) {
	payload := gout.H{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	if s.branch != "" {
		payload["branch"] = s.branch
	}
	// The Contents API requires the current sha to update an existing
	// file. With no expected revision we look it up ourselves, which keeps
	// unconditional puts last-writer-wins.
	sha := expectedRevision
	if sha == "" {
		_, current, err := s.Get(ctx, path)
		switch {
		case err == nil:
			sha = current
		case errors.Is(err, domain.ErrNotFound):
		default:
			return "", err
		}
	}
	if sha != "" {
		payload["sha"] = sha
	}

	var (
		code int
		body struct {
			Content *githubContent `json:"content"`
			Message string         `json:"message"`
		}
	)
	err := gout.PUT(s.contentURL(path)).
		SetHeader(s.headers()).
		SetTimeout(s.timeout).
		SetJSON(payload).
		Code(&code).
		BindJSON(&body).
		Do()
	if err != nil {
		return "", errors.Wrapf(err, "github put %s", path)
	}
	switch code {
	case http.StatusOK, http.StatusCreated:
		if body.Content == nil {
			return "", errors.Errorf("github put %s: missing content in response", path)
		}
		return body.Content.SHA, nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return "", domain.ErrConflict
	default:
		return "", errors.Errorf("github put %s: status %d: %s", path, code, body.Message)
	}
}

func (s *GithubStore) Delete(ctx context.Context, path string, message, expectedRevision string) error {
	sha := expectedRevision
	if sha == "" {
		_, current, err := s.Get(ctx, path)
		if err != nil {
			return err
		}
		sha = current
	}
	payload := gout.H{"message": message, "sha": sha}
	if s.branch != "" {
		payload["branch"] = s.branch
	}
	var (
		code int
		body githubContent
	)
	err := gout.DELETE(s.contentURL(path)).
		SetHeader(s.headers()).
		SetTimeout(s.timeout).
		SetJSON(payload).
		Code(&code).
		BindJSON(&body).
		Do()
	if err != nil {
		return errors.Wrapf(err, "github delete %s", path)
	}
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return domain.ErrConflict
	default:
		return errors.Errorf("github delete %s: status %d: %s", path, code, body.Message)
	}
}

func (s *GithubStore) List(ctx context.Context, prefix string) ([]string, error) {
	// The Contents API lists one directory at a time; prefixes here are
	// always directory-shaped (e.g. "catalogos/").
	dir := strings.TrimRight(prefix, "/")
	var (
		code int
		raw  string
	)
	req := gout.GET(s.contentURL(dir)).
		SetHeader(s.headers()).
		SetTimeout(s.timeout).
		Code(&code).
		BindBody(&raw)
	if s.branch != "" {
		req = req.SetQuery(gout.H{"ref": s.branch})
	}
	if err := req.Do(); err != nil {
		return nil, errors.Wrapf(err, "github list %s", prefix)
	}
	switch code {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, errors.Errorf("github list %s: status %d", prefix, code)
	}
	var entries []githubContent
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, errors.Wrapf(err, "github list %s: decode", prefix)
	}
	var out []string
	for _, e := range entries {
		if e.Type == "file" {
			out = append(out, e.Path)
		}
	}
	sort.Strings(out)
	return out, nil
}
