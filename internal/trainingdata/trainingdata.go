// Package trainingdata downloads reference text for learned keywords and
// stores it as CLM training data.
//
// Each keyword file under keywords/ that is newer than the newest object
// under training_data/ (or every file, when training_data/ is empty) is read
// as a comma separated keyword list. For every keyword the reference page
// <base_url><Keyword_With_Underscores> is fetched; its paragraph text is split
// into sentences with bracketed asides removed and written to
// training_data/<Keyword_With_Underscores>.txt, one sentence per line.
package trainingdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clmeval/internal/logging"
	"clmeval/internal/services"
	"clmeval/internal/storage"
	"clmeval/internal/textutil"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "clmeval (training data acquisition)"
	maxPageBytes     = 8 << 20
)

// Options configures an Acquirer.
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Result summarizes one acquisition pass.
type Result struct {
	// FilesScanned counts keyword files that were newer than the training data.
	FilesScanned int
	// Keywords counts keywords read from those files.
	Keywords int
	// Written counts training data objects written.
	Written int
	// Missing lists keywords whose page could not be fetched.
	Missing []string
}

// Acquirer fetches training text into a storage root.
type Acquirer struct {
	store     storage.Store
	client    *http.Client
	baseURL   string
	userAgent string
	logger    *slog.Logger
}

// New builds an Acquirer writing into store.
func New(store storage.Store, opts Options) *Acquirer {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Acquirer{
		store:     store,
		client:    client,
		baseURL:   strings.TrimSpace(opts.BaseURL),
		userAgent: userAgent,
		logger:    logger,
	}
}

// Acquire refreshes training data for keyword files changed since the last
// acquisition. Unavailable pages are logged and skipped; only storage errors
// and context cancellation fail the pass.
func (a *Acquirer) Acquire(ctx context.Context) (Result, error) {
	var result Result
	if a.baseURL == "" {
		return result, services.Wrap(services.ErrConfiguration, "training_data", "acquire", "base url is empty", nil)
	}

	keywordFiles, err := a.store.List(ctx, storage.KeywordsPrefix)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "training_data", "list keywords", storage.KeywordsPrefix, err)
	}
	existing, err := a.store.List(ctx, storage.TrainingDataPrefix)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "training_data", "list training data", storage.TrainingDataPrefix, err)
	}
	newest, haveData := storage.Newest(existing)

	for _, file := range keywordFiles {
		if strings.HasSuffix(file.Key, "/") {
			continue
		}
		if haveData && !file.LastModified.After(newest.LastModified) {
			a.logger.Debug("keyword file unchanged since last acquisition", logging.String("key", file.Key))
			continue
		}
		result.FilesScanned++

		text, err := storage.ReadText(ctx, a.store, file.Key)
		if err != nil {
			return result, services.Wrap(services.ErrTransient, "training_data", "read keywords", file.Key, err)
		}
		keywords := ParseKeywords(text)
		result.Keywords += len(keywords)

		written := 0
		for _, keyword := range keywords {
			ok, err := a.fetchOne(ctx, keyword)
			if err != nil {
				return result, err
			}
			if !ok {
				result.Missing = append(result.Missing, keyword)
				continue
			}
			written++
		}
		result.Written += written
		a.logger.Info("training data downloaded",
			logging.String("key", file.Key),
			logging.Int("written", written),
			logging.Int("keywords", len(keywords)),
		)
	}
	return result, nil
}

func (a *Acquirer) fetchOne(ctx context.Context, keyword string) (bool, error) {
	title := PageTitle(keyword)
	page, err := a.fetchPage(ctx, title)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		logging.WarnWithContext(a.logger, "reference page unavailable", "training_page_missing",
			logging.String("keyword", keyword),
			logging.Error(err),
			logging.String(logging.FieldImpact, "keyword contributes no training data"),
		)
		return false, nil
	}
	sentences, err := ExtractSentences(page)
	if err != nil {
		logging.WarnWithContext(a.logger, "reference page unparsable", "training_page_invalid",
			logging.String("keyword", keyword),
			logging.Error(err),
		)
		return false, nil
	}
	key := storage.TrainingDataPrefix + textutil.ObjectName(title) + ".txt"
	if err := storage.WriteText(ctx, a.store, key, strings.Join(sentences, "\n")); err != nil {
		return false, services.Wrap(services.ErrTransient, "training_data", "write", key, err)
	}
	return true, nil
}

func (a *Acquirer) fetchPage(ctx context.Context, title string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+url.PathEscape(title), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", services.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// ParseKeywords splits a keyword file on newlines and commas, trimming and
// dropping empty entries.
func ParseKeywords(text string) []string {
	var keywords []string
	for _, line := range strings.Split(text, "\n") {
		for _, word := range strings.Split(line, ",") {
			if word = strings.TrimSpace(word); word != "" {
				keywords = append(keywords, word)
			}
		}
	}
	return keywords
}

// PageTitle turns a keyword into a page title by replacing spaces with
// underscores.
func PageTitle(keyword string) string {
	return strings.ReplaceAll(strings.TrimSpace(keyword), " ", "_")
}
