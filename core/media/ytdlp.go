package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"golang.org/x/sync/singleflight"

	"mediagate/core/apperr"
	"mediagate/logger"
	"mediagate/model"
)

const (
	mobileUserAgent  = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	outputTemplate = "%(title)s.%(ext)s"
	progressEvery  = 500 * time.Millisecond
)

// strategy is one extraction attempt configuration. Validation walks them in
// order and stops at the first success.
type strategy struct {
	name         string
	playerClient string
	userAgent    string
	retries      string
}

var validationStrategies = []strategy{
	{name: "mweb", playerClient: "mweb", userAgent: mobileUserAgent, retries: "10"},
	{name: "ios", playerClient: "ios", userAgent: desktopUserAgent, retries: "5"},
	{name: "android", playerClient: "android", retries: "3"},
}

// ValidationBudget is the longest Validate can take when every strategy runs
// into its per-attempt timeout.
func ValidationBudget(perAttempt time.Duration) time.Duration {
	return time.Duration(len(validationStrategies)) * perAttempt
}

// YtdlpConfig configures YtdlpFetcher.
type YtdlpConfig struct {
	Executable      string // empty lets go-ytdlp resolve yt-dlp from PATH
	StorageRoot     string
	ValidateTimeout time.Duration
	FetchTimeout    time.Duration
}

// YtdlpFetcher implements Fetcher by running yt-dlp.
type YtdlpFetcher struct {
	cfg   YtdlpConfig
	infos singleflight.Group
}

// NewYtdlpFetcher creates a fetcher writing into cfg.StorageRoot.
func NewYtdlpFetcher(cfg YtdlpConfig) *YtdlpFetcher {
	return &YtdlpFetcher{cfg: cfg}
}

func (f *YtdlpFetcher) command() *ytdlp.Command {
	dl := ytdlp.New().NoWarnings().NoPlaylist()
	if f.cfg.Executable != "" {
		dl = dl.SetExecutable(f.cfg.Executable)
	}
	return dl
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// toolOutput picks the most informative text from a failed run.
func toolOutput(res *ytdlp.Result, err error) string {
	if res != nil {
		if s := strings.TrimSpace(res.Stderr); s != "" {
			return s
		}
	}
	if err != nil {
		return err.Error()
	}
	return "unknown error"
}

// Validate implements Fetcher.
func (f *YtdlpFetcher) Validate(ctx context.Context, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return apperr.Validation("URL is required and must be a string")
	}
	if !HasHTTPScheme(rawURL) {
		return apperr.Validation("URL must start with http:// or https://")
	}

	var lastOutput string
	for _, s := range validationStrategies {
		attemptCtx, cancel := withTimeout(ctx, f.cfg.ValidateTimeout)
		dl := f.command().
			SkipDownload().
			DumpJSON().
			ExtractorArgs("youtube:player_client=" + s.playerClient).
			Retries(s.retries).
			FragmentRetries(s.retries).
			AddHeaders("Accept:text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
			AddHeaders("Accept-Language:en-us,en;q=0.5")
		if s.userAgent != "" {
			dl = dl.AddHeaders("User-Agent:" + s.userAgent)
		}

		res, err := dl.Run(attemptCtx, rawURL)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return apperr.Validation("URL validation timed out")
		}
		lastOutput = toolOutput(res, err)
		logger.Debug("validation strategy failed",
			logger.String("strategy", s.name),
			logger.String("url", rawURL),
			logger.String("output", apperr.Truncate(lastOutput, 500)))
	}
	return apperr.Validation(validationMessage(lastOutput))
}

// Info implements Fetcher. Concurrent calls for the same URL share one run.
func (f *YtdlpFetcher) Info(ctx context.Context, rawURL string) (*model.VideoInfo, error) {
	v, err, _ := f.infos.Do(rawURL, func() (interface{}, error) {
		runCtx, cancel := withTimeout(context.WithoutCancel(ctx), f.cfg.ValidateTimeout)
		defer cancel()

		res, err := f.command().
			SkipDownload().
			DumpJSON().
			ExtractorArgs("youtube:player_client=ios,android,web;player_skip=webpage").
			AddHeaders("User-Agent:"+desktopUserAgent).
			Retries("5").
			Run(runCtx, rawURL)
		if err != nil {
			return nil, apperr.Fetch("Failed to get video info", errors.New(fetchReason(toolOutput(res, err))))
		}
		raw, err := parseInfoJSON(res.Stdout)
		if err != nil {
			return nil, apperr.Fetch("Failed to get video info", err)
		}
		return raw.toVideoInfo(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.VideoInfo), nil
}

// Fetch implements Fetcher.
func (f *YtdlpFetcher) Fetch(ctx context.Context, req model.DownloadRequest, onProgress ProgressFunc) (*model.MediaArtifact, error) {
	ctx, cancel := withTimeout(ctx, f.cfg.FetchTimeout)
	defer cancel()

	dl := f.command().
		DumpJSON().
		NoSimulate().
		RestrictFilenames().
		Output(filepath.Join(f.cfg.StorageRoot, outputTemplate)).
		ExtractorArgs("youtube:player_client=mweb,ios,android,web").
		AddHeaders("User-Agent:" + mobileUserAgent).
		AddHeaders("Accept-Language:en-us,en;q=0.5").
		Retries("10").
		FragmentRetries("10")

	switch {
	case req.AudioOnly:
		dl = dl.Format("bestaudio/best").
			ExtractAudio().
			AudioFormat("mp3").
			AudioQuality("192K")
	case req.FormatID != "":
		dl = dl.Format(req.FormatID).MergeOutputFormat("mp4")
	default:
		dl = dl.Format("best").MergeOutputFormat("mp4")
	}

	if onProgress != nil {
		dl = dl.ProgressFunc(progressEvery, func(u ytdlp.ProgressUpdate) {
			onProgress(Progress{
				Status:          string(u.Status),
				DownloadedBytes: int64(u.DownloadedBytes),
				TotalBytes:      int64(u.TotalBytes),
			})
		})
	}

	res, err := dl.Run(ctx, req.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Fetch("Download failed", ctx.Err())
		}
		return nil, apperr.Fetch("Download failed", errors.New(fetchReason(toolOutput(res, err))))
	}

	raw, err := parseInfoJSON(res.Stdout)
	if err != nil {
		return nil, apperr.Fetch("Download error", err)
	}
	path, err := locateArtifact(raw.filename(), req.AudioOnly)
	if err != nil {
		return nil, apperr.Fetch("Download error", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Fetch("Download error", err)
	}

	return &model.MediaArtifact{
		Filename: filepath.Base(path),
		Path:     path,
		Size:     st.Size(),
		Title:    orDefault(raw.Title, "Unknown"),
		Status:   model.ArtifactCompleted,
	}, nil
}

// locateArtifact finds the file yt-dlp actually left behind. The reported
// name wins for video; the mp4 sibling only covers a merge that renamed it.
// Audio extraction always produces the mp3 sibling.
func locateArtifact(prepared string, audioOnly bool) (string, error) {
	if prepared == "" {
		return "", errors.New("downloaded file not found")
	}
	stem := strings.TrimSuffix(prepared, filepath.Ext(prepared))
	candidates := []string{prepared, stem + ".mp4", stem + ".mp3"}
	if audioOnly {
		candidates = []string{stem + ".mp3", prepared}
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && st.Mode().IsRegular() {
			return c, nil
		}
	}
	return "", fmt.Errorf("downloaded file not found: %s", filepath.Base(prepared))
}
