package media

import (
	"bufio"
	"encoding/json"
	"errors"
	"strings"

	"mediagate/model"
)

// rawInfo is the subset of yt-dlp's info JSON this service reads.
type rawInfo struct {
	Title     string      `json:"title"`
	Duration  *float64    `json:"duration"`
	Thumbnail string      `json:"thumbnail"`
	Uploader  string      `json:"uploader"`
	ViewCount *int64      `json:"view_count"`
	Ext       string      `json:"ext"`
	Filename  string      `json:"_filename"`
	AltName   string      `json:"filename"`
	Formats   []rawFormat `json:"formats"`
}

type rawFormat struct {
	FormatID   string   `json:"format_id"`
	Resolution string   `json:"resolution"`
	Ext        string   `json:"ext"`
	VCodec     *string  `json:"vcodec"`
	ACodec     *string  `json:"acodec"`
	Filesize   *int64   `json:"filesize"`
	ABR        *float64 `json:"abr"`
}

var errNoJSON = errors.New("no info JSON in tool output")

// parseInfoJSON returns the last JSON object line of stdout. Progress and log
// lines interleaved with it are skipped.
func parseInfoJSON(stdout string) (*rawInfo, error) {
	var last *rawInfo
	sc := bufio.NewScanner(strings.NewReader(stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var info rawInfo
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			continue
		}
		last = &info
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if last == nil {
		return nil, errNoJSON
	}
	return last, nil
}

func (r *rawInfo) filename() string {
	if r.Filename != "" {
		return r.Filename
	}
	return r.AltName
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (r *rawInfo) toVideoInfo() *model.VideoInfo {
	info := &model.VideoInfo{
		Title:     orDefault(r.Title, "Unknown"),
		Thumbnail: r.Thumbnail,
		Uploader:  orDefault(r.Uploader, "Unknown"),
		Formats:   extractFormats(r.Formats),
	}
	if r.Duration != nil {
		info.Duration = *r.Duration
	}
	if r.ViewCount != nil {
		info.ViewCount = *r.ViewCount
	}
	return info
}

// extractFormats lists one format per distinct video resolution, then the
// audio-only format with the highest bitrate.
func extractFormats(formats []rawFormat) []model.Format {
	out := []model.Format{}
	seen := make(map[string]bool)
	var bestAudio *rawFormat
	bestABR := -1.0

	for i := range formats {
		f := &formats[i]
		hasVideo := f.VCodec == nil || *f.VCodec != "none"
		if hasVideo {
			res := orDefault(f.Resolution, "unknown")
			if !seen[res] {
				seen[res] = true
				out = append(out, model.Format{
					FormatID:   f.FormatID,
					Resolution: res,
					Ext:        orDefault(f.Ext, "mp4"),
					Filesize:   derefInt64(f.Filesize),
				})
			}
			continue
		}
		if f.ACodec == nil || *f.ACodec != "none" {
			abr := 0.0
			if f.ABR != nil {
				abr = *f.ABR
			}
			if abr > bestABR {
				bestABR = abr
				bestAudio = f
			}
		}
	}

	if bestAudio != nil {
		out = append(out, model.Format{
			FormatID:   bestAudio.FormatID,
			Resolution: "audio only",
			Ext:        orDefault(bestAudio.Ext, "mp3"),
			Filesize:   derefInt64(bestAudio.Filesize),
		})
	}
	return out
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
