package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"

	"mediagate/config"
	"mediagate/core/apperr"
	"mediagate/core/download"
	"mediagate/core/progress"
	"mediagate/logger"
	"mediagate/model"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// APIHandler 处理所有API请求
type APIHandler struct {
	svc *download.Service
	hub *progress.Hub
	cfg *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(svc *download.Service, hub *progress.Hub, cfg *config.Config) *APIHandler {
	return &APIHandler{svc: svc, hub: hub, cfg: cfg}
}

type validateRequest struct {
	URL string `json:"url"`
}

// decodeBody reads a JSON body into v. A missing or malformed body leaves v
// zero-valued, which the handlers report as a missing URL.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		logger.Debug("Invalid request body", logger.ErrorField(err))
	}
}

// ValidateHandler 校验 URL 并返回视频信息，不计入限流
func (h *APIHandler) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	decodeBody(w, r, &req)

	res, err := h.svc.Validate(r.Context(), req.URL)
	if err != nil {
		status := apperr.HTTPStatus(err)
		msg := apperr.PublicMessage(err)
		if status >= http.StatusInternalServerError {
			logger.Error("Validation failed", logger.ErrorField(err))
		}
		writeJSON(w, status, map[string]interface{}{"valid": false, "message": msg})
		return
	}

	if res.Info == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"valid":   true,
			"message": "URL is valid but info unavailable",
			"error":   res.InfoError,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":      true,
		"message":    "URL is valid",
		"video_info": res.Info,
	})
}

// DownloadHandler 下载媒体，受限流控制
func (h *APIHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	var req model.DownloadRequest
	decodeBody(w, r, &req)
	req.ClientID = ClientIdentity(r)

	artifact, err := h.svc.Download(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "success",
		"message":      "Download completed",
		"filename":     artifact.Filename,
		"filesize":     artifact.Size,
		"title":        artifact.Title,
		"download_url": "/api/file/" + url.PathEscape(artifact.Filename),
	})
}

// FileHandler 以附件形式返回存储目录中的文件
func (h *APIHandler) FileHandler(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(mux.Vars(r)["filename"])
	if err != nil {
		writeError(w, r, apperr.PathRejected())
		return
	}

	served, err := h.svc.Open(name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	f, err := os.Open(served.Path)
	if err != nil {
		logger.Error("Failed to open artifact", logger.String("path", served.Path), logger.ErrorField(err))
		writeError(w, r, apperr.NotFound())
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": served.Name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, served.Name, served.ModTime, f)
}

type rateLimitStatus struct {
	MaxRequests   int  `json:"max_requests"`
	WindowSeconds int  `json:"window_seconds"`
	Remaining     *int `json:"remaining"`
}

// HealthHandler 健康检查
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	lim := h.svc.Limiter()
	status := "healthy"

	rl := rateLimitStatus{
		MaxRequests:   lim.Limit(),
		WindowSeconds: int(lim.Window().Seconds()),
	}
	if remaining, err := h.svc.Remaining(r.Context(), ClientIdentity(r)); err != nil {
		logger.Warn("Rate limiter unavailable for health check", logger.ErrorField(err))
		status = "degraded"
	} else {
		rl.Remaining = &remaining
	}

	root := h.svc.StorageRoot()
	st, err := os.Stat(root)
	exists := err == nil && st.IsDir()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":               status,
		"downloads_dir":        root,
		"downloads_dir_exists": exists,
		"rate_limit":           rl,
	})
}

// NotFoundHandler 未知接口返回 JSON
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "Endpoint not found")
}

// MethodNotAllowedHandler 方法不被允许
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}
