package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mediagate/core/auth"
	"mediagate/logger"

	"github.com/gorilla/mux"
)

const adminSubject = "admin"

type loginRequest struct {
	Password string `json:"password"`
}

const adminDisabledMessage = "Admin login is disabled"

// LoginHandler 用管理员密码换取 token
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	// 默认 SECRET_KEY 是公开的，签出的 token 任何人都能伪造
	if !h.cfg.AdminEnabled() {
		writeMessage(w, http.StatusNotFound, adminDisabledMessage)
		return
	}

	var req loginRequest
	decodeBody(w, r, &req)

	ok, err := auth.VerifyAdmin(req.Password, h.cfg.AdminPasswordHash)
	if errors.Is(err, auth.ErrLoginDisabled) {
		writeMessage(w, http.StatusNotFound, adminDisabledMessage)
		return
	}
	if !ok {
		logger.Warn("[Login] 管理员密码错误", logger.String("client", ClientIdentity(r)))
		writeMessage(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, err := auth.IssueToken(h.cfg.SecretKey, adminSubject, h.cfg.AdminTokenTTL)
	if err != nil {
		logger.Error("[Login] 生成 token 失败", logger.ErrorField(err))
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"token":      token,
		"expires_in": int(h.cfg.AdminTokenTTL.Seconds()),
	})
}

// AdminMiddleware 校验 Bearer token
func (h *APIHandler) AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.AdminEnabled() {
			writeMessage(w, http.StatusNotFound, adminDisabledMessage)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeMessage(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeMessage(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := auth.ParseToken(h.cfg.SecretKey, strings.TrimSpace(parts[1]))
		if err != nil {
			logger.Debug("Rejected admin token", logger.ErrorField(err))
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), adminSubjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func adminFrom(ctx context.Context) string {
	sub, _ := ctx.Value(adminSubjectKey).(string)
	return sub
}

// HistoryHandler 最近的下载记录
func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	counts, err := h.svc.HistoryCounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"records": records,
		"counts":  counts,
	})
}

// ResetLimitHandler 清除某个客户端的限流窗口
func (h *APIHandler) ResetLimitHandler(w http.ResponseWriter, r *http.Request) {
	client, err := url.PathUnescape(mux.Vars(r)["client"])
	if err != nil || client == "" {
		writeMessage(w, http.StatusBadRequest, "Client is required")
		return
	}

	if err := h.svc.ResetClient(r.Context(), client); err != nil {
		logger.Error("Failed to reset rate limit", logger.String("client", client), logger.ErrorField(err))
		writeMessage(w, http.StatusServiceUnavailable, "Rate limiter unavailable")
		return
	}
	logger.Info("Rate limit reset",
		logger.String("client", client),
		logger.String("by", adminFrom(r.Context())))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Rate limit reset",
		"client":  client,
	})
}
