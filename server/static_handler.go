package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StaticHandler 提供前端静态文件，未知路径回落到 index.html
type StaticHandler struct {
	dir   string
	files http.Handler
}

// NewStaticHandler 创建 StaticHandler 实例
func NewStaticHandler(dir string) *StaticHandler {
	return &StaticHandler{dir: dir, files: http.FileServer(http.Dir(dir))}
}

// ServeHTTP 实现 http.Handler 接口
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
		NotFoundHandler(w, r)
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	if clean != "/" {
		st, err := os.Stat(filepath.Join(h.dir, filepath.FromSlash(clean)))
		if err != nil || st.IsDir() {
			if path.Ext(clean) != "" {
				NotFoundHandler(w, r)
				return
			}
			// 前端路由
			http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
			return
		}
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	h.files.ServeHTTP(w, r)
}
