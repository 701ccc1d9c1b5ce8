package bundle

import (
	"net/http"
	"path"
	"path/filepath"
)

// LocalFileServer reads bundle files from a build directory on every request,
// so a rebuilt extension is picked up without restarting.
type LocalFileServer struct {
	root string
}

func NewLocalFileServer(root string) *LocalFileServer {
	return &LocalFileServer{root: root}
}

func (s *LocalFileServer) Source() string {
	return "dir:" + s.root
}

func (s *LocalFileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, name)
}
