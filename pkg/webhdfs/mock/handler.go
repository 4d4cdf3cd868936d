package mock

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Ratio1/hdfs_crud_go/internal/webhdfsapi"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs"
)

// dataNodeParam marks the second step of a redirected operation.
const dataNodeParam = "datanode"

// Handler serves m over the WebHDFS REST protocol. The same server plays both
// NameNode and DataNode: CREATE, APPEND and OPEN are redirected to the same
// path with datanode=true, or answered with a Location document when the
// client sends noredirect=true.
func Handler(m *Mock) http.Handler {
	return &handler{fs: m}
}

type handler struct {
	fs *Mock
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, webhdfs.PathPrefix) {
		writeRemoteError(w, webhdfs.NewRemoteError(http.StatusNotFound, "IllegalArgumentException", "unknown path "+r.URL.Path))
		return
	}
	p := normalizePath(strings.TrimPrefix(r.URL.Path, webhdfs.PathPrefix))
	q := r.URL.Query()
	op := strings.ToUpper(q.Get("op"))
	ctx := r.Context()

	if want, ok := opMethods[op]; !ok || want != r.Method {
		writeRemoteError(w, webhdfs.NewRemoteError(http.StatusBadRequest, "IllegalArgumentException",
			"Invalid value for webhdfs parameter \"op\": "+r.Method+" "+q.Get("op")))
		return
	}
	dataNode := q.Get(dataNodeParam) == "true"

	switch op {
	case "GETFILESTATUS":
		st, err := h.fs.GetFileStatus(ctx, p)
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, webhdfsapi.KeyFileStatus, st)

	case "LISTSTATUS":
		list, err := h.fs.ListStatus(ctx, p)
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, webhdfsapi.KeyFileStatuses, map[string]any{"FileStatus": list})

	case "MKDIRS":
		ok, err := h.fs.Mkdirs(ctx, p, q.Get("permission"))
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, webhdfsapi.KeyBoolean, ok)

	case "DELETE":
		ok, err := h.fs.Delete(ctx, p, q.Get("recursive") == "true")
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, webhdfsapi.KeyBoolean, ok)

	case "CREATE":
		if !dataNode {
			h.redirect(w, r)
			return
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeRemoteError(w, webhdfs.NewRemoteError(http.StatusBadRequest, "IOException", err.Error()))
			return
		}
		opts, err := createOptions(q)
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		if err := h.fs.Create(ctx, p, data, opts); err != nil {
			writeRemoteError(w, err)
			return
		}
		w.Header().Set("Location", "hdfs://"+r.Host+p)
		w.WriteHeader(http.StatusCreated)

	case "APPEND":
		if !dataNode {
			h.redirect(w, r)
			return
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeRemoteError(w, webhdfs.NewRemoteError(http.StatusBadRequest, "IOException", err.Error()))
			return
		}
		if err := h.fs.Append(ctx, p, data); err != nil {
			writeRemoteError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)

	case "OPEN":
		if !dataNode {
			// Resolve missing paths on the NameNode like HDFS does.
			if _, err := h.fs.GetFileStatus(ctx, p); err != nil {
				writeRemoteError(w, err)
				return
			}
			h.redirect(w, r)
			return
		}
		data, err := h.fs.Open(ctx, p)
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

var opMethods = map[string]string{
	"GETFILESTATUS": http.MethodGet,
	"LISTSTATUS":    http.MethodGet,
	"OPEN":          http.MethodGet,
	"MKDIRS":        http.MethodPut,
	"CREATE":        http.MethodPut,
	"APPEND":        http.MethodPost,
	"DELETE":        http.MethodDelete,
}

func (h *handler) redirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	noRedirect := q.Get("noredirect") == "true"
	q.Del("noredirect")
	q.Set(dataNodeParam, "true")

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	loc := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}

	if noRedirect {
		writeEnvelope(w, http.StatusOK, webhdfsapi.KeyLocation, loc.String())
		return
	}
	w.Header().Set("Location", loc.String())
	w.WriteHeader(http.StatusTemporaryRedirect)
}

func createOptions(q url.Values) (webhdfs.CreateOptions, error) {
	opts := webhdfs.CreateOptions{
		Overwrite:  q.Get("overwrite") == "true",
		Permission: q.Get("permission"),
	}
	if raw := q.Get("replication"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return opts, webhdfs.NewRemoteError(http.StatusBadRequest, "IllegalArgumentException", "invalid replication "+raw)
		}
		opts.Replication = n
	}
	if raw := q.Get("blocksize"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return opts, webhdfs.NewRemoteError(http.StatusBadRequest, "IllegalArgumentException", "invalid blocksize "+raw)
		}
		opts.BlockSize = n
	}
	return opts, nil
}

func writeEnvelope(w http.ResponseWriter, status int, key string, v any) {
	data, err := webhdfsapi.Encode(key, v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeRemoteError(w http.ResponseWriter, err error) {
	var remote *webhdfs.RemoteError
	if !errors.As(err, &remote) {
		remote = webhdfs.NewRemoteError(http.StatusInternalServerError, "RuntimeException", err.Error())
	}
	status := remote.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeEnvelope(w, status, webhdfsapi.KeyRemoteException, webhdfsapi.RemoteException{
		Exception:     remote.Exception,
		JavaClassName: remote.JavaClassName,
		Message:       remote.Message,
	})
}
