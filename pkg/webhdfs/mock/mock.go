// Package mock provides an in-memory HDFS namespace. Mock implements
// webhdfs.Backend for in-process use and Handler serves it over the WebHDFS
// REST protocol, including the NameNode to DataNode redirect step.
package mock

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Ratio1/hdfs_crud_go/internal/devseed"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs"
)

const (
	defaultPermission     = "755"
	defaultFilePermission = "644"
	defaultBlockSize      = 128 << 20
	defaultReplication    = 3
	firstFileID           = 16385
)

type node struct {
	dir         bool
	data        []byte
	fileID      int64
	modTime     time.Time
	accessTime  time.Time
	permission  string
	replication int
	blockSize   int64
}

// Mock implements an in-memory HDFS namespace for tests and sandboxing.
type Mock struct {
	mu     sync.RWMutex
	nodes  map[string]*node
	nextID int64
	owner  string
	group  string
	now    func() time.Time
	ops    map[string]int
}

// Option configures a Mock.
type Option func(*Mock)

// WithClock overrides the time source used for modification times.
func WithClock(now func() time.Time) Option {
	return func(m *Mock) {
		if now != nil {
			m.now = now
		}
	}
}

// WithOwner sets the owner reported for every path.
func WithOwner(owner, group string) Option {
	return func(m *Mock) {
		m.owner = owner
		m.group = group
	}
}

// New constructs a namespace holding only the root directory.
func New(opts ...Option) *Mock {
	m := &Mock{
		nodes:  make(map[string]*node),
		nextID: firstFileID,
		owner:  "root",
		group:  "supergroup",
		now: func() time.Time {
			return time.Now().UTC()
		},
		ops: make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.nodes["/"] = m.newNode(true, nil, defaultPermission)
	return m
}

// Seed loads paths from seed entries, creating parent directories.
func (m *Mock) Seed(entries []devseed.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		p := normalizePath(e.Path)
		if e.Dir {
			if err := m.mkdirsLocked(p, e.Permission); err != nil {
				return fmt.Errorf("mock webhdfs: seed %s: %w", p, err)
			}
			continue
		}
		data, err := e.Data()
		if err != nil {
			return err
		}
		if err := m.createLocked(p, data, webhdfs.CreateOptions{Overwrite: true, Permission: e.Permission}); err != nil {
			return fmt.Errorf("mock webhdfs: seed %s: %w", p, err)
		}
	}
	return nil
}

// OpCount returns how many times op (e.g. "CREATE") was executed.
func (m *Mock) OpCount(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ops[op]
}

// WriteCount returns the number of mutating operations executed.
func (m *Mock) WriteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ops["CREATE"] + m.ops["APPEND"] + m.ops["MKDIRS"] + m.ops["DELETE"]
}

func (m *Mock) GetFileStatus(ctx context.Context, p string) (*webhdfs.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = normalizePath(p)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops["GETFILESTATUS"]++

	n, ok := m.nodes[p]
	if !ok {
		return nil, notFound(p)
	}
	st := m.statusLocked(p, n, "")
	return &st, nil
}

func (m *Mock) ListStatus(ctx context.Context, p string) ([]webhdfs.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = normalizePath(p)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops["LISTSTATUS"]++

	n, ok := m.nodes[p]
	if !ok {
		return nil, notFound(p)
	}
	if !n.dir {
		return []webhdfs.FileStatus{m.statusLocked(p, n, "")}, nil
	}
	children := m.childrenLocked(p)
	out := make([]webhdfs.FileStatus, 0, len(children))
	for _, child := range children {
		out = append(out, m.statusLocked(child, m.nodes[child], path.Base(child)))
	}
	return out, nil
}

func (m *Mock) Mkdirs(ctx context.Context, p string, permission string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops["MKDIRS"]++
	if err := m.mkdirsLocked(normalizePath(p), permission); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Mock) Create(ctx context.Context, p string, data []byte, opts webhdfs.CreateOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops["CREATE"]++
	return m.createLocked(normalizePath(p), data, opts)
}

func (m *Mock) Append(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p = normalizePath(p)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops["APPEND"]++

	n, ok := m.nodes[p]
	if !ok {
		return notFound(p)
	}
	if n.dir {
		return webhdfs.NewRemoteError(http.StatusNotFound, "FileNotFoundException", "Failed to append to non-existent file "+p+" (is a directory)")
	}
	n.data = append(n.data, data...)
	n.modTime = m.tick(n.modTime)
	return nil
}

func (m *Mock) Open(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = normalizePath(p)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops["OPEN"]++

	n, ok := m.nodes[p]
	if !ok {
		return nil, notFound(p)
	}
	if n.dir {
		return nil, webhdfs.NewRemoteError(http.StatusNotFound, "FileNotFoundException", "Path is not a file: "+p)
	}
	n.accessTime = m.now()
	return append([]byte(nil), n.data...), nil
}

func (m *Mock) Delete(ctx context.Context, p string, recursive bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p = normalizePath(p)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops["DELETE"]++

	if p == "/" {
		return false, nil
	}
	n, ok := m.nodes[p]
	if !ok {
		return false, nil
	}
	if n.dir {
		children := m.descendantsLocked(p)
		if len(children) > 0 && !recursive {
			return false, webhdfs.NewRemoteError(http.StatusForbidden, "PathIsNotEmptyDirectoryException", "`"+p+" is non empty': Directory is not empty")
		}
		for _, c := range children {
			delete(m.nodes, c)
		}
	}
	delete(m.nodes, p)
	m.touchParentLocked(p)
	return true, nil
}

func (m *Mock) mkdirsLocked(p string, permission string) error {
	if permission == "" {
		permission = defaultPermission
	}
	var missing []string
	for cur := p; ; cur = path.Dir(cur) {
		n, ok := m.nodes[cur]
		if ok {
			if !n.dir {
				if cur == p {
					return webhdfs.NewRemoteError(http.StatusForbidden, "FileAlreadyExistsException", "Path is not a directory: "+p)
				}
				return webhdfs.NewRemoteError(http.StatusForbidden, "ParentNotDirectoryException", "Parent path is not a directory: "+cur)
			}
			break
		}
		missing = append(missing, cur)
		if cur == "/" {
			break
		}
	}
	for i := len(missing) - 1; i >= 0; i-- {
		m.nodes[missing[i]] = m.newNode(true, nil, permission)
		m.touchParentLocked(missing[i])
	}
	return nil
}

func (m *Mock) createLocked(p string, data []byte, opts webhdfs.CreateOptions) error {
	if p == "/" {
		return webhdfs.NewRemoteError(http.StatusForbidden, "FileAlreadyExistsException", "/ already exists as a directory")
	}
	if existing, ok := m.nodes[p]; ok {
		if existing.dir {
			return webhdfs.NewRemoteError(http.StatusForbidden, "FileAlreadyExistsException", p+" already exists as a directory")
		}
		if !opts.Overwrite {
			return webhdfs.NewRemoteError(http.StatusForbidden, "FileAlreadyExistsException", p+" for client already exists")
		}
	}
	if parent, ok := m.nodes[path.Dir(p)]; ok && !parent.dir {
		return webhdfs.NewRemoteError(http.StatusForbidden, "ParentNotDirectoryException", "Parent path is not a directory: "+path.Dir(p))
	}
	if err := m.mkdirsLocked(path.Dir(p), ""); err != nil {
		return err
	}
	perm := opts.Permission
	if perm == "" {
		perm = defaultFilePermission
	}
	n := m.newNode(false, append([]byte(nil), data...), perm)
	if opts.Replication > 0 {
		n.replication = opts.Replication
	}
	if opts.BlockSize > 0 {
		n.blockSize = opts.BlockSize
	}
	m.nodes[p] = n
	m.touchParentLocked(p)
	return nil
}

func (m *Mock) newNode(dir bool, data []byte, permission string) *node {
	now := m.now()
	n := &node{
		dir:        dir,
		data:       data,
		fileID:     m.nextID,
		modTime:    now,
		accessTime: now,
		permission: permission,
	}
	m.nextID++
	if !dir {
		n.replication = defaultReplication
		n.blockSize = defaultBlockSize
	}
	return n
}

// tick returns a modification time strictly after prev at millisecond
// resolution so consecutive appends always change the version token.
func (m *Mock) tick(prev time.Time) time.Time {
	now := m.now()
	if !now.Truncate(time.Millisecond).After(prev.Truncate(time.Millisecond)) {
		now = prev.Truncate(time.Millisecond).Add(time.Millisecond)
	}
	return now
}

func (m *Mock) touchParentLocked(p string) {
	if parent, ok := m.nodes[path.Dir(p)]; ok && p != "/" {
		parent.modTime = m.now()
	}
}

func (m *Mock) childrenLocked(dir string) []string {
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	var out []string
	for p := range m.nodes {
		if p == dir || !strings.HasPrefix(p, prefix) {
			continue
		}
		if strings.Contains(strings.TrimPrefix(p, prefix), "/") {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (m *Mock) descendantsLocked(dir string) []string {
	prefix := dir + "/"
	var out []string
	for p := range m.nodes {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

func (m *Mock) statusLocked(p string, n *node, suffix string) webhdfs.FileStatus {
	st := webhdfs.FileStatus{
		PathSuffix:       suffix,
		Type:             webhdfs.TypeFile,
		Length:           int64(len(n.data)),
		Owner:            m.owner,
		Group:            m.group,
		Permission:       n.permission,
		AccessTime:       n.accessTime.UnixMilli(),
		ModificationTime: n.modTime.UnixMilli(),
		BlockSize:        n.blockSize,
		Replication:      n.replication,
		FileID:           n.fileID,
	}
	if n.dir {
		st.Type = webhdfs.TypeDirectory
		st.Length = 0
		st.AccessTime = 0
		st.ChildrenNum = len(m.childrenLocked(p))
	}
	return st
}

func notFound(p string) error {
	return webhdfs.NewRemoteError(http.StatusNotFound, "FileNotFoundException", "File does not exist: "+p)
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
