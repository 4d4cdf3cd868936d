package webhdfs

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// FileType is the "type" attribute of a FileStatus.
type FileType string

const (
	TypeFile      FileType = "FILE"
	TypeDirectory FileType = "DIRECTORY"
	TypeSymlink   FileType = "SYMLINK"
)

// FileStatus mirrors the WebHDFS FileStatus JSON object.
type FileStatus struct {
	PathSuffix       string   `json:"pathSuffix"`
	Type             FileType `json:"type"`
	Length           int64    `json:"length"`
	Owner            string   `json:"owner"`
	Group            string   `json:"group"`
	Permission       string   `json:"permission"`
	AccessTime       int64    `json:"accessTime"`
	ModificationTime int64    `json:"modificationTime"`
	BlockSize        int64    `json:"blockSize"`
	Replication      int      `json:"replication"`
	FileID           int64    `json:"fileId"`
	ChildrenNum      int      `json:"childrenNum"`
}

// IsDir reports whether the status describes a directory.
func (s FileStatus) IsDir() bool {
	return s.Type == TypeDirectory
}

// ModTime converts ModificationTime (milliseconds since epoch) to time.Time.
func (s FileStatus) ModTime() time.Time {
	return time.UnixMilli(s.ModificationTime).UTC()
}

// ETag is the version token of a file. An overwrite allocates a new inode
// (fileId); an append changes length and modification time.
func (s FileStatus) ETag() string {
	return strconv.FormatInt(s.FileID, 10) + "-" +
		strconv.FormatInt(s.Length, 10) + "-" +
		strconv.FormatInt(s.ModificationTime, 10)
}

// PutOptions control how Write stores data.
type PutOptions struct {
	// Overwrite replaces existing content unconditionally (last writer wins).
	Overwrite bool
	// IfAbsent fails with ErrPreconditionFailed when the path already exists.
	IfAbsent bool
	// IfETagMatch fails with ErrPreconditionFailed unless the current status
	// ETag equals the token. The check runs client side right before the
	// write, so it narrows the lost-update window without closing it.
	IfETagMatch string
	Permission  string
	Replication int
	BlockSize   int64
}

// CreateOptions are the raw CREATE parameters handed to a Backend.
type CreateOptions struct {
	Overwrite   bool
	Permission  string
	Replication int
	BlockSize   int64
}

var (
	// ErrNotFound indicates the requested path is missing.
	ErrNotFound = errors.New("webhdfs: not found")
	// ErrAlreadyExists indicates the path exists and may not be replaced.
	ErrAlreadyExists = errors.New("webhdfs: already exists")
	// ErrNotDirectory indicates a directory was expected.
	ErrNotDirectory = errors.New("webhdfs: not a directory")
	// ErrPermissionDenied signals an AccessControlException.
	ErrPermissionDenied = errors.New("webhdfs: permission denied")
	// ErrPreconditionFailed signals an optimistic concurrency failure.
	ErrPreconditionFailed = errors.New("webhdfs: precondition failed")
	// ErrUnreachable indicates the NameNode never answered the liveness check.
	ErrUnreachable = errors.New("webhdfs: namenode unreachable")
)

var javaClassNames = map[string]string{
	"FileNotFoundException":            "java.io.FileNotFoundException",
	"FileAlreadyExistsException":       "org.apache.hadoop.fs.FileAlreadyExistsException",
	"ParentNotDirectoryException":      "org.apache.hadoop.fs.ParentNotDirectoryException",
	"PathIsNotEmptyDirectoryException": "org.apache.hadoop.fs.PathIsNotEmptyDirectoryException",
	"AccessControlException":           "org.apache.hadoop.security.AccessControlException",
	"SecurityException":                "java.lang.SecurityException",
	"IllegalArgumentException":         "java.lang.IllegalArgumentException",
	"UnsupportedOperationException":    "java.lang.UnsupportedOperationException",
	"RetriableException":               "org.apache.hadoop.ipc.RetriableException",
	"StandbyException":                 "org.apache.hadoop.ipc.StandbyException",
	"SafeModeException":                "org.apache.hadoop.hdfs.server.namenode.SafeModeException",
	"RuntimeException":                 "java.lang.RuntimeException",
	"IOException":                      "java.io.IOException",
}

// RemoteError is a RemoteException reported by the NameNode or a DataNode.
type RemoteError struct {
	StatusCode    int
	Exception     string
	JavaClassName string
	Message       string

	cause error
}

// NewRemoteError builds a RemoteError, filling JavaClassName for known exceptions.
func NewRemoteError(status int, exception, message string) *RemoteError {
	return &RemoteError{
		StatusCode:    status,
		Exception:     exception,
		JavaClassName: javaClassNames[exception],
		Message:       message,
	}
}

func (e *RemoteError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Exception == "" {
		return fmt.Sprintf("webhdfs: status=%d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("webhdfs: %s (status=%d): %s", e.Exception, e.StatusCode, e.Message)
}

// Unwrap exposes the transport error the RemoteError was decoded from.
func (e *RemoteError) Unwrap() error {
	return e.cause
}

// Is maps Hadoop exception names onto the package sentinels.
func (e *RemoteError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrNotFound:
		return e.Exception == "FileNotFoundException" ||
			(e.Exception == "" && e.StatusCode == http.StatusNotFound)
	case ErrAlreadyExists:
		return e.Exception == "FileAlreadyExistsException"
	case ErrNotDirectory:
		return e.Exception == "ParentNotDirectoryException"
	case ErrPermissionDenied:
		return e.Exception == "AccessControlException" ||
			e.Exception == "SecurityException" ||
			(e.Exception == "" && e.StatusCode == http.StatusUnauthorized)
	}
	return false
}

// Retryable reports whether the NameNode asked the caller to try again later.
func (e *RemoteError) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Exception {
	case "RetriableException", "StandbyException", "SafeModeException":
		return true
	}
	return e.StatusCode >= 500
}
