// Package hdfs_sdk bootstraps WebHDFS clients. NewFromEnv and NewClient pick
// between the HTTP client and the in-memory mock following the runtime-mode
// contract of HDFS_RUNTIME_MODE, HDFS_NAMENODE_URL, HDFS_USER and
// HDFS_MOCK_SEED. Connect waits for a cold-starting NameNode to answer the
// liveness check, and EnsureNamespace prepares the working directory.
package hdfs_sdk
