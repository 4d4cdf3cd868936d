// Package webhdfs exposes a client for the HDFS WebHDFS REST API served by
// the NameNode (default port 9870). Paths are absolute HDFS paths; every
// request is issued as the Endpoint user through the user.name parameter.
//
// Writes follow the two-step protocol: the NameNode answers CREATE/APPEND with
// a DataNode location and the payload is sent there. HDFS has no conditional
// writes, so PutOptions.IfETagMatch is enforced client side by comparing the
// FileStatus version token right before the write.
package webhdfs
