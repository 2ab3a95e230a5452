// Package minio implements the cloudstorage driver for S3-compatible
// object stores, using minio-go.
//
// Containers map to buckets and blobs to object keys. Endpoint and
// credentials come from the caller; the driver owns one client session
// shared by everything it produces. Backend error codes are translated
// into the cloudstorage error taxonomy with the native diagnostic
// preserved.
//
//	d, err := minio.New(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	})
//
// Uploads stream through the shared transfer engine, so size caps,
// throttling and checksumming behave exactly as on the local driver;
// payloads above the part size use the backend's multipart protocol with
// failed sessions aborted rather than left dangling.
package minio
