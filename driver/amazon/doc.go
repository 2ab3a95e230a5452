// Package amazon implements the cloudstorage driver for Amazon S3 using
// aws-sdk-go-v2.
//
// It speaks the same contract as driver/minio but through the official
// SDK, which matters for AWS-specific deployments: credential chains,
// path-style flags for S3-compatible gateways, and the SDK's multipart
// upload manager. Payloads above the engine's multipart threshold upload
// in parts; a failed multipart session is aborted on the backend rather
// than left as orphaned storage.
//
//	d, err := amazon.New(ctx, amazon.Config{
//	    Region:    "us-east-1",
//	    AccessKey: "...",
//	    SecretKey: "...",
//	})
package amazon
