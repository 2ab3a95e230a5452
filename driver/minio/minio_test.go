package minio_test

import (
	"context"
	"testing"

	"github.com/anand870/cloudstorage"
	"github.com/anand870/cloudstorage/driver/minio"
	"github.com/anand870/cloudstorage/drivertest"
	"github.com/anand870/cloudstorage/transfer"
)

// TestDriverIntegration requires a running MinIO instance on the default
// local endpoint. Skip if not available.
func TestDriverIntegration(t *testing.T) {
	cfg := minio.Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}

	newDriver := func(t *testing.T) cloudstorage.Driver {
		d, err := minio.New(cfg,
			minio.WithEngine(transfer.New(transfer.WithMaxBlobSize(64 << 20))),
		)
		if err != nil {
			t.Skipf("MinIO client creation failed: %v", err)
		}
		// Probe reachability before committing to the suite.
		probe := d.Containers(context.Background())
		for _, err := range probe {
			if err != nil {
				t.Skipf("MinIO not available: %v", err)
			}
			break
		}
		return d
	}

	drivertest.Run(t, newDriver, drivertest.Config{
		// Above the 1000-key listing page size, to prove the iterator
		// crosses page boundaries.
		ListingBlobs: 1500,
		StrictNames:  true,
	})
}
