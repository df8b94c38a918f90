package main

import (
	"fmt"
	"log"
	"strings"

	"voxelrtp.ai/internal/persistence/auditmirror"
	persistlog "voxelrtp.ai/internal/persistence/log"
)

// buildAuditMirror reads RTP_AUDIT_MIRROR_* and returns nil when mirroring
// is off.
func buildAuditMirror(dataDir, process string, logger *log.Logger) (*auditmirror.Mirror, error) {
	if !envBool("RTP_AUDIT_MIRROR", false) {
		return nil, nil
	}
	cfg := auditmirror.BucketConfig{
		Endpoint:        envString("RTP_AUDIT_MIRROR_ENDPOINT", ""),
		Bucket:          envString("RTP_AUDIT_MIRROR_BUCKET", ""),
		AccessKeyID:     envString("RTP_AUDIT_MIRROR_ACCESS_KEY_ID", ""),
		SecretAccessKey: envString("RTP_AUDIT_MIRROR_SECRET_ACCESS_KEY", ""),
	}
	bucket, err := auditmirror.NewBucket(cfg)
	if err != nil {
		return nil, fmt.Errorf("RTP_AUDIT_MIRROR=true: %w", err)
	}
	return auditmirror.New(bucket, auditmirror.Options{
		DataDir: dataDir,
		Prefix:  strings.TrimSpace(envString("RTP_AUDIT_MIRROR_PREFIX", "")),
		Process: process,
		Workers: envInt("RTP_AUDIT_MIRROR_WORKERS", 2),
		Logger:  logger,
	}), nil
}

// auditWriterOptions shortens segments to one minute while mirroring so a
// lost process drops less history.
func auditWriterOptions(m *auditmirror.Mirror) persistlog.WriterOptions {
	if m == nil {
		return persistlog.WriterOptions{}
	}
	return persistlog.WriterOptions{RotateLayout: "2006-01-02-15-04", OnClose: m.Enqueue}
}
