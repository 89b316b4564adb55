package metrics

// Label values shared by instrumented packages and InitializeMetrics.
var (
	Volumes          = []string{"originals", "thumbnails", "memories", "assets", "unknown"}
	RetryOperations  = []string{"stat", "open", "readdir", "write"}
	MediaTypes       = []string{"image", "video"}
	DeriveResults    = []string{"ok", "unsupported", "decode", "encode", "sampler"}
	ReconcileTrigger = []string{"http", "schedule", "watcher", "cli"}
	TaskStatuses     = []string{"starting", "processing", "complete", "failed"}
	AIServices       = []string{"caption", "narrate", "background"}
)

// InitializeMetrics pre-populates the expected label combinations so every
// series is exported from the first scrape.
func InitializeMetrics() {
	for _, op := range RetryOperations {
		for _, vol := range Volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, t := range MediaTypes {
		for _, r := range DeriveResults {
			ThumbnailDerivationsTotal.WithLabelValues(t, r)
		}
		ThumbnailDerivationDuration.WithLabelValues(t)
		LibraryRecords.WithLabelValues(t)
	}
	for _, d := range []string{"imaging", "vips", "ffmpeg"} {
		ThumbnailDecoderUsed.WithLabelValues(d)
	}
	for _, r := range []string{"resized", "raw", "fallback"} {
		ResizedOriginalsTotal.WithLabelValues(r)
	}
	for _, r := range []string{"success", "skipped", "failed"} {
		UploadsTotal.WithLabelValues(r)
	}

	for _, backend := range []string{"json", "sqlite"} {
		for _, op := range []string{"load", "save"} {
			for _, status := range []string{"ok", "not_found", "corrupt", "error"} {
				MetadataStoreOperations.WithLabelValues(backend, op, status)
			}
			MetadataStoreDuration.WithLabelValues(backend, op)
		}
	}
	for _, s := range []string{"ok", "not_found", "corrupt"} {
		SettingsLoads.WithLabelValues(s)
	}

	for _, trigger := range ReconcileTrigger {
		ReconcileRunsTotal.WithLabelValues(trigger)
	}
	for _, o := range []string{"created", "updated", "restored", "skipped", "unsupported", "failed"} {
		ReconcileFilesTotal.WithLabelValues(o)
	}

	for _, op := range []string{"create", "write", "remove", "rename", "chmod"} {
		WatcherEventsTotal.WithLabelValues(op)
	}

	for _, s := range TaskStatuses {
		TaskTransitionsTotal.WithLabelValues(s)
	}
	for _, s := range []string{"complete", "failed"} {
		TaskDuration.WithLabelValues(s)
	}

	for _, svc := range AIServices {
		for _, status := range []string{"success", "error", "throttled"} {
			AIRequestsTotal.WithLabelValues(svc, status)
		}
		AIRequestDuration.WithLabelValues(svc)
	}
	for _, reason := range []string{"caption_error", "denylisted", "narrate_error"} {
		MemoryPhotosRejected.WithLabelValues(reason)
	}
}
