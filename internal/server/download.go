package server

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/job"
)

// DownloadAll handles GET /api/video/jobs/{id}/download-all. It streams a
// zip of every finished clip; files that vanished from disk are skipped.
func (h *Handlers) DownloadAll(w http.ResponseWriter, r *http.Request) {
	found, ok := h.lookupJob(w, r)
	if !ok {
		return
	}

	var paths []string
	for _, u := range found.Units {
		if u.Status == job.StatusDone && u.ResultPath != "" {
			paths = append(paths, u.ResultPath)
		}
	}
	if len(paths) == 0 {
		writeError(w, http.StatusBadRequest, "no completed videos to download", "NO_COMPLETED_VIDEOS")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=videolab_%s.zip", found.ID))
	w.WriteHeader(http.StatusOK)

	zw := zip.NewWriter(w)
	for _, p := range paths {
		if err := addToZip(zw, p); err != nil {
			h.logger.Warn("skipping clip in archive",
				slog.String("job_id", found.ID),
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := zw.Close(); err != nil {
		h.logger.Error("failed to finish archive",
			slog.String("job_id", found.ID),
			slog.String("error", err.Error()),
		)
	}
}

func addToZip(zw *zip.Writer, path string) error {
	f, err := os.Open(path) // #nosec G304 - path comes from a finished unit
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}
