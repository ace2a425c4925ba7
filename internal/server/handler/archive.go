package handler

import (
	"errors"
	"net/http"

	"github.com/ktrade/whaleflow/internal/domain"
)

// ArchiveHandler browses long-term journal storage and restores archived
// files back into the local journal directory.
type ArchiveHandler struct {
	browser    domain.ArchiveBrowser
	journalDir string
}

// NewArchiveHandler creates an ArchiveHandler restoring into journalDir.
func NewArchiveHandler(browser domain.ArchiveBrowser, journalDir string) *ArchiveHandler {
	return &ArchiveHandler{browser: browser, journalDir: journalDir}
}

// ListArchive returns metadata for every archived journal file.
func (h *ArchiveHandler) ListArchive(w http.ResponseWriter, r *http.Request) {
	files, err := h.browser.ListArchived(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to list archive")
		return
	}
	if files == nil {
		files = []domain.ArchivedFile{}
	}
	writeJSON(w, http.StatusOK, files)
}

// RestoreArchive downloads the archived file named by the "name" query
// parameter into the journal directory.
func (h *ArchiveHandler) RestoreArchive(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing name parameter")
		return
	}

	localPath, err := h.browser.Restore(r.Context(), name, h.journalDir)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archived file not found")
			return
		}
		writeError(w, http.StatusBadGateway, "failed to restore archived file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"restored": localPath})
}
