package handlers

import (
	"errors"
	"io"
	"net/http"

	"justbecause/internal/domain"
	"justbecause/internal/storage"
)

// UploadImage accepts a multipart "file" field and stores it for the caller.
func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageBytes+64<<10)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			a.fail(w, r, domain.Invalid("file", "must be at most 2 MiB"))
			return
		}
		a.fail(w, r, domain.Invalid("file", "multipart field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxImageBytes+1))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	up, err := a.Files.SaveImage(r.Context(), a.currentUserID(r), data)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, up)
}
