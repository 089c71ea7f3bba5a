package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fincontrol/attachd/internal/storage"
)

// maxUploadBytes caps attachment size; invoices and statements are
// small documents, not datasets.
const maxUploadBytes = 64 << 20

type handlers struct {
	store         ObjectStore
	presignExpiry int
	log           zerolog.Logger
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	URL      string `json:"url,omitempty"`
	FileName string `json:"fileName,omitempty"`
	Key      string `json:"key,omitempty"`
	Error    string `json:"error,omitempty"`
}

type deleteRequest struct {
	FileURL string `json:"fileUrl"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type signedURLRequest struct {
	FileKey string `json:"fileKey"`
}

type signedURLResponse struct {
	Success   bool   `json:"success"`
	SignedURL string `json:"signedUrl,omitempty"`
	Error     string `json:"error,omitempty"`
}

// upload accepts multipart form data {file, folder} and streams the
// file into a freshly keyed object.
func (h *handlers) upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Error: "no file sent"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Error: "file too large"})
		return
	}
	folder := c.PostForm("folder")

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Error: "unreadable file: " + err.Error()})
		return
	}
	defer f.Close()
	payload, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Error: "unreadable file: " + err.Error()})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	res, err := h.store.Upload(c.Request.Context(), payload, contentType, folder, fileHeader.Filename)
	if err != nil {
		h.log.Error().Err(err).Str("folder", folder).Msg("upload failed")
		c.JSON(statusFor(err), uploadResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		Success:  true,
		URL:      res.URL,
		FileName: res.Name,
		Key:      res.Key,
	})
}

// delete removes the object behind a previously issued URL. Deleting
// an object that is already gone still reports success.
func (h *handlers) delete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FileURL == "" {
		c.JSON(http.StatusBadRequest, deleteResponse{Success: false, Error: "fileUrl is required"})
		return
	}

	if err := h.store.Delete(c.Request.Context(), req.FileURL); err != nil {
		h.log.Error().Err(err).Str("fileUrl", req.FileURL).Msg("delete failed")
		c.JSON(statusFor(err), deleteResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, deleteResponse{Success: true, Message: "file deleted"})
}

// signedURL returns a fresh time-limited download URL for an object
// key. Clients must request a new one for every view.
func (h *handlers) signedURL(c *gin.Context) {
	var req signedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FileKey == "" {
		c.JSON(http.StatusBadRequest, signedURLResponse{Success: false, Error: "fileKey is required"})
		return
	}

	signed, err := h.store.Presign(req.FileKey, h.presignExpiry)
	if err != nil {
		h.log.Error().Err(err).Str("fileKey", req.FileKey).Msg("presign failed")
		c.JSON(statusFor(err), signedURLResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, signedURLResponse{Success: true, SignedURL: signed})
}

// statusFor maps operation errors onto response codes: caller mistakes
// are 400s, provider rejections 502, transport trouble 504, anything
// else 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrForeignURL), errors.Is(err, storage.ErrEmptyKey):
		return http.StatusBadRequest
	default:
	}
	if _, ok := storage.AsRejection(err); ok {
		return http.StatusBadGateway
	}
	var te *storage.TransportError
	if errors.As(err, &te) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
