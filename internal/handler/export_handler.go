package handler

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/response"
)

type downloadResolver interface {
	ResolveDownload(token string) (*os.File, string, error)
}

// ExportHandler serves rendered documents behind signed tokens.
type ExportHandler struct {
	downloads downloadResolver
}

// NewExportHandler constructs the handler.
func NewExportHandler(downloads downloadResolver) *ExportHandler {
	return &ExportHandler{downloads: downloads}
}

// Download godoc
// @Summary Download a rendered bulletin via signed token
// @Tags Bulletins
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, filename, err := h.downloads.ResolveDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document"))
		return
	}
	response.Attachment(c, filename, "application/pdf", info.Size(), file)
}
