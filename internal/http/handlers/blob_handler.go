package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/bounty-indexer/internal/interface/http/response"
	"github.com/ignatzorin/bounty-indexer/internal/storage"
)

// BlobHandler отдаёт документы из контентно-адресуемого хранилища.
type BlobHandler struct {
	blobs storage.BlobStore
}

// NewBlobHandler создаёт новый хэндлер.
func NewBlobHandler(blobs storage.BlobStore) *BlobHandler {
	return &BlobHandler{blobs: blobs}
}

// Get обрабатывает GET /api/blobs/:cid.
// Содержимое по CID не меняется, поэтому ответ кэшируется без ограничений.
func (h *BlobHandler) Get(c *gin.Context) {
	cid := c.Param("cid")
	if match := c.GetHeader("If-None-Match"); match != "" && match == `"`+cid+`"` {
		c.Status(http.StatusNotModified)
		return
	}

	obj, data, err := h.blobs.Get(c.Request.Context(), cid)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("ETag", `"`+obj.CID+`"`)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, obj.ContentType, data)
}
