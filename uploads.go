package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/middlewares"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"github.com/sirupsen/logrus"
)

const (
	maxUploadSizeBytes int64 = 5 * 1024 * 1024
	maxReceiptWidth          = 1600
)

var receiptMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

type receiptUploadResponse struct {
	ObjectKey         string `json:"object_key"`
	DepositReceiptUrl string `json:"deposit_receipt_url"`
	ContentType       string `json:"content_type"`
	Size              int    `json:"size"`
}

// uploadDepositReceipt stores a scanned deposit slip and returns the URL to
// pass as deposit_receipt_url when recording the deposit.
func (s *server) uploadDepositReceipt(c *gin.Context) {
	actor, station, ok := s.stationScope(c)
	if !ok {
		return
	}
	if !models.CanSettleHandover(actor.Role) {
		middlewares.RespondError(c, fmt.Errorf("%w: only owners upload deposit receipts", utils.ErrUnauthorized))
		return
	}
	if s.store == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "receipt storage is not configured"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		middlewares.RespondError(c, fmt.Errorf("%w: multipart field \"file\" is required", utils.ErrValidation))
		return
	}
	if fileHeader.Size > maxUploadSizeBytes {
		middlewares.RespondError(c, fmt.Errorf("%w: file size exceeds 5MB limit", utils.ErrValidation))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	if int64(len(data)) > maxUploadSizeBytes {
		middlewares.RespondError(c, fmt.Errorf("%w: file size exceeds 5MB limit", utils.ErrValidation))
		return
	}

	contentType := mimetype.Detect(data).String()
	if !receiptMimeTypes[contentType] {
		middlewares.RespondError(c, fmt.Errorf("%w: unsupported file type %s", utils.ErrValidation, contentType))
		return
	}
	if contentType != "application/pdf" {
		data, contentType, err = normalizeReceiptImage(data)
		if err != nil {
			middlewares.RespondError(c, fmt.Errorf("%w: unreadable image: %v", utils.ErrValidation, err))
			return
		}
	}

	objectKey := receiptObjectKey(station.ID, contentType)
	if err := s.store.Put(c.Request.Context(), objectKey, data, contentType); err != nil {
		logUploadError(s.logger, err, objectKey, c)
		middlewares.RespondError(c, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"station_id": station.ID,
		"user_id":    actor.ID,
		"mime_type":  contentType,
		"size":       len(data),
		"object_key": objectKey,
	}).Info("[upload.receipt]")

	middlewares.RespondOK(c, http.StatusCreated, receiptUploadResponse{
		ObjectKey:         objectKey,
		DepositReceiptUrl: utils.BuildObjectAccessURL(objectKey),
		ContentType:       contentType,
		Size:              len(data),
	})
}

// normalizeReceiptImage re-encodes a photo as JPEG, scaled down to maxReceiptWidth.
func normalizeReceiptImage(data []byte) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", err
	}
	if img.Bounds().Dx() > maxReceiptWidth {
		img = imaging.Resize(img, maxReceiptWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/jpeg", nil
}

func receiptObjectKey(stationId int, contentType string) string {
	return path.Join("stations", strconv.Itoa(stationId), "deposit-receipts", uuid.New().String()+extensionFromMimeType(contentType))
}

func extensionFromMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	default:
		return ""
	}
}

func logUploadError(logger *logrus.Logger, err error, objectKey string, c *gin.Context) {
	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	logger.WithFields(logrus.Fields{
		"error":          err.Error(),
		"object_key":     objectKey,
		"correlation_id": cid,
	}).Error("[upload.error]")
}
