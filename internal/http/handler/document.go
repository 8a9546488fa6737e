package handler

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"docregistry/internal/model"
	"docregistry/internal/service"
)

type messageResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

// withActor resolves the authenticated user before calling next.
func withActor(next func(c *fiber.Ctx, actor model.User) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := actorFromCtx(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "MISSING_TOKEN", "bearer token required")
		}
		return next(c, actor)
	}
}

// UploadDocument creates a document record.
// @Summary Upload a document record
// @Description Admins and editors may upload. uploaded_by defaults to the caller; only admins may set it to someone else.
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param document body model.Document true "Document record"
// @Success 201 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Router /documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return withActor(func(c *fiber.Ctx, actor model.User) error {
		var doc model.Document
		if err := json.Unmarshal(c.Body(), &doc); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON document record")
		}

		stored, err := docSvc.Upload(c.UserContext(), actor, doc)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(stored)
	})
}

// ListDocuments returns all document records.
// @Summary List documents
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Document
// @Failure 401 {object} errorPayload
// @Router /documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return withActor(func(c *fiber.Ctx, actor model.User) error {
		docs, err := docSvc.List(c.UserContext(), actor)
		if err != nil {
			return writeServiceError(c, err)
		}
		if docs == nil {
			docs = []model.Document{}
		}
		return c.JSON(docs)
	})
}

// GetDocument returns a single document record.
// @Summary Get a document
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} model.Document
// @Failure 401 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return withActor(func(c *fiber.Ctx, actor model.User) error {
		doc, err := docSvc.Get(c.UserContext(), actor, c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	})
}

// DeleteDocument removes a document record and its content.
// @Summary Delete a document
// @Description Admins may delete any record; editors only their own.
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} messageResponse
// @Failure 401 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return withActor(func(c *fiber.Ctx, actor model.User) error {
		id := c.Params("id")
		if _, err := docSvc.Delete(c.UserContext(), actor, id); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(messageResponse{Message: "Document deleted successfully", DocumentID: id})
	})
}

// PutContent stores or replaces the binary content of a document.
// @Summary Upload document content
// @Tags documents
// @Accept octet-stream
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 204
// @Failure 401 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Router /documents/{id}/content [put]
func PutContent(docSvc service.DocumentService) fiber.Handler {
	return withActor(func(c *fiber.Ctx, actor model.User) error {
		body := c.Body()
		contentType := c.Get(fiber.HeaderContentType)
		if contentType == "" {
			contentType = fiber.MIMEOctetStream
		}

		if _, err := docSvc.PutContent(c.UserContext(), actor, c.Params("id"), bytes.NewReader(body), contentType, int64(len(body))); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// GetContent streams the binary content of a document.
// @Summary Download document content
// @Tags documents
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {file} file
// @Failure 401 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/content [get]
func GetContent(docSvc service.DocumentService) fiber.Handler {
	return withActor(func(c *fiber.Ctx, actor model.User) error {
		rc, info, err := docSvc.GetContent(c.UserContext(), actor, c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Set(fiber.HeaderContentType, info.ContentType)
		if info.ETag != "" {
			c.Set(fiber.HeaderETag, strconv.Quote(info.ETag))
		}
		// The stream is closed by fasthttp once the body has been written.
		return c.Status(fiber.StatusOK).SendStream(rc, int(info.Size))
	})
}
