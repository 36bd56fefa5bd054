package httpapi

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"timetable/internal/export"
)

// exportFailedMessage is the only detail clients get about render failures.
const exportFailedMessage = "export failed"

func setDownloadHeaders(c *fiber.Ctx, contentType, fileName string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, fileName))
}

func (h *Handler) downloadExport(c *fiber.Ctx) error {
	if h.exporter == nil {
		return writeError(c, fiber.StatusNotFound, "exports not configured")
	}
	format, err := export.ParseFormat(c.Params("format"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}
	artifact, err := h.exporter.Export(c.UserContext(), format, h.svc.ExportSnapshot())
	if err != nil {
		h.logger.Error("direct export failed", "format", format, "error", err)
		return writeError(c, fiber.StatusInternalServerError, exportFailedMessage)
	}
	setDownloadHeaders(c, artifact.ContentType, artifact.FileName)
	return c.Send(artifact.Data)
}

func (h *Handler) enqueueExport(c *fiber.Ctx) error {
	if h.exports == nil {
		return writeError(c, fiber.StatusNotFound, "exports not configured")
	}
	var req exportRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}
	record, err := h.exports.EnqueueExport(c.UserContext(), export.ExportInput{Format: format, RequestedBy: req.RequestedBy})
	var unsupported export.ErrUnsupportedFormat
	switch {
	case errors.Is(err, export.ErrQueueFull), errors.Is(err, export.ErrWorkerStopped):
		return writeError(c, fiber.StatusServiceUnavailable, err.Error())
	case errors.As(err, &unsupported):
		return writeError(c, fiber.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error("enqueue export failed", "format", format, "error", err)
		return writeError(c, fiber.StatusInternalServerError, exportFailedMessage)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"export": record})
}

func (h *Handler) listExports(c *fiber.Ctx) error {
	if h.exports == nil {
		return writeError(c, fiber.StatusNotFound, "exports not configured")
	}
	return c.JSON(fiber.Map{"exports": h.exports.ListExports()})
}

func (h *Handler) deleteExport(c *fiber.Ctx) error {
	if h.exports == nil {
		return writeError(c, fiber.StatusNotFound, "exports not configured")
	}
	id := c.Params("id")
	record, err := h.exports.DeleteExport(c.UserContext(), id)
	switch {
	case errors.Is(err, export.ErrExportNotFound):
		return writeError(c, fiber.StatusNotFound, "export not found")
	case errors.Is(err, export.ErrExportNotReady):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "export not finished", "export": record})
	case err != nil:
		h.logger.Error("delete export failed", "export_id", id, "error", err)
		return writeError(c, fiber.StatusInternalServerError, "delete export failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) getExport(c *fiber.Ctx) error {
	if h.exports == nil {
		return writeError(c, fiber.StatusNotFound, "exports not configured")
	}
	record, ok := h.exports.GetExport(c.Params("id"))
	if !ok {
		return writeError(c, fiber.StatusNotFound, "export not found")
	}
	return c.JSON(fiber.Map{"export": record})
}

func (h *Handler) downloadArtifact(c *fiber.Ctx) error {
	if h.exports == nil {
		return writeError(c, fiber.StatusNotFound, "exports not configured")
	}
	record, body, err := h.exports.OpenArtifact(c.UserContext(), c.Params("id"))
	switch {
	case errors.Is(err, export.ErrExportNotFound):
		return writeError(c, fiber.StatusNotFound, "export not found")
	case errors.Is(err, export.ErrExportNotReady):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "export not ready", "export": record})
	case err != nil:
		h.logger.Error("open export artifact failed", "export_id", record.ID, "error", err)
		return writeError(c, fiber.StatusInternalServerError, exportFailedMessage)
	}
	setDownloadHeaders(c, record.ContentType, record.FileName)
	return c.SendStream(body, int(record.SizeBytes))
}
