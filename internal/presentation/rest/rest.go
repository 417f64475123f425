package rest

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/formlock/formlock-backend/internal/application"
	"github.com/formlock/formlock-backend/internal/application/commands"
	"github.com/formlock/formlock-backend/internal/application/dto"
	"github.com/formlock/formlock-backend/internal/application/errs"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type Server struct {
	handlers *application.Handlers
	validate *validator.Validate
}

func NewServer(handlers *application.Handlers) *Server {
	return &Server{handlers: handlers, validate: validator.New()}
}

func RegisterHandlers(app *fiber.App, s *Server) {
	app.Post("/forms/:id/submissions", s.CreateSubmissionLink)
	app.Post("/forms/:id/entrances", s.RecordEntrance)
	app.Post("/submissions/:token/start", s.StartSubmission)
	app.Post("/submissions/:token/submit", s.SubmitSubmission)
	app.Get("/submissions/:token/pdf", s.GetSubmissionPDF)
	app.Get("/submissions/:token/timeline", s.GetTimeline)
}

func (s *Server) CreateSubmissionLink(c *fiber.Ctx) error {
	formID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid form id"})
	}

	var req dto.CreateSubmissionLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if err := s.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	resp, err := s.handlers.CreateSubmissionLink.Execute(c.Context(), formID, req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (s *Server) RecordEntrance(c *fiber.Ctx) error {
	formID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid form id"})
	}

	var req dto.RecordEntranceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	meta := entranceMeta(c)
	entranceID, err := s.handlers.RecordEntrance.Execute(c.Context(), formID, req, meta)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.RecordEntranceResponse{EntranceID: entranceID})
}

func (s *Server) StartSubmission(c *fiber.Ctx) error {
	status, err := s.handlers.StartSubmission.Execute(c.Context(), c.Params("token"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(dto.StartSubmissionResponse{Status: string(status)})
}

func (s *Server) SubmitSubmission(c *fiber.Ctx) error {
	var req dto.SubmitSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if err := s.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	// the response is independent of the detached pipeline's outcome
	_, err := s.handlers.SubmitSubmission.Execute(c.Context(), c.Params("token"), req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(dto.SubmitSubmissionResponse{
		Success: true,
		Message: "Form submitted successfully",
	})
}

func (s *Server) GetSubmissionPDF(c *fiber.Ctx) error {
	token := c.Params("token")
	pdf, err := s.handlers.GetSubmissionPDF.Query(c.Context(), token)
	if err != nil {
		return errorResponse(c, err)
	}

	filename := fmt.Sprintf("submission-%s-%s.pdf", token, time.Now().Format("2006-01-02"))
	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Set("Cache-Control", "no-cache")
	return c.Status(fiber.StatusOK).Send(pdf)
}

func (s *Server) GetTimeline(c *fiber.Ctx) error {
	resp, err := s.handlers.GetTimeline.Query(c.Context(), c.Params("token"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func entranceMeta(c *fiber.Ctx) commands.EntranceMeta {
	meta := commands.EntranceMeta{}
	if ip := c.IP(); ip != "" {
		meta.IPAddress = &ip
	}
	if ua := c.Get("User-Agent"); ua != "" {
		meta.UserAgent = &ua
	}
	if ref := c.Get("Referer"); ref != "" {
		meta.Referrer = &ref
	}
	return meta
}

func errorResponse(c *fiber.Ctx, err error) error {
	var (
		validationErr errs.ValidationError
		notFoundErr   errs.NotFoundError
		lockedErr     errs.LockedError
		expiredErr    errs.ExpiredError
		renderErr     errs.RenderError
	)
	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &lockedErr), errors.As(err, &expiredErr):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &renderErr):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
}
