package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/coursehub-system/internal/middleware"
	"github.com/mmeshcher/coursehub-system/internal/model"
	"github.com/mmeshcher/coursehub-system/internal/repository"
	"github.com/mmeshcher/coursehub-system/internal/validation"
)

type courseRequest struct {
	Title           string                 `json:"title"`
	Category        string                 `json:"category"`
	Level           string                 `json:"level"`
	PrimaryLanguage string                 `json:"primaryLanguage"`
	Subtitle        string                 `json:"subtitle"`
	Description     string                 `json:"description"`
	Image           string                 `json:"image"`
	WelcomeMessage  string                 `json:"welcomeMessage"`
	Pricing         string                 `json:"pricing"`
	Objectives      string                 `json:"objectives"`
	IsPublished     bool                   `json:"isPublished"`
	Curriculum      []model.CurriculumItem `json:"curriculum"`
}

type studentEntry struct {
	StudentID    int64  `json:"studentId"`
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail"`
	PaidAmount   string `json:"paidAmount"`
}

type courseResponse struct {
	ID              string                 `json:"id"`
	InstructorID    int64                  `json:"instructorId"`
	InstructorName  string                 `json:"instructorName"`
	Title           string                 `json:"title"`
	Category        string                 `json:"category"`
	Level           string                 `json:"level"`
	PrimaryLanguage string                 `json:"primaryLanguage"`
	Subtitle        string                 `json:"subtitle"`
	Description     string                 `json:"description"`
	Image           string                 `json:"image"`
	WelcomeMessage  string                 `json:"welcomeMessage"`
	Pricing         string                 `json:"pricing"`
	Objectives      string                 `json:"objectives"`
	IsPublished     bool                   `json:"isPublished"`
	Curriculum      []model.CurriculumItem `json:"curriculum"`
	Students        []studentEntry         `json:"students,omitempty"`
	Date            string                 `json:"date"`
}

func newCourseResponse(c *model.Course) courseResponse {
	resp := courseResponse{
		ID:              c.ID,
		InstructorID:    c.InstructorID,
		InstructorName:  c.InstructorName,
		Title:           c.Title,
		Category:        c.Category,
		Level:           c.Level,
		PrimaryLanguage: c.Language,
		Subtitle:        c.Subtitle,
		Description:     c.Description,
		Image:           c.Image,
		WelcomeMessage:  c.WelcomeMessage,
		Pricing:         validation.FormatPrice(c.PricingCents),
		Objectives:      c.Objectives,
		IsPublished:     c.IsPublished,
		Curriculum:      c.Curriculum,
		Date:            c.CreatedAt.Format(time.RFC3339),
	}

	for _, s := range c.Students {
		resp.Students = append(resp.Students, studentEntry{
			StudentID:    s.StudentID,
			StudentName:  s.StudentName,
			StudentEmail: s.StudentEmail,
			PaidAmount:   validation.FormatPrice(s.PaidCents),
		})
	}

	return resp
}

func (h *Handler) decodeCourse(w http.ResponseWriter, r *http.Request) (*model.Course, bool) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	if claims.Role != string(model.RoleInstructor) {
		writeError(w, http.StatusForbidden, "instructor role required")
		return nil, false
	}

	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return nil, false
	}

	pricingCents, err := validation.ParsePrice(req.Pricing)
	if err != nil {
		writeError(w, http.StatusBadRequest, "pricing must be a positive decimal number")
		return nil, false
	}

	return &model.Course{
		InstructorID:   claims.UserID,
		InstructorName: claims.UserName,
		Title:          req.Title,
		Category:       req.Category,
		Level:          req.Level,
		Language:       req.PrimaryLanguage,
		Subtitle:       req.Subtitle,
		Description:    req.Description,
		Image:          req.Image,
		WelcomeMessage: req.WelcomeMessage,
		PricingCents:   pricingCents,
		Objectives:     req.Objectives,
		IsPublished:    req.IsPublished,
		Curriculum:     req.Curriculum,
	}, true
}

// AddCourse создаёт новый курс текущего преподавателя.
func (h *Handler) AddCourse(w http.ResponseWriter, r *http.Request) {
	course, ok := h.decodeCourse(w, r)
	if !ok {
		return
	}

	created, err := h.service.CreateCourse(r.Context(), course)
	if err != nil {
		h.logger.Error("add course error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create course")
		return
	}

	writeJSON(w, http.StatusCreated, newCourseResponse(created))
}

// GetCourses возвращает список всех курсов.
func (h *Handler) GetCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.GetCourses(r.Context())
	if err != nil {
		h.logger.Error("get courses error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list courses")
		return
	}

	resp := make([]courseResponse, 0, len(courses))
	for i := range courses {
		resp = append(resp, newCourseResponse(&courses[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetCourseDetails возвращает курс по идентификатору.
func (h *Handler) GetCourseDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	course, err := h.service.GetCourseByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCourseNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		h.logger.Error("get course error", zap.Error(err), zap.String("courseID", id))
		writeError(w, http.StatusInternalServerError, "failed to get course")
		return
	}

	writeJSON(w, http.StatusOK, newCourseResponse(course))
}

// UpdateCourse обновляет курс по идентификатору.
func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	course, ok := h.decodeCourse(w, r)
	if !ok {
		return
	}
	course.ID = chi.URLParam(r, "id")

	if err := h.service.UpdateCourse(r.Context(), course); err != nil {
		if errors.Is(err, repository.ErrCourseNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		h.logger.Error("update course error", zap.Error(err), zap.String("courseID", course.ID))
		writeError(w, http.StatusInternalServerError, "failed to update course")
		return
	}

	// Перечитываем курс: дата создания и список студентов не приходят в запросе.
	updated, err := h.service.GetCourseByID(r.Context(), course.ID)
	if err != nil {
		h.logger.Error("reload course error", zap.Error(err), zap.String("courseID", course.ID))
		writeError(w, http.StatusInternalServerError, "failed to update course")
		return
	}

	writeJSON(w, http.StatusOK, newCourseResponse(updated))
}

// DeleteCourse удаляет курс по идентификатору.
func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if claims.Role != string(model.RoleInstructor) {
		writeError(w, http.StatusForbidden, "instructor role required")
		return
	}

	id := chi.URLParam(r, "courseId")

	if err := h.service.DeleteCourse(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrCourseNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		h.logger.Error("delete course error", zap.Error(err), zap.String("courseID", id))
		writeError(w, http.StatusInternalServerError, "failed to delete course")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

type purchaseResponse struct {
	CourseID       string `json:"courseId"`
	Title          string `json:"title"`
	InstructorID   int64  `json:"instructorId"`
	InstructorName string `json:"instructorName"`
	CourseImage    string `json:"courseImage"`
	Pricing        string `json:"pricing"`
	DateOfPurchase string `json:"dateOfPurchase"`
}

// GetStudentCourses возвращает купленные текущим пользователем курсы.
func (h *Handler) GetStudentCourses(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	purchases, err := h.service.GetPurchasesByUser(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("get purchases error", zap.Error(err), zap.Int64("userID", claims.UserID))
		writeError(w, http.StatusInternalServerError, "failed to list purchased courses")
		return
	}

	resp := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		resp = append(resp, purchaseResponse{
			CourseID:       p.CourseID,
			Title:          p.Title,
			InstructorID:   p.InstructorID,
			InstructorName: p.InstructorName,
			CourseImage:    p.CourseImage,
			Pricing:        validation.FormatPrice(p.PriceCents),
			DateOfPurchase: p.PurchasedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
