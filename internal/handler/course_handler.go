package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/middleware"
	"github.com/mansoorceksport/learnify/internal/service"
)

// CourseHandler handles catalog and lecture endpoints
type CourseHandler struct {
	courseService *service.CourseService
	maxUploadMB   int64
}

// NewCourseHandler creates a new CourseHandler
func NewCourseHandler(courseService *service.CourseService, maxUploadMB int64) *CourseHandler {
	return &CourseHandler{
		courseService: courseService,
		maxUploadMB:   maxUploadMB,
	}
}

// ListCourses handles GET /api/v1/courses?keyword=&category=
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	courses, err := h.courseService.ListCourses(c.UserContext(), domain.CourseFilter{
		Keyword:  c.Query("keyword"),
		Category: c.Query("category"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"courses": courses,
	})
}

// CreateCourse handles POST /api/v1/createcourse (multipart: title, description, category, createdBy, file)
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	poster, err := readUpload(c, "file", h.maxUploadMB, "image/")
	if err != nil {
		return err
	}

	course, err := h.courseService.CreateCourse(c.UserContext(), service.CreateCourseRequest{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
		CreatedBy:   c.FormValue("createdBy"),
		Poster:      poster,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Course created successfully. You can add lectures now.",
		"course":  course,
	})
}

// GetCourseLectures handles GET /api/v1/course/:id
func (h *CourseHandler) GetCourseLectures(c *fiber.Ctx) error {
	lectures, err := h.courseService.GetLectures(c.UserContext(), middleware.GetUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"lectures": lectures,
	})
}

// AddLecture handles POST /api/v1/course/:id (multipart: title, description, file)
func (h *CourseHandler) AddLecture(c *fiber.Ctx) error {
	video, err := readUpload(c, "file", h.maxUploadMB, "video/")
	if err != nil {
		return err
	}

	lecture, err := h.courseService.AddLecture(c.UserContext(), c.Params("id"), service.AddLectureRequest{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Video:       video,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Lecture added to course",
		"lecture": lecture,
	})
}

// DeleteCourse handles DELETE /api/v1/course/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	if err := h.courseService.DeleteCourse(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Course deleted successfully",
	})
}

// DeleteLecture handles DELETE /api/v1/lecture?courseId=&lectureId=
func (h *CourseHandler) DeleteLecture(c *fiber.Ctx) error {
	courseID := c.Query("courseId")
	lectureID := c.Query("lectureId")
	if courseID == "" || lectureID == "" {
		return fmt.Errorf("%w: courseId and lectureId are required", domain.ErrValidation)
	}

	if err := h.courseService.DeleteLecture(c.UserContext(), courseID, lectureID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Lecture deleted successfully",
	})
}
