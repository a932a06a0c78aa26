package controller

import (
	"equiz_backend/internal/service"
	"equiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	Service *service.CourseService
}

func NewCourseController(svc *service.CourseService) *CourseController {
	return &CourseController{Service: svc}
}

// @Summary Create a course
// @Tags Courses
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateCourseRequest true "course"
// @Success 201 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req service.CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Service.CreateCourse(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// @Summary List courses
// @Tags Courses
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	courses, err := c.Service.ListCourses(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// @Summary Create a class
// @Tags Classes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateClassRequest true "class"
// @Success 201 {object} util.Response
// @Router /api/classes [post]
func (c *CourseController) CreateClass(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateClassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	class, err := c.Service.CreateClass(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, class)
}

// @Summary List classes
// @Tags Classes
// @Produce json
// @Security ApiKeyAuth
// @Param courseId query string false "course filter"
// @Success 200 {object} util.Response
// @Router /api/classes [get]
func (c *CourseController) ListClasses(ctx *gin.Context) {
	classes, err := c.Service.ListClasses(ctx.Request.Context(), ctx.Query("courseId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, classes)
}

// @Summary Enroll students in a class
// @Tags Classes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "class id"
// @Param body body service.EnrollRequest true "students"
// @Success 200 {object} util.Response
// @Router /api/classes/{id}/students [post]
func (c *CourseController) Enroll(ctx *gin.Context) {
	var req service.EnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.Enroll(ctx.Request.Context(), ctx.Param("id"), req); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"enrolled": len(req.StudentIDs)})
}
